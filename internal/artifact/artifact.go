// Package artifact derives per-recipient output file names.
package artifact

import (
	"path/filepath"
	"regexp"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SafeName replaces every character outside [A-Za-z0-9_.-] with "_".
func SafeName(email string) string {
	return unsafeChars.ReplaceAllString(email, "_")
}

// Paths are the files produced for one recipient.
type Paths struct {
	Document string // substituted presentation
	PDF      string // converted artifact
}

// For returns the artifact paths for email inside dir.
func For(dir, email string) Paths {
	base := filepath.Join(dir, SafeName(email))
	return Paths{Document: base + ".pptx", PDF: base + ".pdf"}
}
