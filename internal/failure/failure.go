// Package failure defines the error kinds shared by every stage of a
// certificate run. Callers wrap causes with one of the sentinels so the
// orchestrator and the CLI can classify them with errors.Is.
package failure

import "errors"

var (
	// ErrConfiguration means a required setting or credential is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrInputRead means the recipient table could not be read.
	ErrInputRead = errors.New("input read error")
	// ErrDocumentProcessing means the template is malformed or substitution failed.
	ErrDocumentProcessing = errors.New("document processing error")
	// ErrRemoteService means the conversion service failed after all attempts.
	ErrRemoteService = errors.New("remote service error")
	// ErrDelivery means the email or print step failed.
	ErrDelivery = errors.New("delivery error")
	// ErrRecipient means a recipient row is unusable (empty name, bad address).
	ErrRecipient = errors.New("invalid recipient")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrConfiguration, "configuration"},
	{ErrInputRead, "input_read"},
	{ErrDocumentProcessing, "document_processing"},
	{ErrRemoteService, "remote_service"},
	{ErrDelivery, "delivery"},
	{ErrRecipient, "recipient"},
}

// KindOf returns a short, stable name for the kind of err, suitable for a
// log attribute. Unclassified errors report "unknown"; nil reports "".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}

// IsFatal reports whether err must stop a whole batch instead of a single recipient.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInputRead) || errors.Is(err, ErrConfiguration)
}
