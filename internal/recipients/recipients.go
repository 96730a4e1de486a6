// Package recipients reads the recipient table: a CSV file with a header row
// naming at least the "name" and "email" columns.
package recipients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"certmailer/internal/failure"
)

// Recipient is one row of the table. Template, when set, overrides the
// configured certificate template for this row.
type Recipient struct {
	Row      int // 1-based data row, header excluded
	Name     string
	Email    string
	Template string
}

// Validate reports rows that cannot be processed.
func (r Recipient) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: row %d: empty name", failure.ErrRecipient, r.Row)
	}
	addr, err := mail.ParseAddress(r.Email)
	if err != nil {
		return fmt.Errorf("%w: row %d: email %q: %w", failure.ErrRecipient, r.Row, r.Email, err)
	}
	if addr.Address != r.Email {
		return fmt.Errorf("%w: row %d: email %q: want a bare address such as %q", failure.ErrRecipient, r.Row, r.Email, addr.Address)
	}
	return nil
}

// ReadFile reads recipients from a CSV file.
func ReadFile(path string) ([]Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrInputRead, err)
	}
	defer f.Close()
	rs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Read parses recipients in row order. Column names are matched
// case-insensitively; extra columns are ignored; blank lines are skipped.
func Read(r io.Reader) ([]Recipient, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty table", failure.ErrInputRead)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", failure.ErrInputRead, err)
	}
	cols := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	nameCol, okName := cols["name"]
	emailCol, okEmail := cols["email"]
	if !okName || !okEmail {
		return nil, fmt.Errorf("%w: header must contain name and email columns, got %q", failure.ErrInputRead, header)
	}
	tplCol, okTpl := cols["template"]

	var out []Recipient
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", failure.ErrInputRead, row, err)
		}
		field := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		r := Recipient{Row: row, Name: field(nameCol), Email: field(emailCol)}
		if okTpl {
			r.Template = field(tplCol)
		}
		out = append(out, r)
	}
	return out, nil
}
