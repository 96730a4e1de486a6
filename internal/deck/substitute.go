package deck

import (
	"errors"
	"fmt"
	"strings"

	"certmailer/internal/failure"
)

// Result describes the outcome of Substitute.
type Result struct {
	// Deck is a fresh copy holding the substituted text; the input is never touched.
	Deck *Deck
	// Found is true when at least one paragraph was substituted.
	Found bool
	// Paragraphs counts substituted paragraphs.
	Paragraphs int
	// Merged counts paragraphs where an occurrence crossed a run boundary and
	// the runs were collapsed into one.
	Merged int
}

// Substitute replaces every occurrence of placeholder with replacement in a
// copy of d.
//
// A paragraph whose text does not contain the placeholder is left exactly as
// it was. When every occurrence in a paragraph lies inside a single run, the
// replacement happens run by run and all formatting is kept; this includes
// several runs that each hold a whole occurrence, which keep their own
// formatting instead of being merged. When an
// occurrence crosses a run boundary, the paragraph text is replaced as a whole
// and stored in one new run carrying the font of the first run that held part
// of the first occurrence; formatting of the other runs in that paragraph is
// lost. Paragraph attributes are captured before and restored after either path.
func Substitute(d *Deck, placeholder, replacement string) (Result, error) {
	if placeholder == "" {
		return Result{}, fmt.Errorf("%w: empty placeholder", failure.ErrDocumentProcessing)
	}
	if err := validate(d); err != nil {
		return Result{}, fmt.Errorf("%w: %w", failure.ErrDocumentProcessing, err)
	}

	res := Result{Deck: d.Clone()}
	res.Deck.Paragraphs(func(_ *Slide, _ *Shape, p *Paragraph) {
		changed, merged := substituteParagraph(p, placeholder, replacement)
		if changed {
			res.Paragraphs++
		}
		if merged {
			res.Merged++
		}
	})
	res.Found = res.Paragraphs > 0
	return res, nil
}

func substituteParagraph(p *Paragraph, placeholder, replacement string) (changed, merged bool) {
	text := p.Text()
	if !strings.Contains(text, placeholder) {
		return false, false
	}
	format := p.Format.Clone()

	first, crossing := locate(p.Runs, text, placeholder)
	if crossing {
		p.Runs = []*Run{{
			Kind: TextRun,
			Text: strings.ReplaceAll(text, placeholder, replacement),
			Font: p.Runs[first].Font.Clone(),
		}}
	} else {
		for _, r := range p.Runs {
			if r.Kind == BreakRun {
				continue
			}
			r.Text = strings.ReplaceAll(r.Text, placeholder, replacement)
		}
	}

	p.Format = format
	return true, crossing
}

// Placement tells where a placeholder sits in a paragraph.
type Placement int

const (
	Absent     Placement = iota
	WithinRun            // every occurrence inside one run, formatting survives
	AcrossRuns           // some occurrence crosses a run boundary, runs get merged
)

func (p Placement) String() string {
	switch p {
	case WithinRun:
		return "single run"
	case AcrossRuns:
		return "spans runs"
	default:
		return "absent"
	}
}

// Locate reports how Substitute would treat placeholder in p.
func (p *Paragraph) Locate(placeholder string) Placement {
	text := p.Text()
	if placeholder == "" || !strings.Contains(text, placeholder) {
		return Absent
	}
	if _, crossing := locate(p.Runs, text, placeholder); crossing {
		return AcrossRuns
	}
	return WithinRun
}

// locate scans the non-overlapping occurrences of placeholder in text, the
// same way strings.ReplaceAll does, and returns the index of the run holding
// the start of the first occurrence and whether any occurrence crosses a run
// boundary.
func locate(runs []*Run, text, placeholder string) (first int, crossing bool) {
	ends := make([]int, len(runs))
	pos := 0
	for i, r := range runs {
		pos += len(r.text())
		ends[i] = pos
	}

	first = -1
	run := 0
	for off := 0; ; {
		i := strings.Index(text[off:], placeholder)
		if i < 0 {
			break
		}
		start, end := off+i, off+i+len(placeholder)
		for ends[run] <= start {
			run++
		}
		if first < 0 {
			first = run
		}
		if end > ends[run] {
			crossing = true
		}
		off = end
	}
	return first, crossing
}

func validate(d *Deck) error {
	if d == nil {
		return errors.New("nil deck")
	}
	for si, s := range d.Slides {
		if s == nil {
			return fmt.Errorf("slide %d: missing", si+1)
		}
		for hi, sh := range s.Shapes {
			if sh == nil {
				return fmt.Errorf("slide %d shape %d: missing", si+1, hi+1)
			}
			if sh.Frame == nil {
				continue
			}
			for pi, p := range sh.Frame.Paragraphs {
				if p == nil {
					return fmt.Errorf("slide %d shape %q paragraph %d: missing", si+1, sh.Name, pi+1)
				}
				for ri, r := range p.Runs {
					if r == nil {
						return fmt.Errorf("slide %d shape %q paragraph %d run %d: missing", si+1, sh.Name, pi+1, ri+1)
					}
				}
			}
		}
	}
	return nil
}
