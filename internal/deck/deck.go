// Package deck is the in-memory model of a slide deck's text: slides hold
// shapes, shapes may own a text frame, frames hold paragraphs and paragraphs
// hold formatted runs. Concatenating a paragraph's runs in order yields its
// visible text.
package deck

import "strings"

// RunKind distinguishes the run flavours a paragraph can hold.
type RunKind int

const (
	// TextRun is an ordinary formatted text run.
	TextRun RunKind = iota
	// BreakRun is a soft line break inside a paragraph; its text is "\v".
	BreakRun
	// FieldRun is an auto-updated field (slide number, date) holding its last rendered text.
	FieldRun
)

// LineBreak is the text a BreakRun contributes to its paragraph.
const LineBreak = "\v"

// Deck is an ordered list of slides.
type Deck struct {
	Slides []*Slide
}

// Slide is one slide, identified by its 1-based position and its package part name.
type Slide struct {
	Number int
	Part   string // e.g. ppt/slides/slide1.xml
	Shapes []*Shape
}

// Shape is a drawing element. Frame is nil for shapes without text (pictures, lines).
type Shape struct {
	ID    string
	Name  string
	Frame *TextFrame
}

// TextFrame holds the paragraphs of a shape.
type TextFrame struct {
	Paragraphs []*Paragraph
}

// Paragraph is an ordered list of runs plus paragraph-level formatting.
type Paragraph struct {
	Format ParagraphFormat
	Runs   []*Run
}

// Run is the smallest uniformly formatted piece of text.
type Run struct {
	Kind RunKind
	Text string
	Font Font
}

// Font carries the run attributes that survive substitution. Zero values mean
// "inherited from the layout or master".
type Font struct {
	Name      string
	Size      float64 // points
	Bold      *bool
	Italic    *bool
	Underline string // OOXML underline token: "sng", "dbl", "none", ...
	Color     string // RRGGBB
}

// SpacingUnit tells how a Spacing value is measured.
type SpacingUnit int

const (
	Points SpacingUnit = iota
	Percent
)

// Spacing is a paragraph spacing value in points or percent of a line.
type Spacing struct {
	Value float64
	Unit  SpacingUnit
}

// ParagraphFormat holds the paragraph attributes restored after run mutation.
// Nil spacing means inherited.
type ParagraphFormat struct {
	Alignment   string // l, ctr, r, just, dist; "" inherited
	Level       int
	SpaceBefore *Spacing
	SpaceAfter  *Spacing
	LineSpacing *Spacing
}

// Text returns the visible text of the paragraph.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.text())
	}
	return b.String()
}

func (r *Run) text() string {
	if r.Kind == BreakRun {
		return LineBreak
	}
	return r.Text
}

// Paragraphs calls fn for every paragraph of every text frame, in document order.
func (d *Deck) Paragraphs(fn func(s *Slide, sh *Shape, p *Paragraph)) {
	for _, s := range d.Slides {
		for _, sh := range s.Shapes {
			if sh.Frame == nil {
				continue
			}
			for _, p := range sh.Frame.Paragraphs {
				fn(s, sh, p)
			}
		}
	}
}

// Clone returns a deep copy of the deck.
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	out := &Deck{Slides: make([]*Slide, len(d.Slides))}
	for i, s := range d.Slides {
		out.Slides[i] = s.Clone()
	}
	return out
}

func (s *Slide) Clone() *Slide {
	if s == nil {
		return nil
	}
	out := &Slide{Number: s.Number, Part: s.Part, Shapes: make([]*Shape, len(s.Shapes))}
	for i, sh := range s.Shapes {
		out.Shapes[i] = sh.Clone()
	}
	return out
}

func (sh *Shape) Clone() *Shape {
	if sh == nil {
		return nil
	}
	out := &Shape{ID: sh.ID, Name: sh.Name}
	if sh.Frame != nil {
		out.Frame = &TextFrame{Paragraphs: make([]*Paragraph, len(sh.Frame.Paragraphs))}
		for i, p := range sh.Frame.Paragraphs {
			out.Frame.Paragraphs[i] = p.Clone()
		}
	}
	return out
}

func (p *Paragraph) Clone() *Paragraph {
	if p == nil {
		return nil
	}
	out := &Paragraph{Format: p.Format.Clone(), Runs: make([]*Run, len(p.Runs))}
	for i, r := range p.Runs {
		if r == nil {
			continue
		}
		out.Runs[i] = &Run{Kind: r.Kind, Text: r.Text, Font: r.Font.Clone()}
	}
	return out
}

func (f Font) Clone() Font {
	f.Bold = cloneBool(f.Bold)
	f.Italic = cloneBool(f.Italic)
	return f
}

func (pf ParagraphFormat) Clone() ParagraphFormat {
	pf.SpaceBefore = cloneSpacing(pf.SpaceBefore)
	pf.SpaceAfter = cloneSpacing(pf.SpaceAfter)
	pf.LineSpacing = cloneSpacing(pf.LineSpacing)
	return pf
}

// Equal reports whether two paragraphs have the same runs and formatting.
func (p *Paragraph) Equal(o *Paragraph) bool {
	if p == nil || o == nil {
		return p == o
	}
	if !p.Format.Equal(o.Format) || len(p.Runs) != len(o.Runs) {
		return false
	}
	for i := range p.Runs {
		a, b := p.Runs[i], o.Runs[i]
		if a.Kind != b.Kind || a.Text != b.Text || !a.Font.Equal(b.Font) {
			return false
		}
	}
	return true
}

// SameLayout reports whether both paragraphs have the same run kinds in the
// same order, ignoring text and fonts.
func (p *Paragraph) SameLayout(o *Paragraph) bool {
	if len(p.Runs) != len(o.Runs) {
		return false
	}
	for i := range p.Runs {
		if p.Runs[i].Kind != o.Runs[i].Kind {
			return false
		}
	}
	return true
}

func (f Font) Equal(o Font) bool {
	return f.Name == o.Name && f.Size == o.Size && f.Underline == o.Underline &&
		f.Color == o.Color && equalBool(f.Bold, o.Bold) && equalBool(f.Italic, o.Italic)
}

func (pf ParagraphFormat) Equal(o ParagraphFormat) bool {
	return pf.Alignment == o.Alignment && pf.Level == o.Level &&
		equalSpacing(pf.SpaceBefore, o.SpaceBefore) &&
		equalSpacing(pf.SpaceAfter, o.SpaceAfter) &&
		equalSpacing(pf.LineSpacing, o.LineSpacing)
}

// Bool returns a pointer to v, for building fonts.
func Bool(v bool) *bool { return &v }

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneSpacing(s *Spacing) *Spacing {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalSpacing(a, b *Spacing) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
