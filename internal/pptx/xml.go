package pptx

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"certmailer/internal/deck"
)

// frameFunc receives every shape in document order; body is nil for shapes
// without text.
type frameFunc func(id, name string, body *etree.Element)

// walkShapes visits the shapes of a slide's p:spTree, descending into groups
// and exposing each table cell as its own shape. Parsing and rendering both go
// through it so shape order always agrees.
func walkShapes(tree *etree.Element, fn frameFunc) {
	for _, el := range tree.ChildElements() {
		switch el.Space + ":" + el.Tag {
		case "p:sp":
			id, name := shapeIdentity(el.FindElement("./p:nvSpPr/p:cNvPr"))
			fn(id, name, el.SelectElement("p:txBody"))
		case "p:grpSp":
			walkShapes(el, fn)
		case "p:graphicFrame":
			id, name := shapeIdentity(el.FindElement("./p:nvGraphicFramePr/p:cNvPr"))
			tbl := el.FindElement("./a:graphic/a:graphicData/a:tbl")
			if tbl == nil {
				fn(id, name, nil)
				continue
			}
			for ri, tr := range tbl.SelectElements("a:tr") {
				for ci, tc := range tr.SelectElements("a:tc") {
					cell := name + " r" + strconv.Itoa(ri+1) + "c" + strconv.Itoa(ci+1)
					fn(id, cell, tc.SelectElement("a:txBody"))
				}
			}
		case "p:pic", "p:cxnSp":
			id, name := shapeIdentity(el.FindElement("./*/p:cNvPr"))
			fn(id, name, nil)
		}
	}
}

func shapeIdentity(c *etree.Element) (string, string) {
	if c == nil {
		return "", ""
	}
	return c.SelectAttrValue("id", ""), c.SelectAttrValue("name", "")
}

func parseParagraph(p *etree.Element) *deck.Paragraph {
	out := &deck.Paragraph{Format: parseFormat(p.SelectElement("a:pPr"))}
	for _, el := range p.ChildElements() {
		switch el.Space + ":" + el.Tag {
		case "a:r":
			out.Runs = append(out.Runs, &deck.Run{Kind: deck.TextRun, Text: textOf(el), Font: parseFont(el.SelectElement("a:rPr"))})
		case "a:fld":
			out.Runs = append(out.Runs, &deck.Run{Kind: deck.FieldRun, Text: textOf(el), Font: parseFont(el.SelectElement("a:rPr"))})
		case "a:br":
			out.Runs = append(out.Runs, &deck.Run{Kind: deck.BreakRun, Text: deck.LineBreak, Font: parseFont(el.SelectElement("a:rPr"))})
		}
	}
	return out
}

func textOf(run *etree.Element) string {
	if t := run.SelectElement("a:t"); t != nil {
		return t.Text()
	}
	return ""
}

func parseFont(rPr *etree.Element) deck.Font {
	var f deck.Font
	if rPr == nil {
		return f
	}
	if v, err := strconv.Atoi(rPr.SelectAttrValue("sz", "")); err == nil {
		f.Size = float64(v) / 100
	}
	f.Bold = parseBool(rPr.SelectAttr("b"))
	f.Italic = parseBool(rPr.SelectAttr("i"))
	f.Underline = rPr.SelectAttrValue("u", "")
	if c := rPr.FindElement("./a:solidFill/a:srgbClr"); c != nil {
		f.Color = strings.ToUpper(c.SelectAttrValue("val", ""))
	}
	if l := rPr.SelectElement("a:latin"); l != nil {
		f.Name = l.SelectAttrValue("typeface", "")
	}
	return f
}

func parseBool(a *etree.Attr) *bool {
	if a == nil {
		return nil
	}
	v := a.Value == "1" || a.Value == "true"
	return &v
}

func parseFormat(pPr *etree.Element) deck.ParagraphFormat {
	var pf deck.ParagraphFormat
	if pPr == nil {
		return pf
	}
	pf.Alignment = pPr.SelectAttrValue("algn", "")
	if v, err := strconv.Atoi(pPr.SelectAttrValue("lvl", "")); err == nil {
		pf.Level = v
	}
	pf.LineSpacing = parseSpacing(pPr.SelectElement("a:lnSpc"))
	pf.SpaceBefore = parseSpacing(pPr.SelectElement("a:spcBef"))
	pf.SpaceAfter = parseSpacing(pPr.SelectElement("a:spcAft"))
	return pf
}

func parseSpacing(el *etree.Element) *deck.Spacing {
	if el == nil {
		return nil
	}
	if pts := el.SelectElement("a:spcPts"); pts != nil {
		if v, err := strconv.Atoi(pts.SelectAttrValue("val", "")); err == nil {
			return &deck.Spacing{Value: float64(v) / 100, Unit: deck.Points}
		}
	}
	if pct := el.SelectElement("a:spcPct"); pct != nil {
		if v, err := strconv.Atoi(pct.SelectAttrValue("val", "")); err == nil {
			return &deck.Spacing{Value: float64(v) / 1000, Unit: deck.Percent}
		}
	}
	return nil
}

// writeParagraph brings the a:p element in line with the model paragraph.
// When only run text changed it edits a:t in place; otherwise the runs are
// regenerated from the model. a:pPr and a:endParaRPr are kept.
func writeParagraph(p *etree.Element, current, want *deck.Paragraph) {
	if inPlace(current, want) {
		i := 0
		for _, el := range p.ChildElements() {
			switch el.Space + ":" + el.Tag {
			case "a:r", "a:fld":
				if current.Runs[i].Text != want.Runs[i].Text {
					setText(el, want.Runs[i].Text)
				}
				i++
			case "a:br":
				i++
			}
		}
	} else {
		rebuildRuns(p, want.Runs)
	}
	if !current.Format.Equal(want.Format) {
		writeFormat(p, want.Format)
	}
}

func inPlace(current, want *deck.Paragraph) bool {
	if !current.SameLayout(want) {
		return false
	}
	for i, r := range want.Runs {
		if !r.Font.Equal(current.Runs[i].Font) {
			return false
		}
		if r.Kind != deck.BreakRun && strings.Contains(r.Text, deck.LineBreak) {
			return false
		}
	}
	return true
}

func setText(run *etree.Element, s string) {
	t := run.SelectElement("a:t")
	if t == nil {
		t = run.CreateElement("a:t")
	}
	t.SetText(s)
}

func rebuildRuns(p *etree.Element, runs []*deck.Run) {
	for _, el := range p.ChildElements() {
		switch el.Space + ":" + el.Tag {
		case "a:r", "a:br", "a:fld":
			p.RemoveChild(el)
		}
	}

	var fresh []*etree.Element
	for _, r := range runs {
		if r.Kind == deck.BreakRun {
			fresh = append(fresh, newBreak(r.Font))
			continue
		}
		for i, line := range strings.Split(r.Text, deck.LineBreak) {
			if i > 0 {
				fresh = append(fresh, newBreak(r.Font))
			}
			if line == "" {
				continue
			}
			el := etree.NewElement("a:r")
			writeFont(el.CreateElement("a:rPr"), r.Font)
			el.CreateElement("a:t").SetText(line)
			fresh = append(fresh, el)
		}
	}

	at := len(p.Child)
	if end := p.SelectElement("a:endParaRPr"); end != nil {
		at = end.Index()
	}
	for i, el := range fresh {
		p.InsertChildAt(at+i, el)
	}
}

func newBreak(f deck.Font) *etree.Element {
	br := etree.NewElement("a:br")
	writeFont(br.CreateElement("a:rPr"), f)
	return br
}

// writeFont fills an empty a:rPr. Children follow the schema order
// (solidFill before latin).
func writeFont(rPr *etree.Element, f deck.Font) {
	rPr.CreateAttr("lang", "en-US")
	if f.Size > 0 {
		rPr.CreateAttr("sz", strconv.Itoa(int(math.Round(f.Size*100))))
	}
	if f.Bold != nil {
		rPr.CreateAttr("b", formatBool(*f.Bold))
	}
	if f.Italic != nil {
		rPr.CreateAttr("i", formatBool(*f.Italic))
	}
	if f.Underline != "" {
		rPr.CreateAttr("u", f.Underline)
	}
	if f.Color != "" {
		rPr.CreateElement("a:solidFill").CreateElement("a:srgbClr").CreateAttr("val", f.Color)
	}
	if f.Name != "" {
		rPr.CreateElement("a:latin").CreateAttr("typeface", f.Name)
	}
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func writeFormat(p *etree.Element, pf deck.ParagraphFormat) {
	pPr := p.SelectElement("a:pPr")
	if pPr == nil {
		pPr = etree.NewElement("a:pPr")
		p.InsertChildAt(0, pPr)
	}
	setAttr(pPr, "algn", pf.Alignment)
	lvl := ""
	if pf.Level > 0 {
		lvl = strconv.Itoa(pf.Level)
	}
	setAttr(pPr, "lvl", lvl)

	for _, tag := range []string{"a:lnSpc", "a:spcBef", "a:spcAft"} {
		if el := pPr.SelectElement(tag); el != nil {
			pPr.RemoveChild(el)
		}
	}
	at := 0
	for _, s := range []struct {
		tag string
		v   *deck.Spacing
	}{
		{"a:lnSpc", pf.LineSpacing},
		{"a:spcBef", pf.SpaceBefore},
		{"a:spcAft", pf.SpaceAfter},
	} {
		if s.v == nil {
			continue
		}
		el := etree.NewElement(s.tag)
		if s.v.Unit == deck.Percent {
			el.CreateElement("a:spcPct").CreateAttr("val", strconv.Itoa(int(math.Round(s.v.Value*1000))))
		} else {
			el.CreateElement("a:spcPts").CreateAttr("val", strconv.Itoa(int(math.Round(s.v.Value*100))))
		}
		pPr.InsertChildAt(at, el)
		at++
	}
}

func setAttr(el *etree.Element, key, value string) {
	if value == "" {
		el.RemoveAttr(key)
		return
	}
	el.CreateAttr(key, value)
}
