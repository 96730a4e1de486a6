// Package pptxtest builds small .pptx packages for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Shape returns a p:sp element holding the given a:p elements.
func Shape(id int, name string, paragraphs ...string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/>`+
		`<p:txBody><a:bodyPr/><a:lstStyle/>%s</p:txBody></p:sp>`, id, name, strings.Join(paragraphs, ""))
}

// Picture returns a p:pic element, a shape without text.
func Picture(id int, name string) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:spPr/></p:pic>`, id, name)
}

// Group wraps shapes in a p:grpSp.
func Group(id int, name string, shapes ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="%s"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:grpSp>`,
		id, name, strings.Join(shapes, ""))
}

// Slide returns a complete slide part holding the given shapes.
func Slide(shapes ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
		`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		strings.Join(shapes, "") +
		`</p:spTree></p:cSld></p:sld>`
}

// Build returns a .pptx package with the given slide parts, listed in order.
func Build(t testing.TB, slides ...string) []byte {
	t.Helper()

	var ids, rels strings.Builder
	files := map[string]string{}
	var order []string
	for i, s := range slides {
		// parts are numbered in reverse so ordering must come from sldIdLst
		n := len(slides) - i
		name := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		files[name] = s
		order = append(order, name)
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+10)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+10, n)
	}

	head := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="xml" ContentType="application/xml"/></Types>`},
		{"ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<p:presentation xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
			`<p:sldIdLst>` + ids.String() + `</p:sldIdLst></p:presentation>`},
		{"ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + rels.String() + `</Relationships>`},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, body string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	for _, h := range head {
		write(h.name, h.body)
	}
	for _, name := range order {
		write(name, files[name])
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFile builds a package and stores it under dir as name.
func WriteFile(t testing.TB, dir, name string, slides ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Build(t, slides...), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// Certificate writes a one-slide certificate whose title paragraph holds
// placeholder in a single bold 24pt run.
func Certificate(t testing.TB, dir, placeholder string) string {
	t.Helper()
	return WriteFile(t, dir, "certificate.pptx", Slide(
		Picture(2, "Border"),
		Shape(3, "Title",
			`<a:p><a:pPr algn="ctr"/><a:r><a:rPr lang="en-US" sz="2400" b="1"/><a:t>Awarded to `+placeholder+`</a:t></a:r></a:p>`,
		),
	))
}
