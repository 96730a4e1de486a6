package pptx

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certmailer/internal/deck"
	"certmailer/internal/failure"
	"certmailer/internal/pptx/pptxtest"
)

const ph = "NAME_PLACEHOLDER"

const styledTitle = `<a:p><a:pPr algn="ctr" lvl="1"><a:lnSpc><a:spcPct val="90000"/></a:lnSpc><a:spcBef><a:spcPts val="600"/></a:spcBef></a:pPr>` +
	`<a:r><a:rPr lang="en-US" sz="1800"/><a:t>Awarded to </a:t></a:r>` +
	`<a:r><a:rPr lang="en-US" sz="2400" b="1" i="0" u="sng"><a:solidFill><a:srgbClr val="1f3864"/></a:solidFill><a:latin typeface="Georgia"/></a:rPr><a:t>` + ph + `</a:t></a:r>` +
	`<a:endParaRPr lang="en-US"/></a:p>`

const splitTitle = `<a:p><a:pPr algn="r"/>` +
	`<a:r><a:rPr sz="1200"/><a:t>Dear </a:t></a:r>` +
	`<a:r><a:rPr sz="3200" b="1"><a:latin typeface="Garamond"/></a:rPr><a:t>NAME_</a:t></a:r>` +
	`<a:r><a:rPr sz="1000"/><a:t>PLACEHOLDER</a:t></a:r>` +
	`<a:br><a:rPr sz="1200"/></a:br>` +
	`<a:r><a:rPr sz="1200"/><a:t>well done</a:t></a:r>` +
	`<a:endParaRPr lang="en-US"/></a:p>`

func TestRead_ModelAndOrder(t *testing.T) {
	t.Parallel()

	b := pptxtest.Build(t,
		pptxtest.Slide(pptxtest.Picture(2, "Logo"), pptxtest.Shape(3, "Title", styledTitle)),
		pptxtest.Slide(pptxtest.Shape(2, "Footer", `<a:p><a:fld id="{1}" type="slidenum"><a:t>2</a:t></a:fld></a:p>`)),
	)
	tpl, err := Read(b)
	require.NoError(t, err)
	require.Len(t, tpl.Deck.Slides, 2)

	first := tpl.Deck.Slides[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "ppt/slides/slide2.xml", first.Part, "order follows sldIdLst, not part numbers")
	require.Len(t, first.Shapes, 2)
	assert.Nil(t, first.Shapes[0].Frame)
	assert.Equal(t, "Logo", first.Shapes[0].Name)

	p := first.Shapes[1].Frame.Paragraphs[0]
	assert.Equal(t, "Awarded to "+ph, p.Text())
	assert.Equal(t, "ctr", p.Format.Alignment)
	assert.Equal(t, 1, p.Format.Level)
	assert.Equal(t, &deck.Spacing{Value: 90, Unit: deck.Percent}, p.Format.LineSpacing)
	assert.Equal(t, &deck.Spacing{Value: 6, Unit: deck.Points}, p.Format.SpaceBefore)
	assert.Nil(t, p.Format.SpaceAfter)

	f := p.Runs[1].Font
	assert.Equal(t, "Georgia", f.Name)
	assert.Equal(t, 24.0, f.Size)
	assert.True(t, *f.Bold)
	assert.False(t, *f.Italic)
	assert.Equal(t, "sng", f.Underline)
	assert.Equal(t, "1F3864", f.Color)

	field := tpl.Deck.Slides[1].Shapes[0].Frame.Paragraphs[0].Runs[0]
	assert.Equal(t, deck.FieldRun, field.Kind)
	assert.Equal(t, "2", field.Text)
}

func TestRender_SingleRunRoundTrip(t *testing.T) {
	t.Parallel()

	b := pptxtest.Build(t,
		pptxtest.Slide(pptxtest.Shape(3, "Title", styledTitle), pptxtest.Shape(4, "Body", `<a:p><a:r><a:t>Untouched</a:t></a:r></a:p>`)),
		pptxtest.Slide(pptxtest.Shape(2, "Other", `<a:p><a:r><a:t>No placeholder</a:t></a:r></a:p>`)),
	)
	tpl, err := Read(b)
	require.NoError(t, err)

	res, err := deck.Substitute(tpl.Deck, ph, "Jane Doe")
	require.NoError(t, err)
	require.True(t, res.Found)

	out, err := tpl.Render(res.Deck)
	require.NoError(t, err)

	back, err := Read(out)
	require.NoError(t, err)
	orig := tpl.Deck.Slides[0].Shapes[0].Frame.Paragraphs[0]
	p := back.Deck.Slides[0].Shapes[0].Frame.Paragraphs[0]
	assert.Equal(t, "Awarded to Jane Doe", p.Text())
	require.Len(t, p.Runs, 2)
	assert.True(t, p.Runs[1].Font.Equal(orig.Runs[1].Font))
	assert.True(t, p.Format.Equal(orig.Format))
	assert.Equal(t, "Untouched", back.Deck.Slides[0].Shapes[1].Frame.Paragraphs[0].Text())

	// parts without changes are copied verbatim
	assert.Equal(t, partData(t, b, "ppt/slides/slide1.xml"), partData(t, out, "ppt/slides/slide1.xml"))
	assert.Equal(t, partData(t, b, "ppt/presentation.xml"), partData(t, out, "ppt/presentation.xml"))
	assert.NotEqual(t, partData(t, b, "ppt/slides/slide2.xml"), partData(t, out, "ppt/slides/slide2.xml"))
}

func TestRender_SpanningRunsWriteOneRun(t *testing.T) {
	t.Parallel()

	tpl, err := Read(pptxtest.Build(t, pptxtest.Slide(pptxtest.Shape(2, "Title", splitTitle))))
	require.NoError(t, err)

	res, err := deck.Substitute(tpl.Deck, ph, "Kim")
	require.NoError(t, err)
	require.Equal(t, 1, res.Merged)

	out, err := tpl.Render(res.Deck)
	require.NoError(t, err)
	back, err := Read(out)
	require.NoError(t, err)

	p := back.Deck.Slides[0].Shapes[0].Frame.Paragraphs[0]
	assert.Equal(t, "Dear Kim\vwell done", p.Text())
	require.Len(t, p.Runs, 3, "text, break, text")
	assert.Equal(t, deck.BreakRun, p.Runs[1].Kind)
	for _, r := range p.Runs {
		assert.Equal(t, "Garamond", r.Font.Name)
		assert.Equal(t, 32.0, r.Font.Size)
	}
	assert.Equal(t, "r", p.Format.Alignment)

	raw := string(partData(t, out, "ppt/slides/slide1.xml"))
	assert.Contains(t, raw, "<a:endParaRPr")
	assert.Less(t, bytes.Index([]byte(raw), []byte("well done")), bytes.Index([]byte(raw), []byte("<a:endParaRPr")))
}

func TestRender_GroupsAndTables(t *testing.T) {
	t.Parallel()

	table := `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="9" name="Table 1"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>` +
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl>` +
		`<a:tr h="100"><a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>Name</a:t></a:r></a:p></a:txBody></a:tc>` +
		`<a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>` + ph + `</a:t></a:r></a:p></a:txBody></a:tc></a:tr>` +
		`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`
	slide := pptxtest.Slide(
		pptxtest.Group(5, "Seal", pptxtest.Shape(6, "Seal text", `<a:p><a:r><a:t>for `+ph+`</a:t></a:r></a:p>`)),
		table,
	)
	tpl, err := Read(pptxtest.Build(t, slide))
	require.NoError(t, err)

	shapes := tpl.Deck.Slides[0].Shapes
	require.Len(t, shapes, 3)
	assert.Equal(t, "Seal text", shapes[0].Name)
	assert.Equal(t, "Table 1 r1c2", shapes[2].Name)

	res, err := deck.Substitute(tpl.Deck, ph, "Lee")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Paragraphs)

	out, err := tpl.Render(res.Deck)
	require.NoError(t, err)
	back, err := Read(out)
	require.NoError(t, err)
	assert.Equal(t, "for Lee", back.Deck.Slides[0].Shapes[0].Frame.Paragraphs[0].Text())
	assert.Equal(t, "Lee", back.Deck.Slides[0].Shapes[2].Frame.Paragraphs[0].Text())
}

func TestRender_FormatChangeWritesSchemaOrder(t *testing.T) {
	t.Parallel()

	tpl, err := Read(pptxtest.Build(t, pptxtest.Slide(pptxtest.Shape(2, "Title",
		`<a:p><a:pPr><a:buNone/></a:pPr><a:r><a:t>x</a:t></a:r></a:p>`))))
	require.NoError(t, err)

	d := tpl.Deck.Clone()
	p := d.Slides[0].Shapes[0].Frame.Paragraphs[0]
	p.Format = deck.ParagraphFormat{
		Alignment:   "just",
		SpaceAfter:  &deck.Spacing{Value: 3, Unit: deck.Points},
		LineSpacing: &deck.Spacing{Value: 150, Unit: deck.Percent},
	}
	out, err := tpl.Render(d)
	require.NoError(t, err)

	raw := string(partData(t, out, "ppt/slides/slide1.xml"))
	assert.Contains(t, raw, `<a:pPr algn="just"><a:lnSpc><a:spcPct val="150000"/></a:lnSpc><a:spcAft><a:spcPts val="300"/></a:spcAft><a:buNone/></a:pPr>`)
}

func TestRender_MismatchedDeck(t *testing.T) {
	t.Parallel()

	tpl, err := Read(pptxtest.Build(t, pptxtest.Slide(pptxtest.Shape(2, "Title", `<a:p><a:r><a:t>x</a:t></a:r></a:p>`))))
	require.NoError(t, err)

	d := tpl.Deck.Clone()
	d.Slides[0].Shapes = nil
	_, err = tpl.Render(d)
	require.ErrorIs(t, err, failure.ErrDocumentProcessing)

	_, err = tpl.Render(nil)
	require.ErrorIs(t, err, failure.ErrDocumentProcessing)
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	_, err := Read([]byte("not a zip"))
	require.ErrorIs(t, err, failure.ErrDocumentProcessing)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = Read(buf.Bytes())
	require.ErrorIs(t, err, failure.ErrDocumentProcessing)

	_, err = Open(filepath.Join(t.TempDir(), "missing.pptx"))
	require.ErrorIs(t, err, failure.ErrDocumentProcessing)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_CachesTemplates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := pptxtest.Certificate(t, dir, ph)

	s := NewStore()
	a, err := s.Load(path)
	require.NoError(t, err)
	b, err := s.Load(path)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = s.Load(filepath.Join(dir, "nope.pptx"))
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tpl, err := Open(pptxtest.Certificate(t, dir, ph))
	require.NoError(t, err)

	res, err := deck.Substitute(tpl.Deck, ph, "Ana")
	require.NoError(t, err)
	dst := filepath.Join(dir, "ana.pptx")
	require.NoError(t, tpl.WriteFile(res.Deck, dst))

	back, err := Open(dst)
	require.NoError(t, err)
	assert.Equal(t, "Awarded to Ana", back.Deck.Slides[0].Shapes[1].Frame.Paragraphs[0].Text())
}

func partData(t *testing.T, pkg []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return b
	}
	t.Fatalf("part %s not found", name)
	return nil
}
