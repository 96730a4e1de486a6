// Package pptx reads PowerPoint (.pptx) templates into a deck.Deck and writes
// a substituted deck back into a copy of the original package. Only the
// slide parts whose paragraphs changed are re-serialized; every other part is
// copied byte for byte.
package pptx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"

	"certmailer/internal/deck"
	"certmailer/internal/failure"
)

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"
)

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Template is a parsed .pptx package.
type Template struct {
	Path  string
	Deck  *deck.Deck
	parts []part
	index map[string]int
}

type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// Open reads and parses the template at path.
func Open(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read template %s: %w", failure.ErrDocumentProcessing, path, err)
	}
	t, err := Read(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Read parses a .pptx package held in memory.
func Read(b []byte) (*Template, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: open package: %w", failure.ErrDocumentProcessing, err)
	}
	t := &Template{index: map[string]int{}}
	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: read part %s: %w", failure.ErrDocumentProcessing, f.Name, err)
		}
		t.index[f.Name] = len(t.parts)
		t.parts = append(t.parts, part{name: f.Name, method: f.Method, modified: f.Modified, data: data})
	}
	if _, ok := t.index[presentationPart]; !ok {
		return nil, fmt.Errorf("%w: not a presentation: missing %s", failure.ErrDocumentProcessing, presentationPart)
	}

	names, err := t.slideOrder()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrDocumentProcessing, err)
	}
	t.Deck = &deck.Deck{}
	for i, name := range names {
		s, err := t.parseSlide(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", failure.ErrDocumentProcessing, name, err)
		}
		s.Number = i + 1
		t.Deck.Slides = append(t.Deck.Slides, s)
	}
	return t, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (t *Template) data(name string) ([]byte, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.parts[i].data, true
}

// slideOrder resolves p:sldIdLst through the presentation relationships.
// Packages without a usable list fall back to slide part numbering.
func (t *Template) slideOrder() ([]string, error) {
	pres, err := t.document(presentationPart)
	if err != nil {
		return nil, err
	}
	targets := map[string]string{}
	if rels, err := t.document(presentationRels); err == nil {
		for _, r := range rels.FindElements("//Relationship") {
			target := r.SelectAttrValue("Target", "")
			if strings.HasPrefix(target, "/") {
				target = strings.TrimPrefix(target, "/")
			} else {
				target = path.Join("ppt", target)
			}
			targets[r.SelectAttrValue("Id", "")] = target
		}
	}

	var names []string
	for _, id := range pres.FindElements("//p:sldIdLst/p:sldId") {
		name, ok := targets[id.SelectAttrValue("r:id", "")]
		if !ok {
			continue
		}
		if _, ok := t.index[name]; ok {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		return names, nil
	}

	type numbered struct {
		n    int
		name string
	}
	var found []numbered
	for _, p := range t.parts {
		if m := slidePartRe.FindStringSubmatch(p.name); m != nil {
			n, _ := strconv.Atoi(m[1])
			found = append(found, numbered{n, p.name})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	for _, f := range found {
		names = append(names, f.name)
	}
	return names, nil
}

func (t *Template) document(name string) (*etree.Document, error) {
	b, ok := t.data(name)
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

func spTree(doc *etree.Document) (*etree.Element, error) {
	tree := doc.FindElement("//p:cSld/p:spTree")
	if tree == nil {
		return nil, errors.New("slide has no shape tree")
	}
	return tree, nil
}

func (t *Template) parseSlide(name string) (*deck.Slide, error) {
	doc, err := t.document(name)
	if err != nil {
		return nil, err
	}
	tree, err := spTree(doc)
	if err != nil {
		return nil, err
	}
	s := &deck.Slide{Part: name}
	walkShapes(tree, func(id, shapeName string, body *etree.Element) {
		sh := &deck.Shape{ID: id, Name: shapeName}
		if body != nil {
			sh.Frame = &deck.TextFrame{}
			for _, p := range body.SelectElements("a:p") {
				sh.Frame.Paragraphs = append(sh.Frame.Paragraphs, parseParagraph(p))
			}
		}
		s.Shapes = append(s.Shapes, sh)
	})
	return s, nil
}

// Render writes d into a copy of the template package and returns the new
// .pptx bytes. d must come from this template's Deck (directly or through
// deck.Substitute): slides are matched by part name and shapes by position.
func (t *Template) Render(d *deck.Deck) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil deck", failure.ErrDocumentProcessing)
	}
	changed := map[string][]byte{}
	for _, s := range d.Slides {
		b, dirty, err := t.renderSlide(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", failure.ErrDocumentProcessing, s.Part, err)
		}
		if dirty {
			changed[s.Part] = b
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range t.parts {
		data := p.data
		if b, ok := changed[p.name]; ok {
			data = b
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: p.method, Modified: p.modified})
		if err != nil {
			return nil, fmt.Errorf("%w: write %s: %w", failure.ErrDocumentProcessing, p.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("%w: write %s: %w", failure.ErrDocumentProcessing, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close package: %w", failure.ErrDocumentProcessing, err)
	}
	return buf.Bytes(), nil
}

func (t *Template) renderSlide(s *deck.Slide) ([]byte, bool, error) {
	doc, err := t.document(s.Part)
	if err != nil {
		return nil, false, err
	}
	tree, err := spTree(doc)
	if err != nil {
		return nil, false, err
	}

	var (
		i     int
		dirty bool
		werr  error
	)
	walkShapes(tree, func(_, name string, body *etree.Element) {
		defer func() { i++ }()
		if werr != nil {
			return
		}
		if i >= len(s.Shapes) {
			werr = fmt.Errorf("shape %q not in deck", name)
			return
		}
		sh := s.Shapes[i]
		if body == nil || sh.Frame == nil {
			return
		}
		paras := body.SelectElements("a:p")
		if len(paras) != len(sh.Frame.Paragraphs) {
			werr = fmt.Errorf("shape %q: %d paragraphs in template, %d in deck", name, len(paras), len(sh.Frame.Paragraphs))
			return
		}
		for pi, el := range paras {
			current := parseParagraph(el)
			want := sh.Frame.Paragraphs[pi]
			if current.Equal(want) {
				continue
			}
			writeParagraph(el, current, want)
			dirty = true
		}
	})
	if werr != nil {
		return nil, false, werr
	}
	if i != len(s.Shapes) {
		return nil, false, fmt.Errorf("%d shapes in template, %d in deck", i, len(s.Shapes))
	}
	if !dirty {
		return nil, false, nil
	}
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// WriteFile renders d and stores the package at path.
func (t *Template) WriteFile(d *deck.Deck, path string) error {
	b, err := t.Render(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", failure.ErrDocumentProcessing, path, err)
	}
	return nil
}

// Store caches parsed templates by path so a batch parses each file once.
// Templates are never mutated after parsing, so cached values are shared.
type Store struct {
	mu    sync.Mutex
	cache map[string]*Template
}

func NewStore() *Store {
	return &Store{cache: map[string]*Template{}}
}

// Load returns the cached template for path, parsing it on first use.
// Failures are not cached.
func (s *Store) Load(path string) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.cache[path]; ok {
		return t, nil
	}
	t, err := Open(path)
	if err != nil {
		return nil, err
	}
	s.cache[path] = t
	return t, nil
}
