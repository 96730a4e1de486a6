package markdown

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a text file with optional YAML frontmatter.
type Document struct {
	Frontmatter map[string]any
	Body        string
}

// String returns the frontmatter value for key when it is a string.
func (d Document) String(key string) string {
	if v, ok := d.Frontmatter[key].(string); ok {
		return v
	}
	return ""
}

// ParseFile reads path and splits frontmatter from body.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse splits frontmatter from body. Frontmatter is expected at the top,
// between two lines containing only "---"; without it the whole input is body.
func Parse(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, err
	}
	d := Document{Frontmatter: map[string]any{}}

	if string(peek) == "---" {
		// opening delimiter
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, err
		}
		var fm strings.Builder
		for {
			l, err := br.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return Document{}, err
			}
			if strings.TrimSpace(l) == "---" {
				break
			}
			fm.WriteString(l)
			if errors.Is(err, io.EOF) {
				break
			}
		}
		if err := yaml.Unmarshal([]byte(fm.String()), &d.Frontmatter); err != nil {
			return Document{}, err
		}
		if d.Frontmatter == nil {
			d.Frontmatter = map[string]any{}
		}
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return Document{}, err
	}
	d.Body = string(body)
	return d, nil
}
