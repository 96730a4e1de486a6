package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"jane.doe@example.com":      "jane.doe_example.com",
		"o'brien+cert@mail.example": "o_brien_cert_mail.example",
		"ünï@x.io":                  "_n__x.io",
		"a-b_c@d.e":                 "a-b_c_d.e",
		"../../etc/passwd":          ".._.._etc_passwd",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeName(in), in)
	}
}

func TestSafeName_DistinctForSafeAddresses(t *testing.T) {
	t.Parallel()

	// addresses that differ in a safe character never collide
	assert.NotEqual(t, SafeName("ann@example.com"), SafeName("anne@example.com"))
	assert.NotEqual(t, SafeName("a.b@x.io"), SafeName("a-b@x.io"))
	// addresses that differ only in unsafe characters may
	assert.Equal(t, SafeName("a+b@x.io"), SafeName("a=b@x.io"))
}

func TestFor(t *testing.T) {
	t.Parallel()

	p := For("out", "ann@example.com")
	assert.Equal(t, filepath.Join("out", "ann_example.com.pptx"), p.Document)
	assert.Equal(t, filepath.Join("out", "ann_example.com.pdf"), p.PDF)
}
