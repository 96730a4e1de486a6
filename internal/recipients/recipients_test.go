package recipients

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certmailer/internal/failure"
)

func TestRead_OrderAndColumns(t *testing.T) {
	t.Parallel()

	in := "\ufeffId, Email ,NAME,Template\n" +
		"1,ann@example.com,Ann Lee,\n" +
		"\n" +
		"2, bo@example.com ,\"Bo, Jr.\",alt.pptx\n" +
		"3,cy@example.com,Cy\n"
	rs, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rs, 3)

	assert.Equal(t, Recipient{Row: 1, Name: "Ann Lee", Email: "ann@example.com"}, rs[0])
	assert.Equal(t, Recipient{Row: 2, Name: "Bo, Jr.", Email: "bo@example.com", Template: "alt.pptx"}, rs[1])
	assert.Equal(t, "Cy", rs[2].Name)
	assert.Empty(t, rs[2].Template)
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"empty":         "",
		"missing email": "name,address\nAnn,ann@example.com\n",
		"bad quoting":   "name,email\n\"Ann,ann@example.com\n",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(strings.NewReader(in))
			require.ErrorIs(t, err, failure.ErrInputRead)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(p, []byte("name,email\nAnn,ann@example.com\n"), 0o644))

	rs, err := ReadFile(p)
	require.NoError(t, err)
	assert.Len(t, rs, 1)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, failure.ErrInputRead)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecipientValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Recipient{Row: 1, Name: "Ann", Email: "ann@example.com"}.Validate())
	assert.ErrorIs(t, Recipient{Row: 2, Name: " ", Email: "ann@example.com"}.Validate(), failure.ErrRecipient)
	assert.ErrorIs(t, Recipient{Row: 3, Name: "Ann", Email: "not-an-address"}.Validate(), failure.ErrRecipient)

	err := Recipient{Row: 4, Name: "Ann", Email: "Ann <ann@example.com>"}.Validate()
	require.ErrorIs(t, err, failure.ErrRecipient)
	assert.Contains(t, err.Error(), `"ann@example.com"`)
}
