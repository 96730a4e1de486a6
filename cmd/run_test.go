package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certmailer/internal/failure"
	"certmailer/internal/ilovepdf/ilovepdftest"
	"certmailer/internal/pptx/pptxtest"
)

// execute runs the CLI with args against a fresh viper instance.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "certmailer.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestRunCommand_Batch(t *testing.T) {
	srv := ilovepdftest.New(t)
	dir := t.TempDir()
	tpl := pptxtest.Certificate(t, dir, "NAME_PLACEHOLDER")
	csvPath := filepath.Join(dir, "recipients.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Name,Email\nAda Lovelace,ada@example.com\nNobody,not-an-address\n"), 0o644))
	outDir := filepath.Join(dir, "out")

	cfg := writeConfig(t, dir, fmt.Sprintf(`app:
  log_level: error
input:
  csv_path: %q
  template_path: %q
output:
  dir: %q
ilovepdf:
  public_key: %q
  secret_key: %q
  base_url: %q
  worker_scheme: http
  retry_delay: 0s
email:
  transport: none
`, csvPath, tpl, outDir, ilovepdftest.PublicKey, ilovepdftest.SecretKey, srv.BaseURL()))

	out, err := execute(t, "--config", cfg, "run")
	require.ErrorIs(t, err, errRecipientsFailed)
	assert.Equal(t, ExitGeneral, ExitCode(err))
	assert.Contains(t, out, "Processed 2 recipients: 1 succeeded, 1 failed")
	assert.Contains(t, out, "not-an-address")

	b, err := os.ReadFile(filepath.Join(outDir, "ada_example.com.pdf"))
	require.NoError(t, err)
	assert.Equal(t, srv.Result, b)
	assert.Equal(t, 1, srv.Calls(ilovepdftest.StepDownload))
}

func TestRunCommand_MissingSettings(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "email:\n  transport: none\n")

	_, err := execute(t, "--config", cfg, "run")
	require.ErrorIs(t, err, failure.ErrConfiguration)
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, err.Error(), "output.dir")
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	tpl := pptxtest.Certificate(t, dir, "NAME_PLACEHOLDER")
	cfg := writeConfig(t, dir, "app:\n  log_level: error\n")
	dst := filepath.Join(dir, "ada.pptx")

	out, err := execute(t, "--config", cfg, "render", "--template", tpl, "Ada", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "1 paragraphs substituted")
	assert.FileExists(t, dst)

	out, err = execute(t, "--config", cfg, "inspect", dst)
	require.NoError(t, err)
	assert.Contains(t, out, `"Awarded to Ada"`)
	assert.Contains(t, out, `0 paragraphs hold "NAME_PLACEHOLDER"`)

	out, err = execute(t, "--config", cfg, "inspect", tpl)
	require.NoError(t, err)
	assert.Contains(t, out, "placeholder, single run")
}

func TestRenderCommand_WrongArgs(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "app:\n  log_level: error\n")

	_, err := execute(t, "--config", cfg, "render", "only-a-name")
	require.ErrorIs(t, err, errUsage)
	assert.Equal(t, ExitUsage, ExitCode(err))
}
