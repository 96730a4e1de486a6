package convert

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certmailer/internal/attempt"
	"certmailer/internal/failure"
	"certmailer/internal/ilovepdf"
	"certmailer/internal/ilovepdf/ilovepdftest"
	"certmailer/internal/logger"
)

var testCreds = Credentials{PublicKey: ilovepdftest.PublicKey, SecretKey: ilovepdftest.SecretKey}

type fakeClock struct{ slept []time.Duration }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return nil
}

func newConverter(t *testing.T, srv *ilovepdftest.Server, clock *fakeClock, verify bool) *Converter {
	t.Helper()
	p := attempt.Default()
	p.Sleep = clock.Sleep
	client := ilovepdf.New(srv.BaseURL(), 5*time.Second).WithWorkerScheme("http")
	return New(client, testCreds, Options{Policy: p, VerifyPDF: verify}, logger.NewNope())
}

func source(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "ann_example.com.pptx")
	require.NoError(t, os.WriteFile(src, []byte("pptx"), 0o644))
	return src, filepath.Join(dir, "ann_example.com.pdf")
}

func TestConvert_FirstAttempt(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	clock := &fakeClock{}
	src, dst := source(t)

	require.NoError(t, newConverter(t, srv, clock, false).Convert(context.Background(), src, dst))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, srv.Result, b)
	assert.Empty(t, clock.slept)
	assert.Equal(t, 1, srv.Calls(ilovepdftest.StepDownload))
	assert.Equal(t, []string{"ann_example.com.pptx"}, srv.Uploads())
}

func TestConvert_FailsTwiceThenSucceeds(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	srv.FailNext(ilovepdftest.StepUpload, 2)
	clock := &fakeClock{}
	src, dst := source(t)

	require.NoError(t, newConverter(t, srv, clock, false).Convert(context.Background(), src, dst))

	assert.Equal(t, 3, srv.Calls(ilovepdftest.StepAuth), "every attempt restarts from auth")
	assert.Equal(t, 3, srv.Calls(ilovepdftest.StepUpload))
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, clock.slept)
	assert.FileExists(t, dst)
}

func TestConvert_AlwaysFails(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	srv.FailNext(ilovepdftest.StepProcess, 100)
	clock := &fakeClock{}
	src, dst := source(t)

	err := newConverter(t, srv, clock, false).Convert(context.Background(), src, dst)
	require.ErrorIs(t, err, failure.ErrRemoteService)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, srv.Calls(ilovepdftest.StepProcess))
	assert.Len(t, clock.slept, 2)
	assert.NoFileExists(t, dst)
}

func TestConvert_AuthFailureIsRetried(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	srv.FailNext(ilovepdftest.StepAuth, 1)
	src, dst := source(t)

	require.NoError(t, newConverter(t, srv, &fakeClock{}, false).Convert(context.Background(), src, dst))
	assert.Equal(t, 2, srv.Calls(ilovepdftest.StepAuth))
}

func TestConvert_VerifyRejectsNonPDF(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	src, dst := source(t)

	err := newConverter(t, srv, &fakeClock{}, true).Convert(context.Background(), src, dst)
	require.ErrorIs(t, err, failure.ErrRemoteService)
	assert.Contains(t, err.Error(), "not a readable pdf")
	assert.NoFileExists(t, dst)
}

// vanishingAPI reports a successful download but deletes the artifact the
// first time, the way a misbehaving filesystem or antivirus would.
type vanishingAPI struct {
	API
	vanished bool
}

func (v *vanishingAPI) Download(ctx context.Context, token string, t ilovepdf.Task, w io.Writer) (int64, error) {
	n, err := v.API.Download(ctx, token, t, w)
	if f, ok := w.(*os.File); ok && !v.vanished {
		v.vanished = true
		_ = os.Remove(f.Name())
	}
	return n, err
}

func TestConvert_MissingArtifactIsRetryable(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	clock := &fakeClock{}
	src, dst := source(t)

	a := &vanishingAPI{API: ilovepdf.New(srv.BaseURL(), time.Second).WithWorkerScheme("http")}
	p := attempt.Default()
	p.Sleep = clock.Sleep
	c := New(a, testCreds, Options{Policy: p}, logger.NewNope())

	require.NoError(t, c.Convert(context.Background(), src, dst))
	assert.Equal(t, 2, srv.Calls(ilovepdftest.StepDownload))
	assert.Len(t, clock.slept, 1)
}

func TestConvert_UnwritableDestinationIsNotRetried(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	clock := &fakeClock{}
	src, _ := source(t)
	dst := filepath.Join(t.TempDir(), "missing", "ann_example.com.pdf")

	err := newConverter(t, srv, clock, false).Convert(context.Background(), src, dst)
	require.ErrorIs(t, err, failure.ErrRemoteService)
	assert.Contains(t, err.Error(), "after 1 attempts")
	assert.Empty(t, clock.slept)
	assert.Equal(t, 1, srv.Calls(ilovepdftest.StepAuth))
}

func TestConvert_Preconditions(t *testing.T) {
	t.Parallel()

	srv := ilovepdftest.New(t)
	src, dst := source(t)
	client := ilovepdf.New(srv.BaseURL(), time.Second)

	err := New(client, Credentials{}, Options{}, logger.NewNope()).Convert(context.Background(), src, dst)
	require.ErrorIs(t, err, failure.ErrConfiguration)

	err = New(client, testCreds, Options{}, logger.NewNope()).Convert(context.Background(), src+".missing", dst)
	require.ErrorIs(t, err, failure.ErrDocumentProcessing)

	assert.Zero(t, srv.Calls(ilovepdftest.StepAuth))
}

func TestResolveCredentials(t *testing.T) {
	t.Parallel()

	env := map[string]string{EnvPublicKey: "env-pub", EnvSecretKey: "env-sec"}
	getenv := func(k string) string { return env[k] }
	flags := Credentials{PublicKey: "flag-pub", SecretKey: "flag-sec"}
	file := Credentials{PublicKey: "file-pub", SecretKey: "file-sec"}

	got, err := ResolveCredentials(flags, file, getenv)
	require.NoError(t, err)
	assert.Equal(t, flags, got)

	got, err = ResolveCredentials(Credentials{PublicKey: "only-pub"}, file, getenv)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	got, err = ResolveCredentials(Credentials{}, Credentials{}, getenv)
	require.NoError(t, err)
	assert.Equal(t, Credentials{PublicKey: "env-pub", SecretKey: "env-sec"}, got)

	_, err = ResolveCredentials(Credentials{}, Credentials{SecretKey: "x"}, func(string) string { return "" })
	require.ErrorIs(t, err, failure.ErrConfiguration)
}
