package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certmailer/internal/failure"
)

func TestChain_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var calls []string
	step := func(name string, err error) Notifier {
		return Func(func(context.Context, Delivery) error {
			calls = append(calls, name)
			return err
		})
	}
	boom := Wrap("print", errors.New("lpr: exit status 1"))

	err := Chain{step("email", nil), step("print", boom), step("never", nil)}.Notify(context.Background(), Delivery{})
	require.ErrorIs(t, err, failure.ErrDelivery)
	assert.Equal(t, []string{"email", "print"}, calls)

	require.NoError(t, Chain{}.Notify(context.Background(), Delivery{}))
}

func TestDeliveryCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pdf := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	require.NoError(t, Delivery{To: "a@example.com", Attachment: pdf}.Check())
	assert.ErrorIs(t, Delivery{Attachment: pdf}.Check(), failure.ErrDelivery)
	assert.ErrorIs(t, Delivery{To: "a@example.com"}.Check(), failure.ErrDelivery)
	assert.ErrorIs(t, Delivery{To: "a@example.com", Attachment: dir}.Check(), failure.ErrDelivery)
	err := Delivery{To: "a@example.com", Attachment: filepath.Join(dir, "b.pdf")}.Check()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Wrap("smtp", nil))
	err := Wrap("smtp", errors.New("535 auth failed"))
	assert.ErrorIs(t, err, failure.ErrDelivery)
	assert.Equal(t, "delivery error: smtp: 535 auth failed", err.Error())
	assert.Same(t, err, Wrap("other", err))
}
