// Package notify delivers a finished certificate to its recipient.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"certmailer/internal/failure"
)

// Delivery is one certificate to hand over.
type Delivery struct {
	To         string // recipient address
	Name       string // recipient display name
	Subject    string
	HTML       string
	Attachment string // path of the converted artifact
}

// Notifier delivers a Delivery. Implementations make exactly one attempt and
// wrap failures with failure.ErrDelivery.
type Notifier interface {
	Notify(ctx context.Context, d Delivery) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, d Delivery) error

func (f Func) Notify(ctx context.Context, d Delivery) error { return f(ctx, d) }

// Chain runs notifiers in order and stops at the first failure.
type Chain []Notifier

func (c Chain) Notify(ctx context.Context, d Delivery) error {
	for _, n := range c {
		if err := n.Notify(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies the fields every transport relies on.
func (d Delivery) Check() error {
	if strings.TrimSpace(d.To) == "" {
		return fmt.Errorf("%w: no recipient address", failure.ErrDelivery)
	}
	if d.Attachment == "" {
		return fmt.Errorf("%w: no attachment", failure.ErrDelivery)
	}
	st, err := os.Stat(d.Attachment)
	if err != nil {
		return fmt.Errorf("%w: attachment: %w", failure.ErrDelivery, err)
	}
	if st.IsDir() {
		return fmt.Errorf("%w: attachment %s is a directory", failure.ErrDelivery, d.Attachment)
	}
	return nil
}

// Wrap marks err as a delivery failure of transport.
func Wrap(transport string, err error) error {
	if err == nil || errors.Is(err, failure.ErrDelivery) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", failure.ErrDelivery, transport, err)
}
