// Package attempt runs an operation under an explicit retry policy.
package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy says how often and how far apart an operation is attempted.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first. Values
	// below 1 are treated as 1.
	MaxAttempts int
	// Delay is the fixed pause between two attempts.
	Delay time.Duration
	// Sleep waits for d or until ctx is done. Nil uses a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default is three attempts three seconds apart.
func Default() Policy {
	return Policy{MaxAttempts: 3, Delay: 3 * time.Second}
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err so Run gives up without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p)
}

// Run calls fn until it succeeds, returns a permanent error, ctx is done or
// the policy is exhausted. attempt is 1-based. Run returns the number of
// attempts made and the last error.
func Run(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	b := p.backoff()

	for n := 1; ; n++ {
		err := fn(ctx, n)
		if err == nil {
			return n, nil
		}
		if IsPermanent(err) {
			return n, err
		}
		if ctx.Err() != nil {
			return n, errors.Join(err, ctx.Err())
		}
		next, stop := b.Next()
		if stop {
			return n, err
		}
		if serr := sleep(ctx, next); serr != nil {
			return n, errors.Join(err, serr)
		}
	}
}

func (p Policy) backoff() retry.Backoff {
	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	var base retry.Backoff
	if p.Delay > 0 {
		base = retry.NewConstant(p.Delay)
	} else {
		base = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	return retry.WithMaxRetries(retries, base)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
