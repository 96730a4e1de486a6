package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"certmailer/internal/artifact"
	"certmailer/internal/failure"
	"certmailer/internal/recipients"
)

// Processor handles one recipient. *CertificateWorker implements it.
type Processor interface {
	Process(ctx context.Context, idx int, r recipients.Recipient) Outcome
}

// Summary is the terminal state of a batch.
type Summary struct {
	RunID     string
	Succeeded int
	Failed    int
	Outcomes  []Outcome // in input order
	Elapsed   time.Duration
}

// Manager runs a Processor over a recipient list, at most limit recipients
// at a time. With a limit of 1 recipients are processed one after the other
// in input order.
type Manager struct {
	proc  Processor
	limit int
	log   *slog.Logger
}

func NewManager(p Processor, limit int, log *slog.Logger) *Manager {
	if limit < 1 {
		limit = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{proc: p, limit: limit, log: log}
}

// Run processes every recipient. A failing or panicking recipient is counted
// and the batch moves on, unless the failure is fatal (configuration or
// input): the recipients not yet started are then failed without processing.
// Rows that share an artifact name (same email) never run at the same time.
func (m *Manager) Run(ctx context.Context, rs []recipients.Recipient) Summary {
	start := time.Now()
	runID := uuid.NewString()
	log := m.log.With("run_id", runID)
	outcomes := make([]Outcome, len(rs))
	var ok, failed atomic.Int64
	var fatal atomic.Pointer[error]
	locks := artifactLocks(rs)

	log.Info("manager: batch start", "recipients", len(rs), "workers", m.limit)
	var g errgroup.Group
	g.SetLimit(m.limit)
	for i, r := range rs {
		g.Go(func() error {
			mu := locks[artifact.SafeName(r.Email)]
			mu.Lock()
			defer mu.Unlock()

			var o Outcome
			if cause := fatal.Load(); cause != nil {
				o = Outcome{Index: i, Recipient: r, Stage: StageStart, Err: fmt.Errorf("skipped: %w", *cause)}
			} else {
				o = m.one(ctx, log, i, r)
				if failure.IsFatal(o.Err) && fatal.CompareAndSwap(nil, &o.Err) {
					log.Error("manager: fatal failure, skipping remaining recipients", "row", r.Row, "err", o.Err)
				}
			}
			outcomes[i] = o
			if o.OK() {
				ok.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s := Summary{
		RunID:     runID,
		Succeeded: int(ok.Load()),
		Failed:    int(failed.Load()),
		Outcomes:  outcomes,
		Elapsed:   time.Since(start),
	}
	log.Info("manager: batch complete", "succeeded", s.Succeeded, "failed", s.Failed, "elapsed", s.Elapsed.Round(time.Millisecond))
	return s
}

// artifactLocks returns one mutex per artifact name. The map is complete
// before any goroutine starts, so it is only read concurrently.
func artifactLocks(rs []recipients.Recipient) map[string]*sync.Mutex {
	locks := make(map[string]*sync.Mutex, len(rs))
	for _, r := range rs {
		key := artifact.SafeName(r.Email)
		if _, ok := locks[key]; !ok {
			locks[key] = &sync.Mutex{}
		}
	}
	return locks
}

func (m *Manager) one(ctx context.Context, log *slog.Logger, i int, r recipients.Recipient) (o Outcome) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("manager: recipient panicked", "row", r.Row, "email", r.Email, "panic", v, "stack", string(debug.Stack()))
			o = Outcome{Index: i, Recipient: r, Stage: StageStart, Err: fmt.Errorf("panic: %v", v)}
		}
	}()
	return m.proc.Process(ctx, i, r)
}
