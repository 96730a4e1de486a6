package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"certmailer/internal/artifact"
	"certmailer/internal/deck"
	"certmailer/internal/failure"
	"certmailer/internal/letter"
	"certmailer/internal/notify"
	"certmailer/internal/pptx"
	"certmailer/internal/recipients"
)

// Stage is a step of the per-recipient pipeline.
type Stage string

const (
	StageStart      Stage = "start"
	StageSubstitute Stage = "substitute"
	StageConvert    Stage = "convert"
	StageNotify     Stage = "notify"
	StageDone       Stage = "done"
)

// Outcome is the result of one recipient. Stage is StageDone on success and
// the stage that failed otherwise.
type Outcome struct {
	Index     int
	Recipient recipients.Recipient
	Stage     Stage
	Artifact  string
	Found     bool
	Err       error
	Duration  time.Duration
}

// OK reports whether the recipient went through every stage.
func (o Outcome) OK() bool { return o.Err == nil && o.Stage == StageDone }

// Templates loads certificate templates; *pptx.Store implements it.
type Templates interface {
	Load(path string) (*pptx.Template, error)
}

// Converter turns the substituted presentation into the artifact.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// CertificateWorker runs substitute, convert and notify for one recipient.
type CertificateWorker struct {
	Templates         Templates
	Converter         Converter
	Notifier          notify.Notifier // nil skips delivery
	Letter            *letter.Template
	Subject           string
	TemplatePath      string // used when the row names no template
	Placeholder       string
	OutputDir         string
	CleanIntermediate bool
	Now               func() time.Time
	Log               *slog.Logger
}

// Process runs the pipeline for r. Stages run in order and the first failure
// ends the pipeline; later stages are not attempted.
func (w *CertificateWorker) Process(ctx context.Context, idx int, r recipients.Recipient) Outcome {
	start := w.now()
	out := Outcome{Index: idx, Recipient: r, Stage: StageStart}
	log := w.logger().With("row", r.Row, "email", r.Email)
	log.Info("worker: start", "name", r.Name)

	finish := func(stage Stage, err error) Outcome {
		out.Stage, out.Err = stage, err
		out.Duration = w.now().Sub(start)
		if err != nil {
			log.Error("worker: recipient failed", "stage", stage, "kind", failure.KindOf(err), "err", err)
		} else {
			log.Info("worker: recipient done", "artifact", out.Artifact, "elapsed", out.Duration.Round(time.Millisecond))
		}
		return out
	}

	if err := r.Validate(); err != nil {
		return finish(StageStart, err)
	}
	paths := artifact.For(w.OutputDir, r.Email)

	found, err := w.substitute(r, paths.Document, log)
	out.Found = found
	if err != nil {
		return finish(StageSubstitute, err)
	}

	if err := w.Converter.Convert(ctx, paths.Document, paths.PDF); err != nil {
		return finish(StageConvert, err)
	}
	out.Artifact = paths.PDF

	if w.Notifier != nil {
		d := notify.Delivery{
			To:         r.Email,
			Name:       r.Name,
			Subject:    w.Letter.SubjectFor(w.Subject, letter.Vars{Name: r.Name, Email: r.Email, Now: w.now()}),
			HTML:       w.Letter.Body(r.Name),
			Attachment: paths.PDF,
		}
		if err := w.Notifier.Notify(ctx, d); err != nil {
			return finish(StageNotify, err)
		}
		log.Info("worker: delivered", "subject", d.Subject)
	}

	if w.CleanIntermediate {
		if err := os.Remove(paths.Document); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("worker: remove intermediate", "err", err)
		}
	}
	return finish(StageDone, nil)
}

func (w *CertificateWorker) substitute(r recipients.Recipient, dst string, log *slog.Logger) (bool, error) {
	path := w.TemplatePath
	if r.Template != "" {
		path = r.Template
	}
	tpl, err := w.Templates.Load(path)
	if err != nil {
		return false, err
	}
	res, err := deck.Substitute(tpl.Deck, w.Placeholder, r.Name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	switch {
	case !res.Found:
		log.Warn("worker: placeholder not found", "placeholder", w.Placeholder, "template", path)
	case res.Merged > 0:
		log.Warn("worker: placeholder spans runs, kept formatting of the first run only", "paragraphs", res.Merged)
	default:
		log.Info("worker: substituted", "paragraphs", res.Paragraphs)
	}
	if err := tpl.WriteFile(res.Deck, dst); err != nil {
		return res.Found, err
	}
	return res.Found, nil
}

func (w *CertificateWorker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *CertificateWorker) logger() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}
