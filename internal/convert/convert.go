// Package convert turns a presentation into a PDF through the remote
// conversion API. The whole remote workflow is one attempt; attempts are
// repeated under an attempt.Policy.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"certmailer/internal/attempt"
	"certmailer/internal/failure"
	"certmailer/internal/ilovepdf"
)

// API is the subset of the conversion service used by Converter.
// *ilovepdf.Client implements it.
type API interface {
	Auth(ctx context.Context, publicKey, secretKey string) (string, error)
	Start(ctx context.Context, token, tool string) (ilovepdf.Task, error)
	Upload(ctx context.Context, token string, t ilovepdf.Task, filePath string) (string, error)
	Process(ctx context.Context, token string, t ilovepdf.Task, tool string, files []ilovepdf.File) error
	Download(ctx context.Context, token string, t ilovepdf.Task, w io.Writer) (int64, error)
}

// Options tune a Converter.
type Options struct {
	Tool   string
	Policy attempt.Policy
	// VerifyPDF requires the downloaded artifact to parse as a PDF with at least one page.
	VerifyPDF bool
}

// Converter converts documents with retries.
type Converter struct {
	api   API
	creds Credentials
	opts  Options
	log   *slog.Logger
}

// New builds a converter. creds must already be resolved.
func New(a API, creds Credentials, opts Options, log *slog.Logger) *Converter {
	if opts.Tool == "" {
		opts.Tool = ilovepdf.ToolOfficePDF
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = attempt.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Converter{api: a, creds: creds, opts: opts, log: log}
}

// Convert converts src into dst. On success dst exists; on failure no
// partial dst is left behind and the error wraps failure.ErrRemoteService.
func (c *Converter) Convert(ctx context.Context, src, dst string) error {
	if !c.creds.Complete() {
		return fmt.Errorf("%w: conversion credentials missing", failure.ErrConfiguration)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: conversion source: %w", failure.ErrDocumentProcessing, err)
	}

	log := c.log.With("src", filepath.Base(src), "dst", dst)
	start := time.Now()
	n, err := attempt.Run(ctx, c.opts.Policy, func(ctx context.Context, n int) error {
		log.Info("convert: attempt", "attempt", n, "max", c.opts.Policy.MaxAttempts)
		err := c.once(ctx, src, dst)
		if err != nil {
			if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn("convert: remove partial artifact", "err", rmErr)
			}
			log.Warn("convert: attempt failed", "attempt", n, "err", err)
		}
		return err
	})
	if err != nil {
		log.Error("convert: giving up", "attempts", n, "err", err)
		return fmt.Errorf("%w: convert %s after %d attempts: %w", failure.ErrRemoteService, filepath.Base(src), n, err)
	}
	log.Info("convert: done", "attempts", n, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (c *Converter) once(ctx context.Context, src, dst string) error {
	token, err := c.api.Auth(ctx, c.creds.PublicKey, c.creds.SecretKey)
	if err != nil {
		return err
	}
	task, err := c.api.Start(ctx, token, c.opts.Tool)
	if err != nil {
		return err
	}
	name, err := c.api.Upload(ctx, token, task, src)
	if err != nil {
		return err
	}
	files := []ilovepdf.File{{ServerFilename: name, Filename: filepath.Base(src)}}
	if err := c.api.Process(ctx, token, task, c.opts.Tool, files); err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return attempt.Permanent(fmt.Errorf("create artifact: %w", err))
	}
	_, err = c.api.Download(ctx, token, task, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close artifact: %w", cerr)
	}
	if err != nil {
		return err
	}
	return c.check(dst)
}

// check applies the success criterion: the artifact exists and, when asked,
// is a PDF with at least one page.
func (c *Converter) check(dst string) error {
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("artifact missing after download: %w", err)
	}
	if !c.opts.VerifyPDF {
		return nil
	}
	pages, err := api.PageCountFile(dst)
	if err != nil {
		return fmt.Errorf("artifact is not a readable pdf: %w", err)
	}
	if pages < 1 {
		return errors.New("artifact pdf has no pages")
	}
	return nil
}
