// Package printer sends certificates to a local printer with lpr.
package printer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"certmailer/internal/notify"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Printer implements notify.Notifier by printing the attachment.
type Printer struct {
	command string
	printer string
	run     Runner
}

// New returns a printer using command (default "lpr") and an optional
// destination printer passed with -P. A nil run uses ExecRunner.
func New(command, printer string, run Runner) *Printer {
	if command == "" {
		command = "lpr"
	}
	if run == nil {
		run = ExecRunner
	}
	return &Printer{command: command, printer: printer, run: run}
}

// Notify prints d.Attachment.
func (p *Printer) Notify(ctx context.Context, d notify.Delivery) error {
	if err := d.Check(); err != nil {
		return err
	}
	var args []string
	if p.printer != "" {
		args = append(args, "-P", p.printer)
	}
	args = append(args, d.Attachment)
	out, err := p.run(ctx, p.command, args...)
	if err != nil {
		return notify.Wrap("print", fmt.Errorf("%s: %w: %s", p.command, err, strings.TrimSpace(string(out))))
	}
	return nil
}
