package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"certmailer/internal/config"
	"certmailer/internal/convert"
	"certmailer/internal/letter"
	"certmailer/internal/pptx"
	"certmailer/internal/recipients"
	"certmailer/worker"
)

var (
	runCreds   convert.Credentials
	runWorkers int
	runNoEmail bool
	runPrint   bool
)

// runCmd processes every recipient of the CSV file.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and deliver a certificate for every recipient",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cmd.Flags().Changed("workers") {
			cfg.App.Workers = runWorkers
		}
		if runNoEmail {
			cfg.Email.Transport = config.TransportNone
		}
		if runPrint {
			cfg.Print.Enabled = true
		}
		if err := cfg.CheckBatch(); err != nil {
			return err
		}

		log := appLog
		conv, err := newConverter(cfg, runCreds, log)
		if err != nil {
			return err
		}
		notifier, err := newNotifier(cfg)
		if err != nil {
			return err
		}
		body, err := letter.Load(cfg.Email.TemplatePath, cfg.Email.Placeholder)
		if err != nil {
			return err
		}
		rs, err := recipients.ReadFile(cfg.Input.CSVPath)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		log.Info("run: recipients loaded", "count", len(rs), "csv", cfg.Input.CSVPath, "transport", cfg.Email.Transport, "print", cfg.Print.Enabled)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := &worker.CertificateWorker{
			Templates:         pptx.NewStore(),
			Converter:         conv,
			Notifier:          notifier,
			Letter:            body,
			Subject:           cfg.Email.Subject,
			TemplatePath:      cfg.Input.TemplatePath,
			Placeholder:       cfg.Input.Placeholder,
			OutputDir:         cfg.Output.Dir,
			CleanIntermediate: cfg.Output.CleanIntermediate,
			Log:               log,
		}
		s := worker.NewManager(w, cfg.App.Workers, log).Run(ctx, rs)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Processed %d recipients: %d succeeded, %d failed\n", len(rs), s.Succeeded, s.Failed)
		for _, o := range s.Outcomes {
			if !o.OK() {
				fmt.Fprintf(out, "  row %d %s: %s: %v\n", o.Recipient.Row, o.Recipient.Email, o.Stage, o.Err)
			}
		}
		if s.Failed > 0 {
			return fmt.Errorf("%w: %d of %d", errRecipientsFailed, s.Failed, len(rs))
		}
		return nil
	},
}

func init() {
	credentialFlags(runCmd, &runCreds)
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "recipients processed at once (overrides app.workers)")
	runCmd.Flags().BoolVar(&runNoEmail, "no-email", false, "skip email delivery")
	runCmd.Flags().BoolVar(&runPrint, "print", false, "print every certificate with the configured print command")
	rootCmd.AddCommand(runCmd)
}
