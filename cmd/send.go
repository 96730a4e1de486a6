package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"certmailer/internal/config"
	"certmailer/internal/failure"
	"certmailer/internal/letter"
	"certmailer/internal/notify"
	"certmailer/internal/recipients"
)

// sendCmd delivers an existing artifact through the configured notifiers.
var sendCmd = &cobra.Command{
	Use:   "send <email> <name> <attachment>",
	Short: "Deliver an existing certificate to one recipient",
	Args:  exactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		r := recipients.Recipient{Email: args[0], Name: args[1]}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		if err := cfg.CheckDelivery(); err != nil {
			return err
		}
		n, err := newNotifier(cfg)
		if err != nil {
			return err
		}
		if n == nil {
			return fmt.Errorf("%w: email.transport is %q and printing is disabled", failure.ErrConfiguration, config.TransportNone)
		}
		body, err := letter.Load(cfg.Email.TemplatePath, cfg.Email.Placeholder)
		if err != nil {
			return err
		}

		d := notify.Delivery{
			To:         r.Email,
			Name:       r.Name,
			Subject:    body.SubjectFor(cfg.Email.Subject, letter.Vars{Name: r.Name, Email: r.Email, Now: time.Now()}),
			HTML:       body.Body(r.Name),
			Attachment: args[2],
		}
		if err := n.Notify(cmd.Context(), d); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Delivered %s to %s\n", args[2], r.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
