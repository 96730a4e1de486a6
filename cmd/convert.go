package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"certmailer/internal/convert"
)

var convertCreds convert.Credentials

// convertCmd runs the remote conversion for a single file.
var convertCmd = &cobra.Command{
	Use:   "convert <in.pptx> <out.pdf>",
	Short: "Convert one presentation to PDF through iLovePDF",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, err := newConverter(GetConfig(), convertCreds, appLog)
		if err != nil {
			return err
		}
		if err := conv.Convert(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	credentialFlags(convertCmd, &convertCreds)
	rootCmd.AddCommand(convertCmd)
}
