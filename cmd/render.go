package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"certmailer/internal/deck"
	"certmailer/internal/pptx"
)

var renderTemplate string

// renderCmd substitutes one name without converting or sending.
var renderCmd = &cobra.Command{
	Use:   "render <name> <out.pptx>",
	Short: "Write a certificate presentation for one name",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		name, dst := args[0], args[1]
		path := renderTemplate
		if path == "" {
			path = cfg.Input.TemplatePath
		}
		if path == "" {
			return fmt.Errorf("%w: no template: pass --template or set input.template_path", errUsage)
		}

		tpl, err := pptx.Open(path)
		if err != nil {
			return err
		}
		res, err := deck.Substitute(tpl.Deck, cfg.Input.Placeholder, name)
		if err != nil {
			return err
		}
		if err := tpl.WriteFile(res.Deck, dst); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !res.Found {
			fmt.Fprintf(out, "Placeholder %q not found in %s; wrote an unchanged copy to %s\n", cfg.Input.Placeholder, path, dst)
			return nil
		}
		fmt.Fprintf(out, "Wrote %s (%d paragraphs substituted", dst, res.Paragraphs)
		if res.Merged > 0 {
			fmt.Fprintf(out, ", %d with runs merged", res.Merged)
		}
		fmt.Fprintln(out, ")")
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "template .pptx (default: input.template_path)")
	rootCmd.AddCommand(renderCmd)
}
