package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/cobra"

	"certmailer/internal/deck"
	"certmailer/internal/failure"
	"certmailer/internal/pptx"
)

// inspectCmd shows where the placeholder sits in a template, or the page
// count of a converted certificate.
var inspectCmd = &cobra.Command{
	Use:   "inspect <template.pptx|certificate.pdf>",
	Short: "Show the text frames of a template, or the pages of a PDF",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		out := cmd.OutOrStdout()
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			n, err := api.PageCountFile(path)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", failure.ErrDocumentProcessing, path, err)
			}
			fmt.Fprintf(out, "%s: %d pages\n", path, n)
			return nil
		}

		tpl, err := pptx.Open(path)
		if err != nil {
			return err
		}
		placeholder := GetConfig().Input.Placeholder
		hits := 0
		for _, s := range tpl.Deck.Slides {
			fmt.Fprintf(out, "slide %d (%s)\n", s.Number, s.Part)
			for _, sh := range s.Shapes {
				if sh.Frame == nil {
					fmt.Fprintf(out, "  [%s] %s: no text\n", sh.ID, sh.Name)
					continue
				}
				fmt.Fprintf(out, "  [%s] %s\n", sh.ID, sh.Name)
				for _, p := range sh.Frame.Paragraphs {
					mark := ""
					if at := p.Locate(placeholder); at != deck.Absent {
						hits++
						mark = "  <- placeholder, " + at.String()
					}
					fmt.Fprintf(out, "    %q (%d runs)%s\n", p.Text(), len(p.Runs), mark)
				}
			}
		}
		fmt.Fprintf(out, "%d paragraphs hold %q\n", hits, placeholder)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
