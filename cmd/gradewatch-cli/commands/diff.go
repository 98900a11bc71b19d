package commands

import (
	"fmt"
	"io"
	"os"

	"gradewatch/internal/checker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

func renderPreview(out io.Writer, preview checker.Preview) {
	fmt.Fprintf(out, "result: %s (%d subjects scraped)\n", preview.ChangeSet.Kind.String(), len(preview.Current))

	if len(preview.Entries) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"Subject", "Before", "After"})
		for _, e := range preview.Entries {
			before := "(new)"
			if e.Before != nil {
				before = fmt.Sprintf("%s / %s", e.Before.Grade, e.Before.Status)
			}
			t.AppendRow(table.Row{
				e.Subject,
				before,
				fmt.Sprintf("%s / %s", e.After.Grade, e.After.Status),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	for _, r := range preview.Renames {
		fmt.Fprintf(out, "possible rename: %q -> %q (similarity %.2f)\n", r.From, r.To, r.Similarity)
	}
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Scrapes the portal and shows what would be reported, without notifying or saving.",
	RunE: func(cmd *cobra.Command, args []string) error {
		gradewatch, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer gradewatch.Close()

		preview, err := gradewatch.Checker.Preview(cmd.Context())
		if err != nil {
			return err
		}
		renderPreview(os.Stdout, preview)
		return nil
	},
}
