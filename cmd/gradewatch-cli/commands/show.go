package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gradewatch/internal/app"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"
	"gradewatch/internal/snapshotstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showFormat string

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "table", "Output format: table, json or yaml.")
	rootCmd.AddCommand(showCmd)
}

func renderRecords(out io.Writer, records []grades.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Subject", "Grade", "Status"})
	for _, r := range records {
		t.AppendRow(table.Row{r.Subject, r.Grade, r.Status})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func writeSnapshot(out io.Writer, format string, snapshot grades.Snapshot) error {
	switch format {
	case "table":
		renderRecords(out, snapshot)
		return nil
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(snapshot)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		err := encoder.Encode(snapshot)
		if err != nil {
			return err
		}
		return encoder.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

var showCmd = &cobra.Command{
	Use:   "show [--format table|json|yaml]",
	Short: "Prints the stored baseline snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.ReadConfig(configPath, os.LookupEnv)
		if err != nil {
			return err
		}
		store, closer, err := snapshotstore.Open(
			cmd.Context(),
			cfg.Store,
			chrono.NewStandardTime(),
			telemetry.NewSlogAPI(nil),
		)
		if err != nil {
			return err
		}
		defer closer.Close()

		snapshot, found, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no snapshot has been saved yet")
		}
		if snapshot == nil {
			snapshot = grades.Snapshot{}
		}
		return writeSnapshot(os.Stdout, showFormat, snapshot)
	},
}
