package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Runs one check cycle now, notifying and saving like the daemon would.",
	RunE: func(cmd *cobra.Command, args []string) error {
		gradewatch, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer gradewatch.Close()

		result, err := gradewatch.Checker.RunCheck(cmd.Context())
		if err != nil {
			return fmt.Errorf("cycle %s failed during %s: %w", result.CycleID, result.Stage, err)
		}

		fmt.Fprintf(os.Stdout, "cycle %s: %s\n", result.CycleID, result.Kind.String())
		if len(result.Changed) > 0 {
			renderRecords(os.Stdout, result.Changed)
		}
		fmt.Fprintf(os.Stdout, "notified: %v, saved: %v\n", result.Notified, result.Saved)
		if result.Err != nil {
			fmt.Fprintf(os.Stdout, "notification failed: %s\n", result.Err.Error())
		}
		return nil
	},
}
