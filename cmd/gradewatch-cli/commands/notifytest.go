package commands

import (
	"fmt"
	"os"

	"gradewatch/internal/app"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/notify"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(notifyTestCmd)
}

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Sends a test notification through every configured channel.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.ReadConfig(configPath, os.LookupEnv)
		if err != nil {
			return err
		}
		transport := app.NewTransport(cfg.Notify, telemetry.NewSlogAPI(nil))
		err = transport.Send(cmd.Context(), notify.ComposeTest(), chrono.NewStandardTime().Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "test notification sent")
		return nil
	},
}
