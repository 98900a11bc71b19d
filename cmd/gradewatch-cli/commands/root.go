package commands

import (
	"context"
	"fmt"
	"os"

	"gradewatch/internal/app"
	"gradewatch/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "gradewatch-cli",
	Short: "gradewatch-cli runs and inspects grade checks by hand.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", app.DefaultConfigPath, "Path to the config file, environment variables override it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := app.LoadConfig(configPath, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, telemetry.NewSlogAPI(nil))
}
