package main

import (
	"context"
	"log/slog"
	"time"

	"gradewatch/internal/components/telemetry"
	"gradewatch/lib/serviceutil"
)

// InitTelemetry sets up logging and otel, the returned func flushes and
// shuts the providers down.
func InitTelemetry(ctx context.Context, verbose bool) (telemetry.API, func()) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	providers, err := telemetry.SetupFromEnv(ctx, "gradewatch")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}

	tel := telemetry.NewSlogAPI(nil)
	telemetry.InstrumentPerfStats(ctx, tel)

	return tel, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := providers.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err.Error())
		}
	}
}
