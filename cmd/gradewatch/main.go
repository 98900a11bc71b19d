package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"gradewatch/internal/app"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/notify"
	"gradewatch/internal/statusapi"
	"gradewatch/lib/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", app.DefaultConfigPath, "Path to the config file, environment variables override it.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	tel, shutdownTelemetry := InitTelemetry(ctx, *verbose)
	defer shutdownTelemetry()

	cfg, err := app.LoadConfig(*configPath, os.LookupEnv)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	gradewatch, err := app.Build(ctx, cfg, tel)
	if err != nil {
		serviceutil.Fatal("init gradewatch", err)
	}
	defer gradewatch.Close()

	if listen := cfg.StatusListen(); listen != "" {
		status := statusapi.New(gradewatch.Checker, gradewatch.Store, tel)
		go func() {
			err := status.ListenAndServe(ctx, listen)
			if err != nil {
				serviceutil.Fatal("status api", err)
			}
		}()
		slog.Info("status api enabled", "listen", listen)
	}

	run(ctx, gradewatch, tel)
}

func runCycle(ctx context.Context, gradewatch *app.App) {
	result, err := gradewatch.Checker.RunCheck(ctx)
	if err != nil {
		slog.Error("check cycle failed", "cycle", result.CycleID, "stage", result.Stage, "err", err.Error())
		return
	}
	slog.Info(
		"check cycle finished",
		"cycle", result.CycleID,
		"kind", result.Kind.String(),
		"changed", len(result.Changed),
		"notified", result.Notified,
		"saved", result.Saved,
	)
}

func run(ctx context.Context, gradewatch *app.App, tel telemetry.API) {
	interval := gradewatch.Config.CheckInterval()
	slog.Info("gradewatch started", "interval", interval.String())

	err := gradewatch.Transport.Send(ctx, notify.ComposeStartup(interval), gradewatch.Time.Now())
	if err != nil {
		slog.Warn("send startup notification", "err", err.Error())
	}

	runCycle(ctx, gradewatch)

	cron := chrono.NewStandardCron(tel)
	err = cron.Cron(chrono.EverySpec(interval), func() {
		runCycle(ctx, gradewatch)
	})
	if err != nil {
		serviceutil.Fatal("schedule check", err)
	}

	<-ctx.Done()

	select {
	case <-cron.Stop().Done():
	case <-time.After(time.Second * 30):
		slog.Warn("a check cycle was still running at shutdown")
	}
}
