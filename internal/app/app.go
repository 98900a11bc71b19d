// Package app wires the configured collaborators into a checker, it is
// shared by the daemon and the cli.
package app

import (
	"context"
	"io"

	"gradewatch/internal/checker"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/notify"
	"gradewatch/internal/scrapers/portal"
	"gradewatch/internal/snapshotstore"
)

type App struct {
	Config    Config
	Time      chrono.TimeAPI
	Store     snapshotstore.Store
	Transport notify.Transport
	Checker   *checker.Checker

	storeCloser io.Closer
}

// NewTransport returns every configured channel, or a Log transport when
// none is configured.
func NewTransport(cfg NotifyConfig, tel telemetry.API) notify.Transport {
	var transports notify.Multi
	if cfg.DiscordWebhookUrl != "" {
		transports = append(transports, notify.NewDiscord(cfg.DiscordWebhookUrl, tel))
	}
	if cfg.Email.Enabled() {
		transports = append(transports, notify.NewEmail(cfg.Email, tel))
	}

	switch len(transports) {
	case 0:
		return notify.NewLog(tel)
	case 1:
		return transports[0]
	}
	return transports
}

func Build(ctx context.Context, cfg Config, tel telemetry.API) (*App, error) {
	time := chrono.NewStandardTime()

	scraper, err := portal.New(cfg.Portal, time, tel)
	if err != nil {
		return nil, err
	}
	store, closer, err := snapshotstore.Open(ctx, cfg.Store, time, tel)
	if err != nil {
		return nil, err
	}
	transport := NewTransport(cfg.Notify, tel)

	return &App{
		Config:      cfg,
		Time:        time,
		Store:       store,
		Transport:   transport,
		Checker:     checker.New(scraper, store, transport, time, tel),
		storeCloser: closer,
	}, nil
}

func (a *App) Close() error {
	return a.storeCloser.Close()
}
