package portal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"
)

const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"

	DefaultTimeout = time.Second * 60
)

type BrowserConfig struct {
	// RemoteUrl is the devtools websocket of an already running chrome,
	// empty launches a local one.
	RemoteUrl string `json:"remote_url"`
	Headless  *bool  `json:"headless"`
}

func (c BrowserConfig) headless() bool {
	return c.Headless == nil || *c.Headless
}

type Config struct {
	LoginUrl       string        `json:"login_url"`
	GradeUrl       string        `json:"grade_url"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	Mode           string        `json:"mode"`
	TimeoutSeconds int           `json:"timeout_seconds"`
	DebugDir       string        `json:"debug_dir"`
	Browser        BrowserConfig `json:"browser"`
}

func (c Config) Validate() error {
	if c.LoginUrl == "" {
		return fmt.Errorf("portal: login_url is required")
	}
	if c.GradeUrl == "" {
		return fmt.Errorf("portal: grade_url is required")
	}
	for _, raw := range []string{c.LoginUrl, c.GradeUrl} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("portal: %q is not an absolute url", raw)
		}
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("portal: username and password are required")
	}
	switch c.Mode {
	case "", ModeHTTP, ModeBrowser:
	default:
		return fmt.Errorf("portal: unknown mode %q", c.Mode)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("portal: timeout_seconds must not be negative")
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Scraper produces a full snapshot of the grade table or a typed failure.
type Scraper interface {
	Scrape(ctx context.Context) (grades.Snapshot, error)
}

// New returns the scraper for the configured mode.
func New(cfg Config, time chrono.TimeAPI, tel telemetry.API) (Scraper, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.Mode == ModeBrowser {
		return NewBrowserScraper(cfg, time, tel), nil
	}
	return NewHTTPScraper(cfg, time, tel)
}

// classify maps every scrape error onto one of the typed failures. Errors
// after the context ended become a TimeoutFailure, untyped errors while
// reading grades a PageStructureFailure, and anything before that an
// AuthFailure.
func classify(ctx context.Context, stage string, err error) error {
	switch {
	case IsTimeoutFailure(err):
		return err
	case ctx.Err() != nil:
		return &TimeoutFailure{Stage: stage, Err: err}
	case IsAuthFailure(err), IsPageStructureFailure(err):
		return err
	case stage == "grades":
		return &PageStructureFailure{Page: "grades", Reason: "grade page could not be read", Err: err}
	}
	return &AuthFailure{Message: "could not establish a session", Err: err}
}
