package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gradewatch/internal/notify"
	"gradewatch/internal/scrapers/portal"
	"gradewatch/internal/snapshotstore"
	"gradewatch/lib/configutil"
)

const (
	DefaultConfigPath    = "config.json5"
	DefaultCheckInterval = 30
	DefaultStatusListen  = "127.0.0.1:8090"
)

type NotifyConfig struct {
	DiscordWebhookUrl string             `json:"discord_webhook_url"`
	Email             notify.EmailConfig `json:"email"`
}

type StatusConfig struct {
	// Listen is the address of the status api, empty disables it.
	Listen string `json:"listen"`
}

type Config struct {
	Portal               portal.Config        `json:"portal"`
	Notify               NotifyConfig         `json:"notify"`
	Store                snapshotstore.Config `json:"store"`
	CheckIntervalMinutes int                  `json:"check_interval_minutes"`
	// Status is nil when the config does not mention it, the api then
	// listens on DefaultStatusListen.
	Status *StatusConfig `json:"status"`
}

func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

func (c Config) StatusListen() string {
	if c.Status == nil {
		return DefaultStatusListen
	}
	return c.Status.Listen
}

func (c Config) Validate() error {
	err := c.Portal.Validate()
	if err != nil {
		return err
	}
	err = c.Store.Validate()
	if err != nil {
		return err
	}
	if c.CheckIntervalMinutes <= 0 {
		return fmt.Errorf("check_interval_minutes must be positive, got %d", c.CheckIntervalMinutes)
	}
	if c.Notify.Email.Enabled() && len(c.Notify.Email.To) == 0 {
		return fmt.Errorf("notify.email.to needs at least one recipient")
	}
	return nil
}

// LookupEnv is the signature of os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// applyEnv lets the environment override credentials and endpoints so
// secrets do not have to live in the config file.
func (c *Config) applyEnv(lookup LookupEnv) error {
	overrides := []struct {
		key string
		dst *string
	}{
		{"LOGIN_URL", &c.Portal.LoginUrl},
		{"GRADE_URL", &c.Portal.GradeUrl},
		{"PORTAL_ID", &c.Portal.Username},
		{"PASSWORD", &c.Portal.Password},
		{"DISCORD_WEBHOOK_URL", &c.Notify.DiscordWebhookUrl},
	}
	for _, s := range overrides {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup("CHECK_INTERVAL"); ok && v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHECK_INTERVAL: %w", err)
		}
		c.CheckIntervalMinutes = minutes
	}
	return nil
}

// ReadConfig reads path (and its .local override) then applies defaults and
// environment overrides. A missing file is not an error, everything can
// come from the environment.
func ReadConfig(path string, lookup LookupEnv) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if cfg.CheckIntervalMinutes == 0 {
		cfg.CheckIntervalMinutes = DefaultCheckInterval
	}
	err = cfg.applyEnv(lookup)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig is ReadConfig followed by Validate.
func LoadConfig(path string, lookup LookupEnv) (Config, error) {
	cfg, err := ReadConfig(path, lookup)
	if err != nil {
		return Config{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
