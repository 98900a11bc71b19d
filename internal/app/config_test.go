package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/notify"

	"github.com/stretchr/testify/require"
)

func env(values map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadConfigFromEnvOnly(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json5"), env(map[string]string{
		"LOGIN_URL":           "https://portal.example.com/login",
		"GRADE_URL":           "https://portal.example.com/grades",
		"PORTAL_ID":           "2020123456",
		"PASSWORD":            "hunter2",
		"DISCORD_WEBHOOK_URL": "https://discord.com/api/webhooks/1/abc",
	}))
	require.NoError(t, err)
	require.Equal(t, "2020123456", cfg.Portal.Username)
	require.Equal(t, 30*time.Minute, cfg.CheckInterval())
	require.Equal(t, DefaultStatusListen, cfg.StatusListen())
	require.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.Notify.DiscordWebhookUrl)
}

func TestLoadConfigFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// committed defaults
		portal: {
			login_url: "https://portal.example.com/login",
			grade_url: "https://portal.example.com/grades",
			mode: "browser",
		},
		store: { kind: "sqlite", path: "data/grades.db" },
		check_interval_minutes: 10,
		status: { listen: "" },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		portal: { username: "2020123456", password: "from-file" },
	}`), 0644))

	cfg, err := LoadConfig(path, env(map[string]string{
		"PASSWORD":       "from-env",
		"CHECK_INTERVAL": "45",
	}))
	require.NoError(t, err)
	require.Equal(t, "browser", cfg.Portal.Mode)
	require.Equal(t, "2020123456", cfg.Portal.Username)
	require.Equal(t, "from-env", cfg.Portal.Password)
	require.Equal(t, "sqlite", cfg.Store.Kind)
	require.Equal(t, 45*time.Minute, cfg.CheckInterval())
	require.Equal(t, "", cfg.StatusListen())
}

func TestLoadConfigInvalid(t *testing.T) {
	base := map[string]string{
		"LOGIN_URL": "https://portal.example.com/login",
		"GRADE_URL": "https://portal.example.com/grades",
		"PORTAL_ID": "2020123456",
		"PASSWORD":  "hunter2",
	}
	path := filepath.Join(t.TempDir(), "config.json5")

	missing := map[string]string{}
	for k, v := range base {
		if k != "PASSWORD" {
			missing[k] = v
		}
	}
	_, err := LoadConfig(path, env(missing))
	require.Error(t, err)

	for _, interval := range []string{"0", "-5", "soon"} {
		withInterval := map[string]string{"CHECK_INTERVAL": interval}
		for k, v := range base {
			withInterval[k] = v
		}
		_, err = LoadConfig(path, env(withInterval))
		require.Error(t, err, interval)
	}
}

func TestNewTransport(t *testing.T) {
	tel := telemetry.NewTestAPI()

	_, isLog := NewTransport(NotifyConfig{}, tel).(notify.Log)
	require.True(t, isLog)

	_, isDiscord := NewTransport(NotifyConfig{
		DiscordWebhookUrl: "https://discord.com/api/webhooks/1/abc",
	}, tel).(notify.Discord)
	require.True(t, isDiscord)

	multi, isMulti := NewTransport(NotifyConfig{
		DiscordWebhookUrl: "https://discord.com/api/webhooks/1/abc",
		Email: notify.EmailConfig{
			Server: "smtp.example.com",
			Port:   587,
			To:     []string{"student@example.com"},
		},
	}, tel).(notify.Multi)
	require.True(t, isMulti)
	require.Len(t, multi, 2)
}
