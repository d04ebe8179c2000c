package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBaseURL)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.Notify.Lifecycle)
	assert.True(t, cfg.Notify.ReadyToMerge)
	assert.False(t, cfg.Notify.AdditionalRecipients)
	assert.Equal(t, 4, cfg.Notify.FanoutLimit)
}

func TestLoadConfig_FromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prnotify.toml")
	content := `
[server]
port = 9999

[github]
webhook_secret = "hunter2"
token = "ghp_test"

[smtp]
host = "mail.internal"
from = "bot@internal"

[notify]
check_results = false
extra_emails = ["team@internal"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "hunter2", cfg.GitHub.WebhookSecret)
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
	assert.False(t, cfg.Notify.CheckResults)
	assert.True(t, cfg.Notify.Reviews, "unset keys keep their defaults")
	assert.Equal(t, []string{"team@internal"}, cfg.Notify.ExtraEmails)
}

func TestLoadConfig_MissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prnotify.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9999\n"), 0644))

	t.Setenv("PRNOTIFY_SERVER__PORT", "7777")
	t.Setenv("PRNOTIFY_NOTIFY__CHECK_RESULTS", "false")
	t.Setenv("PRNOTIFY_SMTP__HOST", "mail.override")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port, "environment wins over file")
	assert.False(t, cfg.Notify.CheckResults)
	assert.Equal(t, "mail.override", cfg.SMTP.Host)
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prnotify.toml")

	require.NoError(t, InitConfig(path))

	// The generated sample must itself load.
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "your-webhook-secret", cfg.GitHub.WebhookSecret)
	assert.True(t, cfg.Notify.Lifecycle)

	assert.Error(t, InitConfig(path), "refuses to clobber an existing file")
}

func validConfig() *Config {
	var cfg Config
	cfg.GitHub.WebhookSecret = "hunter2"
	cfg.GitHub.Token = "ghp_test"
	cfg.SMTP.Host = "mail.internal"
	cfg.SMTP.From = "bot@internal"
	cfg.Notify.FanoutLimit = 4
	return &cfg
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing webhook secret", func(c *Config) { c.GitHub.WebhookSecret = "" }},
		{"no credentials at all", func(c *Config) { c.GitHub.Token = "" }},
		{"missing smtp host", func(c *Config) { c.SMTP.Host = "" }},
		{"missing from address", func(c *Config) { c.SMTP.From = "" }},
		{"zero fanout", func(c *Config) { c.Notify.FanoutLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_AppCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.GitHub.Token = ""
	cfg.GitHub.AppID = 12345
	cfg.GitHub.PrivateKeyPath = "key.pem"

	assert.Error(t, Validate(cfg), "installation_id required with app credentials")

	cfg.GitHub.InstallationID = 67890
	assert.NoError(t, Validate(cfg))
}
