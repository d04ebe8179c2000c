package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`

	GitHub GitHub `koanf:"github"`
	SMTP   SMTP   `koanf:"smtp"`
	Notify Notify `koanf:"notify"`
}

// GitHub holds GitHub App credentials and API settings. When AppID and
// PrivateKeyPath are set, requests authenticate with an installation token;
// otherwise Token is used as a static PAT.
type GitHub struct {
	AppID          int64  `koanf:"app_id"`
	InstallationID int64  `koanf:"installation_id"`
	PrivateKeyPath string `koanf:"private_key_path"`
	WebhookSecret  string `koanf:"webhook_secret"`
	Token          string `koanf:"token"`
	APIBaseURL     string `koanf:"api_base_url"`
}

// SMTP holds outbound mail settings.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Notify holds the notification switches consumed by the gate and the
// recipient resolver.
type Notify struct {
	Lifecycle    bool `koanf:"lifecycle"`
	Reviews      bool `koanf:"reviews"`
	Comments     bool `koanf:"comments"`
	CheckResults bool `koanf:"check_results"`
	Updates      bool `koanf:"updates"`
	Deployments  bool `koanf:"deployments"`

	// ReadyToMerge gates the synthesized ready-to-merge notification
	// independently of the categories that trigger its evaluation.
	ReadyToMerge bool `koanf:"ready_to_merge"`

	AdditionalRecipients bool     `koanf:"additional_recipients"`
	ExtraEmails          []string `koanf:"extra_emails"`
	ExtraUsernames       []string `koanf:"extra_usernames"`

	FanoutLimit int    `koanf:"fanout_limit"`
	AuditDir    string `koanf:"audit_dir"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                  8888,
		"log.level":                    "info",
		"github.api_base_url":          "https://api.github.com",
		"smtp.port":                    587,
		"notify.lifecycle":             true,
		"notify.reviews":               true,
		"notify.comments":              true,
		"notify.check_results":         true,
		"notify.updates":               true,
		"notify.deployments":           true,
		"notify.ready_to_merge":        true,
		"notify.additional_recipients": false,
		"notify.fanout_limit":          4,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations - prioritize prdata directory for containerized environments
		defaultPaths := []string{"./prdata/prnotify.toml", "./prnotify.toml", "$HOME/.prnotify.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix PRNOTIFY_.
	// Double underscore separates nesting levels so that keys like
	// notify.check_results stay addressable (PRNOTIFY_NOTIFY__CHECK_RESULTS).
	k.Load(env.Provider("PRNOTIFY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PRNOTIFY_")), "__", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	// Create sample configuration
	sampleConfig := `# prnotify Configuration

[server]
port = 8888

[github]
app_id = 0
installation_id = 0
private_key_path = "prnotify-app.private-key.pem"
webhook_secret = "your-webhook-secret"
# token = "ghp_..."  # static PAT fallback for development

[smtp]
host = "smtp.example.com"
port = 587
username = "notifications@example.com"
password = "your-smtp-password"
from = "PR Notify <notifications@example.com>"

[notify]
lifecycle = true
reviews = true
comments = true
check_results = true
updates = true
deployments = true
ready_to_merge = true
additional_recipients = false
extra_emails = []
extra_usernames = []
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.GitHub.WebhookSecret == "" {
		return fmt.Errorf("github webhook_secret is required")
	}

	if config.GitHub.Token == "" {
		if config.GitHub.AppID == 0 || config.GitHub.PrivateKeyPath == "" {
			return fmt.Errorf("github credentials are required: set app_id and private_key_path, or a token")
		}
		if config.GitHub.InstallationID == 0 {
			return fmt.Errorf("github installation_id is required when using app credentials")
		}
	}

	if config.SMTP.Host == "" {
		return fmt.Errorf("smtp host is required")
	}
	if config.SMTP.From == "" {
		return fmt.Errorf("smtp from address is required")
	}

	if config.Notify.FanoutLimit < 1 {
		return fmt.Errorf("notify fanout_limit must be at least 1")
	}

	return nil
}
