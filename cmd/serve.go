package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/prnotify/internal/api"
	"github.com/prnotify/internal/config"
	"github.com/prnotify/internal/github"
	"github.com/prnotify/internal/logging"
	"github.com/prnotify/internal/mailer"
	"github.com/prnotify/internal/notify"
)

// ServeCommand returns the CLI command for starting the webhook server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the prnotify webhook server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the webhook server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Log.Level)

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	tokens, err := buildTokenSource(cfg)
	if err != nil {
		return err
	}

	client := github.NewClient(cfg.GitHub.APIBaseURL, tokens)
	sender := mailer.NewSMTPSender(cfg.SMTP)
	audit := logging.NewAuditWriter(cfg.Notify.AuditDir)
	engine := notify.NewEngine(cfg.Notify, client, sender, audit)

	server := api.NewServer(port, cfg.GitHub.WebhookSecret, engine)

	log.Info().Int("port", port).Msg("Starting prnotify webhook server")
	return server.Start()
}

func buildTokenSource(cfg *config.Config) (github.TokenSource, error) {
	if cfg.GitHub.AppID != 0 && cfg.GitHub.PrivateKeyPath != "" {
		tokens, err := github.NewAppTokenSource(
			cfg.GitHub.AppID,
			cfg.GitHub.InstallationID,
			cfg.GitHub.PrivateKeyPath,
			cfg.GitHub.APIBaseURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to set up GitHub App auth: %w", err)
		}
		return tokens, nil
	}
	return github.NewStaticTokenSource(cfg.GitHub.Token), nil
}
