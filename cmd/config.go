package main

import (
	"context"

	"github.com/djbeb/djbeb/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit creates a config file from the embedded template.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	return r.writePlain("Edit %s with your Spotify credentials before starting the server.\n", configPath)
}

// ConfigShow prints the effective configuration with secrets redacted.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	redacted := *config
	if redacted.Spotify.ClientSecret != "" {
		redacted.Spotify.ClientSecret = "[redacted]"
	}
	if redacted.Auth.SigningSecret != "" {
		redacted.Auth.SigningSecret = "[redacted]"
	}

	return r.writeJSON(redacted, cmd.Bool("pretty"))
}
