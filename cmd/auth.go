package main

import (
	"context"
	"fmt"

	"github.com/djbeb/djbeb/internal/services"
	"github.com/djbeb/djbeb/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthURL prints the provider authorization URL for manual flows.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	service, err := services.NewSpotifyService(config.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create spotify service: %w", err)
	}

	state := cmd.String("state")
	if state == "" {
		state = shared.GenerateID()
	}

	r.logger.Info("generated authorization URL", "state", state)
	return r.writePlain("%s\n", service.AuthorizationURL(state))
}
