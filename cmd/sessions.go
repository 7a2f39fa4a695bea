package main

import (
	"context"
	"fmt"

	"github.com/djbeb/djbeb/internal/repositories"
	"github.com/djbeb/djbeb/internal/shared"
	"github.com/urfave/cli/v3"
)

// SessionsPurge deletes expired sessions from the database.
func (r *Runner) SessionsPurge(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if config.Database.Path == "" {
		return fmt.Errorf("%w: database path is not configured", shared.ErrInvalidConfig)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := repositories.NewSessionRepository(db)
	purged, err := repo.PurgeExpired()
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}

	r.logger.Info("purged expired sessions", "count", purged)
	return r.writePlain("Purged %d expired session(s).\n", purged)
}
