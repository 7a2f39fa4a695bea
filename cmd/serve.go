package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/djbeb/djbeb/internal/repositories"
	"github.com/djbeb/djbeb/internal/server"
	"github.com/djbeb/djbeb/internal/services"
	"github.com/djbeb/djbeb/internal/shared"
	"github.com/djbeb/djbeb/internal/tokens"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Serve builds the full request pipeline from configuration and runs the
// HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = int(port)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	service, err := services.NewSpotifyService(config.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create spotify service: %w", err)
	}

	var store tokens.Store
	var issuer *tokens.Issuer

	switch config.Auth.Mode {
	case shared.AuthModeBearer:
		issuer, err = tokens.NewIssuer(config.Auth.SigningSecret, config.Auth.CredentialTTL.Duration)
		if err != nil {
			return fmt.Errorf("failed to create credential issuer: %w", err)
		}
	case shared.AuthModeSession:
		sessionTTL := config.Auth.SessionTTL.Duration
		if config.Database.Path != "" {
			db, err := shared.NewDatabase(config.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			if err := shared.RunMigrations(db); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			store = tokens.NewSQLiteStore(repositories.NewSessionRepository(db), sessionTTL)
			r.logger.Info("using sqlite session store", "path", config.Database.Path)
		} else {
			store = tokens.NewMemoryStore(sessionTTL)
			r.logger.Info("using in-memory session store")
		}
	}

	router := server.NewBasicRouter()
	router.Use(server.ResolveCredential(store, issuer, config.Auth.SessionCookie))

	handler := server.NewSpotifyHandler(server.SpotifyHandlerOpts{
		Service:     service,
		Store:       store,
		Issuer:      issuer,
		Logger:      r.logger,
		Mode:        config.Auth.Mode,
		FrontendURL: config.Server.FrontendURL,
		CookieName:  config.Auth.SessionCookie,
		SessionTTL:  config.Auth.SessionTTL.Duration,
	})
	handler.Register(router)

	limiter := server.NewRateLimiter(rate.Limit(10), 20)

	// CORS sits outermost so preflight requests short-circuit before the
	// method-qualified mux rejects them.
	var h http.Handler = router
	h = limiter.Middleware()(h)
	h = server.Recover(r.logger)(h)
	h = server.Logging(r.logger)(h)
	h = server.CORS(config.Server.FrontendURL)(h)

	srv := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", srv.Addr, "mode", config.Auth.Mode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}
