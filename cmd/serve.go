package main

import (
	"context"
	"fmt"
	"io"

	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/session"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve wires storage, sessions and the Spotify clients into the HTTP app and runs it until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	db, repo, err := r.openGenres(config)
	if err != nil {
		return err
	}
	defer db.Close()

	client := r.client(config)
	auth, err := services.NewSpotifyAuth(config.Credentials.Spotify, client)
	if err != nil {
		return err
	}

	store, err := session.New(config.Session)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	app := server.NewApp(server.Options{
		Config:   config,
		Logger:   r.logger,
		Sessions: store,
		Auth:     auth,
		Tokens:   services.NewAppTokenCache(auth),
		Spotify:  services.NewSpotifyClient(config.Credentials.Spotify.APIBaseURL, client),
		Songs:    services.NewRecommendationService(repo),
		DB:       repo,
	})

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.Server.Addr()
	}

	r.logger.Info("starting moodmix",
		"addr", addr,
		"database", db.Dialect,
		"sessions", sessionBackend(config.Session),
	)

	if err := server.ListenAndServe(ctx, addr, app.Routes(), r.logger); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func sessionBackend(cfg shared.SessionConfig) string {
	if cfg.Backend == "" {
		return "cookie"
	}
	return cfg.Backend
}
