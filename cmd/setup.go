package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Token performs a client-credentials grant and prints the resulting app token.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	auth, err := services.NewSpotifyAuth(config.Credentials.Spotify, r.client(config))
	if err != nil {
		return err
	}

	token, err := services.NewAppTokenCache(auth).Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"access_token": token.Value,
			"expires_at":   token.ExpiresAt.UTC().Format(time.RFC3339),
		}, true)
	}

	return r.writePlain("%s\n", token.Value)
}

// ConfigInit writes the embedded example configuration to --config.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	lines := []string{
		fmt.Sprintf("✓ Config written to %s", configPath),
		"Next steps:",
		"1. Set credentials.spotify client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)",
		"2. Set session.secret to at least 32 characters (or SESSION_SECRET)",
		fmt.Sprintf("3. Run 'moodmix serve -c %s'", configPath),
	}
	for _, line := range lines {
		if err := r.writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return nil
}
