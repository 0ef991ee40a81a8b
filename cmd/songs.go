package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Songs prints the recommendation table, or one page of a genre when --genre is set.
func (r *Runner) Songs(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, repo, err := r.openGenres(config)
	if err != nil {
		return err
	}
	defer db.Close()

	songs := services.NewRecommendationService(repo)

	var data []byte
	if genre := cmd.String("genre"); genre != "" {
		page := services.ParsePageRequest(strconv.Itoa(cmd.Int("offset")), strconv.Itoa(cmd.Int("limit")))

		result, err := songs.ListByGenre(ctx, genre, page, "/songs/"+genre)
		if errors.Is(err, shared.ErrInvalidGenre) {
			return fmt.Errorf("%w: %q (choose one of %s)", shared.ErrInvalidGenre, genre, strings.Join(models.Genres, ", "))
		} else if err != nil {
			return fmt.Errorf("failed to read %s: %w", genre, err)
		}

		r.logger.Debug("read genre page", "genre", genre, "offset", page.Offset, "limit", page.Limit, "total", result.TotalItems)
		data, err = formatter.Page(genre, page, result, format)
		if err != nil {
			return err
		}
	} else {
		rows, err := songs.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to read songs: %w", err)
		}

		r.logger.Debug("read all rows", "count", len(rows))
		data, err = formatter.Rows(rows, format)
		if err != nil {
			return err
		}
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %s\n", path)
	}

	return r.writePlain("%s", data)
}
