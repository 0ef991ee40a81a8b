package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// RecommendationService answers read-only queries over the genre table.
type RecommendationService struct {
	store GenreStore
}

func NewRecommendationService(store GenreStore) *RecommendationService {
	return &RecommendationService{store: store}
}

// ListAll returns every stored row.
func (s *RecommendationService) ListAll(ctx context.Context) ([]models.GenreRow, error) {
	return s.store.ListAll(ctx)
}

// ParsePageRequest reads offset and limit query values.
//
// Missing, malformed or negative numbers fall back to offset 0 and limit 10; limit is capped at 100.
func ParsePageRequest(offset, limit string) models.PageRequest {
	req := models.PageRequest{Offset: 0, Limit: DefaultPageLimit}

	if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
		req.Offset = n
	}
	if n, err := strconv.Atoi(limit); err == nil && n >= 1 {
		req.Limit = min(n, MaxPageLimit)
	}
	return req
}

// ListByGenre returns one window of the non-null values of genre.
//
// baseURL is the request path the next/prev links are built on.
func (s *RecommendationService) ListByGenre(ctx context.Context, genre string, page models.PageRequest, baseURL string) (*models.PageResult, error) {
	if !models.IsGenre(genre) {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidGenre, genre)
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Limit < 1 {
		page.Limit = DefaultPageLimit
	}

	total, err := s.store.CountByGenre(ctx, genre)
	if err != nil {
		return nil, err
	}

	results, err := s.store.ListByGenre(ctx, genre, page.Offset, page.Limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []string{}
	}

	nextOffset := page.Offset + page.Limit
	result := &models.PageResult{
		Results:    results,
		NextOffset: nextOffset,
		TotalItems: total,
		HasMore:    nextOffset < total,
		Length:     len(results),
	}

	if result.HasMore {
		next := pageURL(baseURL, nextOffset, page.Limit)
		result.Next = &next
	}
	if page.Offset > 0 {
		prev := pageURL(baseURL, max(page.Offset-page.Limit, 0), page.Limit)
		result.Prev = &prev
	}
	return result, nil
}

func pageURL(base string, offset, limit int) string {
	return fmt.Sprintf("%s?offset=%d&limit=%d", base, offset, limit)
}
