package services

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
)

// ExpirySkew is subtracted from the reported lifetime so a token never expires mid-flight.
const ExpirySkew = 60 * time.Second

// AppTokenCache holds the single app-level token for the process and refreshes it on demand.
//
// Refreshes are serialized: concurrent callers wait for the in-flight grant instead of issuing their own.
type AppTokenCache struct {
	source ClientCredentialsSource
	now    func() time.Time

	mu    sync.Mutex
	token *models.AppToken
}

// NewAppTokenCache creates an empty cache backed by source.
func NewAppTokenCache(source ClientCredentialsSource) *AppTokenCache {
	return &AppTokenCache{source: source, now: time.Now}
}

// Token returns the cached token, performing a client-credentials grant first when
// there is none or it is past its adjusted expiry.
func (c *AppTokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid(c.now()) {
		return c.token.Value, nil
	}

	token, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

// Refresh unconditionally replaces the cached token.
func (c *AppTokenCache) Refresh(ctx context.Context) (models.AppToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := c.refresh(ctx)
	if err != nil {
		return models.AppToken{}, err
	}
	return *token, nil
}

// Snapshot returns a copy of the cached token, or false when none has been fetched.
func (c *AppTokenCache) Snapshot() (models.AppToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		return models.AppToken{}, false
	}
	return *c.token, true
}

// refresh must be called with mu held. A failed grant leaves the previous token in place.
func (c *AppTokenCache) refresh(ctx context.Context) (*models.AppToken, error) {
	issuedAt := c.now()

	tok, err := c.source.ClientCredentialsToken(ctx)
	if err != nil {
		return nil, err
	}

	var lifetime time.Duration
	switch {
	case tok.ExpiresIn > 0:
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		lifetime = tok.Expiry.Sub(issuedAt)
	}

	expiresAt := issuedAt
	if lifetime > ExpirySkew {
		expiresAt = issuedAt.Add(lifetime - ExpirySkew)
	}

	c.token = &models.AppToken{Value: tok.AccessToken, ExpiresAt: expiresAt}
	return c.token, nil
}
