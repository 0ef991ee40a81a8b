// package services talks to the Spotify accounts and Web API hosts and answers recommendation queries
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// DefaultTimeout bounds every outbound call when no client is supplied.
	DefaultTimeout = 10 * time.Second
)

// NewHTTPClient returns an [http.Client] with a bounded timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// GenreStore provides raw rows and genre columns from storage.
type GenreStore interface {
	ListAll(ctx context.Context) ([]models.GenreRow, error)
	CountByGenre(ctx context.Context, genre string) (int, error)
	ListByGenre(ctx context.Context, genre string, offset, limit int) ([]string, error)
}

// ClientCredentialsSource issues app-level tokens.
type ClientCredentialsSource interface {
	ClientCredentialsToken(ctx context.Context) (*oauth2.Token, error)
}

// UpstreamError is a failed interaction with a Spotify host.
//
// Kind is one of the shared sentinels (ErrUpstreamAuth, ErrTokenExchange, ErrRefreshFailed, ErrUpstreamCall).
// StatusCode is 0 when no response was received; Body then holds the transport error text.
type UpstreamError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Body)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *UpstreamError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Details returns the upstream body for the {error, details} envelope.
func (e *UpstreamError) Details() string {
	return e.Body
}

// AsUpstreamError extracts an [UpstreamError] from err.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// upstreamFromOAuth converts an x/oauth2 failure into an [UpstreamError] of the given kind.
func upstreamFromOAuth(kind, err error) *UpstreamError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		ue := &UpstreamError{Kind: kind, Body: string(re.Body), Err: err}
		if re.Response != nil {
			ue.StatusCode = re.Response.StatusCode
		}
		return ue
	}
	return &UpstreamError{Kind: kind, Body: err.Error(), Err: err}
}
