package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyAuth performs the token endpoint interactions against the Spotify accounts host:
// client-credentials grants, authorization-code exchange, and refresh-token grants.
//
// Client credentials are always sent as an HTTP Basic header.
type SpotifyAuth struct {
	config     *oauth2.Config
	app        *clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewSpotifyAuth creates the OAuth exchange client from Spotify credentials.
//
// Empty endpoint URLs fall back to the public Spotify hosts; a nil client gets a 10s timeout.
func NewSpotifyAuth(cfg shared.SpotifyConfig, client *http.Client) (*SpotifyAuth, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}

	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	return &SpotifyAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		app: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: client,
		now:        time.Now,
	}, nil
}

// withClient makes x/oauth2 use our bounded client for token requests.
func (a *SpotifyAuth) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// AuthorizationURL builds the authorize-endpoint URL with response_type=code, client id,
// redirect URI and the space-joined scopes. Without explicit scopes the configured ones are used.
func (a *SpotifyAuth) AuthorizationURL(state string, scopes ...string) string {
	var opts []oauth2.AuthCodeOption
	if len(scopes) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("scope", strings.Join(scopes, " ")))
	}
	return a.config.AuthCodeURL(state, opts...)
}

// ExchangeCode trades an authorization code for a user token pair.
//
// An empty code fails with [shared.ErrMissingCode] before any request is made.
// A rejected exchange fails with an [UpstreamError] of kind [shared.ErrTokenExchange].
func (a *SpotifyAuth) ExchangeCode(ctx context.Context, code string) (*models.UserSession, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.ErrMissingCode
	}

	token, err := a.config.Exchange(a.withClient(ctx), code)
	if err != nil {
		return nil, upstreamFromOAuth(shared.ErrTokenExchange, err)
	}

	return &models.UserSession{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// RefreshAccessToken performs a refresh-token grant.
//
// The returned token carries the provider's new refresh token when one was issued,
// and the one passed in otherwise.
func (a *SpotifyAuth) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := a.config.TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, upstreamFromOAuth(shared.ErrRefreshFailed, err)
	}

	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// Refresh renews the session's access token in place.
//
// The refresh token is replaced only when the provider rotates it.
func (a *SpotifyAuth) Refresh(ctx context.Context, s *models.UserSession) error {
	if s == nil {
		return shared.ErrNoRefreshToken
	}

	token, err := a.RefreshAccessToken(ctx, s.RefreshToken)
	if err != nil {
		return err
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.Expiry = token.Expiry
	return nil
}

// RefreshIfExpired is the yes/no gate used before proxying a user call.
//
// It reports false when no refresh token is on file, true when the current access token
// is still usable, and otherwise whether a refresh succeeded. Errors are not returned.
func (a *SpotifyAuth) RefreshIfExpired(ctx context.Context, s *models.UserSession) bool {
	if s == nil || s.RefreshToken == "" {
		return false
	}
	if s.AccessTokenUsable(a.now()) {
		return true
	}
	return a.Refresh(ctx, s) == nil
}

// ClientCredentialsToken performs a client-credentials grant for an app-level token.
func (a *SpotifyAuth) ClientCredentialsToken(ctx context.Context) (*oauth2.Token, error) {
	token, err := a.app.Token(a.withClient(ctx))
	if err != nil {
		return nil, upstreamFromOAuth(shared.ErrUpstreamAuth, err)
	}
	return token, nil
}
