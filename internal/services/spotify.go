// Spotify Web API proxy calls made on behalf of a signed-in user
//
// Endpoints follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// APIResponse is a raw upstream response.
type APIResponse struct {
	StatusCode int
	Body       []byte
}

// JSON returns the body as raw JSON, or nil when the body is empty.
func (r *APIResponse) JSON() json.RawMessage {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	return json.RawMessage(r.Body)
}

// LibraryPage holds pagination parameters relayed verbatim to the provider.
//
// Empty fields take the provider-friendly defaults limit=20 and offset=0; After is omitted when empty.
type LibraryPage struct {
	Limit  string
	Offset string
	After  string
}

func (p LibraryPage) limit() string {
	if p.Limit == "" {
		return "20"
	}
	return p.Limit
}

func (p LibraryPage) offsetQuery() url.Values {
	q := url.Values{}
	q.Set("limit", p.limit())
	if p.Offset == "" {
		q.Set("offset", "0")
	} else {
		q.Set("offset", p.Offset)
	}
	return q
}

// PlayRequest is the optional body of a start/resume playback call.
type PlayRequest struct {
	ContextURI string          `json:"context_uri,omitempty"`
	URIs       []string        `json:"uris,omitempty"`
	Offset     json.RawMessage `json:"offset,omitempty"`
	PositionMS *int            `json:"position_ms,omitempty"`
}

// SpotifyClient forwards a fixed catalog of Web API operations with a caller-supplied bearer token.
//
// Reads succeed on 200 and player writes on 200, 202 or 204. Any other status comes back as an
// [UpstreamError] of kind [shared.ErrUpstreamCall] carrying the upstream body.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyClient creates a proxy client for the Web API at baseURL.
func NewSpotifyClient(baseURL string, client *http.Client) *SpotifyClient {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &SpotifyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// Transport failures are returned as an [UpstreamError] with StatusCode 0.
func (s *SpotifyClient) doRequest(ctx context.Context, token, method, endpoint string, query url.Values, body any) (*APIResponse, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no bearer token", shared.ErrUnauthorized)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: shared.ErrUpstreamCall, Body: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Kind: shared.ErrUpstreamCall, StatusCode: resp.StatusCode, Body: err.Error(), Err: err}
	}

	return &APIResponse{StatusCode: resp.StatusCode, Body: data}, nil
}

// expect performs the request and turns a response whose status is not in ok into an UpstreamError.
func (s *SpotifyClient) expect(ctx context.Context, token, method, endpoint string, query url.Values, body any, ok ...int) (*APIResponse, error) {
	resp, err := s.doRequest(ctx, token, method, endpoint, query, body)
	if err != nil {
		return nil, err
	}
	for _, code := range ok {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	return nil, &UpstreamError{Kind: shared.ErrUpstreamCall, StatusCode: resp.StatusCode, Body: string(resp.Body)}
}

func (s *SpotifyClient) read(ctx context.Context, token, endpoint string, query url.Values) (json.RawMessage, error) {
	resp, err := s.expect(ctx, token, http.MethodGet, endpoint, query, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return resp.JSON(), nil
}

func (s *SpotifyClient) write(ctx context.Context, token, method, endpoint string, query url.Values, body any) error {
	_, err := s.expect(ctx, token, method, endpoint, query, body,
		http.StatusNoContent, http.StatusOK, http.StatusAccepted)
	return err
}

func deviceQuery(deviceID string) url.Values {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	return q
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyClient) UserProfile(ctx context.Context, token string) (*models.SpotifyUser, error) {
	raw, err := s.read(ctx, token, "/me", nil)
	if err != nil {
		return nil, err
	}

	var user models.SpotifyUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, &UpstreamError{Kind: shared.ErrUpstreamCall, StatusCode: http.StatusOK, Body: string(raw), Err: err}
	}
	return &user, nil
}

// UserPlaylists lists the current user's playlists.
func (s *SpotifyClient) UserPlaylists(ctx context.Context, token string, page LibraryPage) (json.RawMessage, error) {
	return s.read(ctx, token, "/me/playlists", page.offsetQuery())
}

// CreatePlaylist creates a playlist owned by userID and returns the created playlist object.
func (s *SpotifyClient) CreatePlaylist(ctx context.Context, token, userID string, playlist models.NewPlaylist) (*APIResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingParameter)
	}
	endpoint := "/users/" + url.PathEscape(userID) + "/playlists"
	return s.expect(ctx, token, http.MethodPost, endpoint, nil, playlist,
		http.StatusCreated, http.StatusOK)
}

// Devices lists the user's available playback devices.
func (s *SpotifyClient) Devices(ctx context.Context, token string) (json.RawMessage, error) {
	return s.read(ctx, token, "/me/player/devices", nil)
}

// PlaybackState returns the current playback state, or nil when nothing is playing.
func (s *SpotifyClient) PlaybackState(ctx context.Context, token string) (json.RawMessage, error) {
	resp, err := s.expect(ctx, token, http.MethodGet, "/me/player", nil, nil,
		http.StatusOK, http.StatusNoContent)
	if err != nil {
		return nil, err
	}
	return resp.JSON(), nil
}

// Play starts or resumes playback, optionally on a specific device.
func (s *SpotifyClient) Play(ctx context.Context, token, deviceID string, body *PlayRequest) error {
	var payload any
	if body != nil {
		payload = body
	}
	return s.write(ctx, token, http.MethodPut, "/me/player/play", deviceQuery(deviceID), payload)
}

// Transfer moves playback to deviceID.
func (s *SpotifyClient) Transfer(ctx context.Context, token, deviceID string, play bool) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device_id", shared.ErrMissingParameter)
	}
	body := map[string]any{"device_ids": []string{deviceID}, "play": play}
	return s.write(ctx, token, http.MethodPut, "/me/player", nil, body)
}

// RepeatModes are the states accepted by [SpotifyClient.Repeat].
var RepeatModes = []string{"off", "context", "track"}

// Repeat sets the repeat mode to one of off, context or track.
func (s *SpotifyClient) Repeat(ctx context.Context, token, state, deviceID string) error {
	valid := false
	for _, m := range RepeatModes {
		valid = valid || m == state
	}
	if !valid {
		return fmt.Errorf("%w: repeat state %q", shared.ErrInvalidParameter, state)
	}

	q := deviceQuery(deviceID)
	q.Set("state", state)
	return s.write(ctx, token, http.MethodPut, "/me/player/repeat", q, nil)
}

// Shuffle turns shuffle on or off.
func (s *SpotifyClient) Shuffle(ctx context.Context, token string, state bool, deviceID string) error {
	q := deviceQuery(deviceID)
	q.Set("state", strconv.FormatBool(state))
	return s.write(ctx, token, http.MethodPut, "/me/player/shuffle", q, nil)
}

// Queue returns the currently playing item and the upcoming queue.
func (s *SpotifyClient) Queue(ctx context.Context, token string) (json.RawMessage, error) {
	return s.read(ctx, token, "/me/player/queue", nil)
}

// AddToQueue appends a track or episode URI to the queue.
func (s *SpotifyClient) AddToQueue(ctx context.Context, token, uri, deviceID string) error {
	if uri == "" {
		return fmt.Errorf("%w: uri", shared.ErrMissingParameter)
	}
	q := deviceQuery(deviceID)
	q.Set("uri", uri)
	return s.write(ctx, token, http.MethodPost, "/me/player/queue", q, nil)
}

// SavedAlbums lists albums saved in the user's library.
func (s *SpotifyClient) SavedAlbums(ctx context.Context, token string, page LibraryPage) (json.RawMessage, error) {
	return s.read(ctx, token, "/me/albums", page.offsetQuery())
}

// FollowedArtists lists followed artists using cursor pagination.
func (s *SpotifyClient) FollowedArtists(ctx context.Context, token string, page LibraryPage) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("type", "artist")
	q.Set("limit", page.limit())
	if page.After != "" {
		q.Set("after", page.After)
	}
	return s.read(ctx, token, "/me/following", q)
}

// SavedShows lists podcasts saved in the user's library.
func (s *SpotifyClient) SavedShows(ctx context.Context, token string, page LibraryPage) (json.RawMessage, error) {
	return s.read(ctx, token, "/me/shows", page.offsetQuery())
}
