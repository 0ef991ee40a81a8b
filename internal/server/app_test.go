package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/session"
	"github.com/desertthunder/moodmix/internal/shared"
	tu "github.com/desertthunder/moodmix/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness runs the full route table against an in-memory database and a fake Spotify.
type harness struct {
	fake   *tu.FakeSpotify
	db     *shared.Database
	store  session.Store
	app    *App
	server *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fake := tu.NewFakeSpotify(t)
	db := tu.NewGenreDB(t)

	cfg := shared.DefaultConfig()
	cfg.Credentials.Spotify = fake.Config()
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	auth, err := services.NewSpotifyAuth(cfg.Credentials.Spotify, fake.Server.Client())
	require.NoError(t, err)

	store, err := session.NewCookieStore(cfg.Session)
	require.NoError(t, err)

	repo, err := repositories.NewGenreRepository(db, tu.GenreTable)
	require.NoError(t, err)

	app := NewApp(Options{
		Config:   cfg,
		Logger:   shared.NewLogger(io.Discard),
		Sessions: store,
		Auth:     auth,
		Tokens:   services.NewAppTokenCache(auth),
		Spotify:  services.NewSpotifyClient(fake.APIBaseURL(), fake.Server.Client()),
		Songs:    services.NewRecommendationService(repo),
		DB:       repo,
	})

	srv := httptest.NewServer(app.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &harness{fake: fake, db: db, store: store, app: app, server: srv, client: client}
}

func (h *harness) do(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

// setSession stores us in the client's cookie jar as if a previous request had saved it.
func (h *harness) setSession(t *testing.T, us *models.UserSession) {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, h.store.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), us))

	u, err := url.Parse(h.server.URL)
	require.NoError(t, err)
	h.client.Jar.SetCookies(u, rec.Result().Cookies())
}

// login signs in with a token pair valid for an hour.
func (h *harness) login(t *testing.T) {
	t.Helper()
	h.setSession(t, &models.UserSession{
		AccessToken:  "user_access",
		RefreshToken: "user_refresh",
		Expiry:       time.Now().Add(time.Hour),
	})
}

func TestSongs(t *testing.T) {
	t.Run("first page of a genre", func(t *testing.T) {
		h := newHarness(t)
		tu.InsertSongs(t, h.db, "sad_music", "Hurt", "Mad World", "Creep", "Everybody Hurts", "Tears in Heaven")

		resp, body := h.do(t, http.MethodGet, "/songs/sad_music?offset=0&limit=2", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{
			"results": ["Hurt", "Mad World"],
			"next_offset": 2,
			"total_items": 5,
			"has_more": true,
			"length": 2,
			"next": "/songs/sad_music?offset=2&limit=2",
			"prev": null
		}`, body)
	})

	t.Run("middle page links both ways", func(t *testing.T) {
		h := newHarness(t)
		tu.InsertSongs(t, h.db, "rap_music", "a", "b", "c", "d", "e")

		_, body := h.do(t, http.MethodGet, "/songs/rap_music?offset=2&limit=2", "")

		var page models.PageResult
		require.NoError(t, json.Unmarshal([]byte(body), &page))
		assert.Equal(t, []string{"c", "d"}, page.Results)
		require.NotNil(t, page.Prev)
		require.NotNil(t, page.Next)
		assert.Equal(t, "/songs/rap_music?offset=0&limit=2", *page.Prev)
		assert.Equal(t, "/songs/rap_music?offset=4&limit=2", *page.Next)
	})

	t.Run("bad paging falls back to defaults", func(t *testing.T) {
		h := newHarness(t)
		tu.InsertSongs(t, h.db, "pop_music", "a")

		_, body := h.do(t, http.MethodGet, "/songs/pop_music?offset=-5&limit=abc", "")

		var page models.PageResult
		require.NoError(t, json.Unmarshal([]byte(body), &page))
		assert.Equal(t, 10, page.NextOffset)
		assert.Nil(t, page.Prev)
	})

	t.Run("invalid genre", func(t *testing.T) {
		h := newHarness(t)

		resp, body := h.do(t, http.MethodGet, "/songs/not_a_genre?offset=0&limit=10", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "Invalid genre"}`, body)
	})

	t.Run("all rows", func(t *testing.T) {
		h := newHarness(t)
		tu.InsertSongs(t, h.db, "jazz_music", "So What")

		resp, body := h.do(t, http.MethodGet, "/songs", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rows []map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "So What", rows[0]["jazz_music"])
		assert.Contains(t, rows[0], "motivaton_music")
		assert.Nil(t, rows[0]["sad_music"])
	})

	t.Run("empty table is an empty array", func(t *testing.T) {
		h := newHarness(t)

		_, body := h.do(t, http.MethodGet, "/songs", "")
		assert.JSONEq(t, `[]`, body)
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newHarness(t)

		resp, _ := h.do(t, http.MethodPost, "/songs", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("unknown paths are a JSON 404", func(t *testing.T) {
		h := newHarness(t)

		for _, path := range []string{"/nope", "/"} {
			resp, body := h.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
			assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"), path)
			assert.JSONEq(t, `{"error": "Not found"}`, body, path)
		}
	})
}

func TestAppToken(t *testing.T) {
	t.Run("cached after the first grant", func(t *testing.T) {
		h := newHarness(t)
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusOK, tu.TokenJSON("app_token", "", 3600))

		for range 2 {
			resp, body := h.do(t, http.MethodGet, "/token", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"access_token": "app_token"}`, body)
		}
		assert.Len(t, h.fake.CallsTo(http.MethodPost, "/api/token"), 1)
	})

	t.Run("rejected grant", func(t *testing.T) {
		h := newHarness(t)
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusBadRequest, map[string]string{"error": "invalid_client"})

		resp, body := h.do(t, http.MethodGet, "/token", "")

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var e ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &e))
		assert.Equal(t, "Failed to get token", e.Error)
		assert.Contains(t, e.Details, "invalid_client")
	})
}

func TestAuthFlow(t *testing.T) {
	t.Run("login redirects with state", func(t *testing.T) {
		h := newHarness(t)

		resp, _ := h.do(t, http.MethodGet, "/login", "")
		require.Equal(t, http.StatusFound, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(loc.String(), h.fake.AuthURL()))
		assert.Equal(t, "code", loc.Query().Get("response_type"))
		assert.Equal(t, "test_client_id", loc.Query().Get("client_id"))
		assert.NotEmpty(t, loc.Query().Get("state"))
		assert.Empty(t, h.fake.Calls())
	})

	t.Run("full round trip", func(t *testing.T) {
		h := newHarness(t)
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusOK, tu.TokenJSON("user_access", "user_refresh", 3600))
		h.fake.JSON(http.MethodGet, "/v1/me", http.StatusOK, map[string]any{
			"id":           "user_1",
			"display_name": "Vincent",
			"email":        "vincent@example.com",
			"images":       []map[string]any{{"url": "https://img.example/v.jpg"}},
		})
		h.fake.JSON(http.MethodGet, "/v1/me/playlists", http.StatusOK, map[string]any{"items": []any{}, "total": 0})

		resp, _ := h.do(t, http.MethodGet, "/login", "")
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		state := loc.Query().Get("state")

		resp, _ = h.do(t, http.MethodGet, "/callback?code=auth_code&state="+state, "")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/me", resp.Header.Get("Location"))

		resp, body := h.do(t, http.MethodGet, "/me", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{
			"profile": {
				"display_name": "Vincent",
				"email": "vincent@example.com",
				"image": "https://img.example/v.jpg"
			},
			"playlists": {"items": [], "total": 0}
		}`, body)

		call := h.fake.CallsTo(http.MethodGet, "/v1/me")[0]
		assert.Equal(t, "Bearer user_access", call.Authorization)
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := newHarness(t)

		h.do(t, http.MethodGet, "/login", "")
		resp, body := h.do(t, http.MethodGet, "/callback?code=auth_code&state=forged", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Invalid state parameter")
		assert.Empty(t, h.fake.CallsTo(http.MethodPost, "/api/token"))
	})

	t.Run("missing code", func(t *testing.T) {
		h := newHarness(t)

		resp, body := h.do(t, http.MethodGet, "/callback", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{
			"error": "Missing authorization code",
			"details": "Don't refresh this page. Start again from /login."
		}`, body)
		assert.Empty(t, h.fake.Calls())
	})

	t.Run("provider error", func(t *testing.T) {
		h := newHarness(t)

		resp, body := h.do(t, http.MethodGet, "/callback?error=access_denied", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "Missing authorization code", "details": "access_denied"}`, body)
	})

	t.Run("exchange rejected", func(t *testing.T) {
		h := newHarness(t)
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

		resp, body := h.do(t, http.MethodGet, "/callback?code=stale", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var e ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &e))
		assert.Equal(t, "Failed to obtain access token", e.Error)
		assert.Contains(t, e.Details, "invalid_grant")

		resp, _ = h.do(t, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("me without session", func(t *testing.T) {
		h := newHarness(t)

		resp, body := h.do(t, http.MethodGet, "/me", "")

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.JSONEq(t, `{"error": "No access token in session"}`, body)
		assert.Empty(t, h.fake.Calls())
	})

	t.Run("me profile failure", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodGet, "/v1/me", http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"status": 401, "message": "The access token expired"},
		})

		resp, body := h.do(t, http.MethodGet, "/me", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var e ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &e))
		assert.Equal(t, "Failed to fetch profile", e.Error)
		assert.Contains(t, e.Details, "The access token expired")
	})

	t.Run("me playlists failure", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodGet, "/v1/me", http.StatusOK, map[string]any{"id": "user_1"})
		h.fake.Status(http.MethodGet, "/v1/me/playlists", http.StatusInternalServerError)

		resp, body := h.do(t, http.MethodGet, "/me", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Failed to fetch playlists")
	})

	t.Run("logout", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		resp, body := h.do(t, http.MethodGet, "/logout", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"message": "Logged out"}`, body)

		resp, _ = h.do(t, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	t.Run("no refresh token", func(t *testing.T) {
		h := newHarness(t)

		resp, body := h.do(t, http.MethodGet, "/refresh_access_token", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "No refresh token available"}`, body)
	})

	t.Run("success", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusOK, tu.TokenJSON("renewed", "", 3600))

		resp, body := h.do(t, http.MethodGet, "/refresh_access_token", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"access_token": "renewed"}`, body)

		form := h.fake.CallsTo(http.MethodPost, "/api/token")[0].Form()
		assert.Equal(t, "user_refresh", form.Get("refresh_token"))

		// The refresh token survives a response that does not rotate it.
		h.do(t, http.MethodGet, "/refresh_access_token", "")
		form = h.fake.CallsTo(http.MethodPost, "/api/token")[1].Form()
		assert.Equal(t, "user_refresh", form.Get("refresh_token"))
	})

	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

		resp, body := h.do(t, http.MethodGet, "/refresh_access_token", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var e ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &e))
		assert.Equal(t, "Failed to refresh token", e.Error)
		assert.Contains(t, e.Details, "invalid_grant")
	})
}

func TestCreatePlaylist(t *testing.T) {
	t.Run("creates the configured playlist", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodGet, "/v1/me", http.StatusOK, map[string]any{"id": "user_1"})
		h.fake.JSON(http.MethodPost, "/v1/users/user_1/playlists", http.StatusCreated, map[string]any{"id": "pl_1"})

		resp, body := h.do(t, http.MethodPost, "/create_playlist", "")

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.JSONEq(t, `{"id": "pl_1"}`, body)

		var sent models.NewPlaylist
		call := h.fake.CallsTo(http.MethodPost, "/v1/users/user_1/playlists")[0]
		require.NoError(t, json.Unmarshal(call.Body, &sent))
		assert.Equal(t, h.app.config.Playlist.Name, sent.Name)
		assert.Equal(t, "Curated with chaotic love by Vincent", sent.Description)
		assert.False(t, sent.Public)
	})

	t.Run("requires a session", func(t *testing.T) {
		h := newHarness(t)

		resp, _ := h.do(t, http.MethodPost, "/create_playlist", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("upstream rejection", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodGet, "/v1/me", http.StatusOK, map[string]any{"id": "user_1"})
		h.fake.JSON(http.MethodPost, "/v1/users/user_1/playlists", http.StatusForbidden, map[string]any{
			"error": map[string]any{"status": 403, "message": "Insufficient client scope"},
		})

		resp, body := h.do(t, http.MethodPost, "/create_playlist", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Insufficient client scope")
	})
}

func TestPlayer(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		h := newHarness(t)

		resp, body := h.do(t, http.MethodGet, "/player/devices", "")

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, body, "Unauthorized")
		assert.Empty(t, h.fake.Calls())
	})

	t.Run("devices", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodGet, "/v1/me/player/devices", http.StatusOK, map[string]any{
			"devices": []map[string]any{{"id": "dev_1", "name": "Kitchen"}},
		})

		resp, body := h.do(t, http.MethodGet, "/player/devices", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"devices": [{"id": "dev_1", "name": "Kitchen"}]}`, body)
		assert.Empty(t, h.fake.CallsTo(http.MethodPost, "/api/token"))
	})

	t.Run("expired token is refreshed first", func(t *testing.T) {
		h := newHarness(t)
		h.setSession(t, &models.UserSession{
			AccessToken:  "stale",
			RefreshToken: "user_refresh",
			Expiry:       time.Now().Add(-time.Minute),
		})
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusOK, tu.TokenJSON("fresh", "", 3600))
		h.fake.JSON(http.MethodGet, "/v1/me/player/devices", http.StatusOK, map[string]any{"devices": []any{}})

		resp, _ := h.do(t, http.MethodGet, "/player/devices", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		calls := h.fake.CallsTo(http.MethodGet, "/v1/me/player/devices")
		require.Len(t, calls, 1)
		assert.Equal(t, "Bearer fresh", calls[0].Authorization)

		// The refreshed pair was saved, so the next call does not refresh again.
		h.do(t, http.MethodGet, "/player/devices", "")
		assert.Len(t, h.fake.CallsTo(http.MethodPost, "/api/token"), 1)
	})

	t.Run("failed refresh logs the session out", func(t *testing.T) {
		h := newHarness(t)
		h.setSession(t, &models.UserSession{
			AccessToken:  "stale",
			RefreshToken: "revoked",
			Expiry:       time.Now().Add(-time.Minute),
		})
		h.fake.JSON(http.MethodPost, "/api/token", http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

		resp, _ := h.do(t, http.MethodGet, "/player/queue", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, h.fake.CallsTo(http.MethodGet, "/v1/me/player/queue"))

		resp, body := h.do(t, http.MethodGet, "/refresh_access_token", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "No refresh token available")
	})

	t.Run("state while idle", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.Status(http.MethodGet, "/v1/me/player", http.StatusNoContent)

		resp, body := h.do(t, http.MethodGet, "/player/state", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"is_playing": false}`, body)
	})

	t.Run("play", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.Status(http.MethodPut, "/v1/me/player/play", http.StatusNoContent)

		resp, body := h.do(t, http.MethodPut, "/player/play?device_id=dev_1", `{"uris": ["spotify:track:1"], "position_ms": 0}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status": "ok"}`, body)

		call := h.fake.CallsTo(http.MethodPut, "/v1/me/player/play")[0]
		assert.Equal(t, "dev_1", call.Query.Get("device_id"))
		assert.JSONEq(t, `{"uris": ["spotify:track:1"], "position_ms": 0}`, string(call.Body))
	})

	t.Run("play without device", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.Status(http.MethodPut, "/v1/me/player/play", http.StatusNoContent)

		resp, _ := h.do(t, http.MethodPut, "/player/play", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		call := h.fake.CallsTo(http.MethodPut, "/v1/me/player/play")[0]
		assert.NotContains(t, call.Query, "device_id")
		assert.Empty(t, call.Body)
	})

	t.Run("play rejected upstream", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodPut, "/v1/me/player/play", http.StatusBadGateway, map[string]any{
			"error": map[string]any{"status": 502, "message": "Bad gateway"},
		})

		resp, body := h.do(t, http.MethodPut, "/player/play", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var e ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &e))
		assert.Equal(t, "Failed to start playback", e.Error)
		assert.Contains(t, e.Details, "Bad gateway")
	})

	t.Run("transfer", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.Status(http.MethodPut, "/v1/me/player", http.StatusNoContent)

		resp, body := h.do(t, http.MethodPut, "/player/transfer", `{"play": true}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "Missing device_id"}`, body)

		resp, _ = h.do(t, http.MethodPut, "/player/transfer", `{"device_id": "dev_1", "play": true}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		calls := h.fake.CallsTo(http.MethodPut, "/v1/me/player")
		require.Len(t, calls, 1)
		assert.JSONEq(t, `{"device_ids": ["dev_1"], "play": true}`, string(calls[0].Body))
	})

	t.Run("invalid repeat mode", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)

		resp, body := h.do(t, http.MethodPut, "/player/repeat", `{"state": "bogus"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "Invalid repeat mode"}`, body)
		assert.Empty(t, h.fake.Calls())
	})

	t.Run("invalid bodies are rejected before a refresh", func(t *testing.T) {
		tt := []struct {
			method, path, body, want string
		}{
			{http.MethodPut, "/player/repeat", `{"state": "bogus"}`, "Invalid repeat mode"},
			{http.MethodPut, "/player/shuffle", `{}`, "Invalid shuffle state"},
			{http.MethodPut, "/player/transfer", `{"play": true}`, "Missing device_id"},
			{http.MethodPost, "/player/queue", "", "Missing uri"},
		}

		for _, tc := range tt {
			t.Run(tc.path, func(t *testing.T) {
				h := newHarness(t)
				h.setSession(t, &models.UserSession{
					AccessToken:  "stale",
					RefreshToken: "user_refresh",
					Expiry:       time.Now().Add(-time.Minute),
				})

				resp, body := h.do(t, tc.method, tc.path, tc.body)

				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
				assert.JSONEq(t, `{"error": "`+tc.want+`"}`, body)
				assert.Empty(t, h.fake.Calls())
			})
		}
	})

	t.Run("repeat", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.Status(http.MethodPut, "/v1/me/player/repeat", http.StatusNoContent)

		resp, _ := h.do(t, http.MethodPut, "/player/repeat", `{"state": "context"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		call := h.fake.CallsTo(http.MethodPut, "/v1/me/player/repeat")[0]
		assert.Equal(t, "context", call.Query.Get("state"))
	})

	t.Run("shuffle", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.Status(http.MethodPut, "/v1/me/player/shuffle", http.StatusNoContent)

		resp, body := h.do(t, http.MethodPut, "/player/shuffle", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "Invalid shuffle state"}`, body)

		resp, _ = h.do(t, http.MethodPut, "/player/shuffle", `{"state": false}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		call := h.fake.CallsTo(http.MethodPut, "/v1/me/player/shuffle")[0]
		assert.Equal(t, "false", call.Query.Get("state"))
	})

	t.Run("queue", func(t *testing.T) {
		h := newHarness(t)
		h.login(t)
		h.fake.JSON(http.MethodGet, "/v1/me/player/queue", http.StatusOK, map[string]any{"queue": []any{}})
		h.fake.Status(http.MethodPost, "/v1/me/player/queue", http.StatusNoContent)

		resp, body := h.do(t, http.MethodGet, "/player/queue", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"queue": []}`, body)

		resp, body = h.do(t, http.MethodPost, "/player/queue", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error": "Missing uri"}`, body)

		resp, _ = h.do(t, http.MethodPost, "/player/queue?uri=spotify:track:9", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = h.do(t, http.MethodPost, "/player/queue", `{"uri": "spotify:episode:3"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		calls := h.fake.CallsTo(http.MethodPost, "/v1/me/player/queue")
		require.Len(t, calls, 2)
		assert.Equal(t, "spotify:track:9", calls[0].Query.Get("uri"))
		assert.Equal(t, "spotify:episode:3", calls[1].Query.Get("uri"))
	})
}

func TestLibrary(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	for _, path := range []string{"/v1/me/albums", "/v1/me/following", "/v1/me/shows", "/v1/me/playlists"} {
		h.fake.JSON(http.MethodGet, path, http.StatusOK, map[string]any{"items": []any{}})
	}

	t.Run("albums", func(t *testing.T) {
		resp, _ := h.do(t, http.MethodGet, "/me/albums?limit=5&offset=10", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		q := h.fake.CallsTo(http.MethodGet, "/v1/me/albums")[0].Query
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "10", q.Get("offset"))
	})

	t.Run("artists", func(t *testing.T) {
		resp, _ := h.do(t, http.MethodGet, "/me/artists?after=artist_1", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		q := h.fake.CallsTo(http.MethodGet, "/v1/me/following")[0].Query
		assert.Equal(t, "artist", q.Get("type"))
		assert.Equal(t, "artist_1", q.Get("after"))
		assert.Equal(t, "20", q.Get("limit"))
	})

	t.Run("shows and playlists", func(t *testing.T) {
		for _, path := range []string{"/me/shows", "/me/playlists"} {
			resp, body := h.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.JSONEq(t, `{"items": []}`, body, path)
		}
	})
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := newHarness(t)

		resp, body := h.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status": "ok"}`, body)
	})

	t.Run("database down", func(t *testing.T) {
		app := NewApp(Options{Logger: shared.NewLogger(io.Discard), DB: failingPinger{}})

		rec := httptest.NewRecorder()
		app.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
