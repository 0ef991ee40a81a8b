package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/session"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Options holds the dependencies of the web service.
type Options struct {
	Config   *shared.Config
	Logger   *log.Logger
	Sessions session.Store
	Auth     *services.SpotifyAuth
	Tokens   *services.AppTokenCache
	Spotify  *services.SpotifyClient
	Songs    *services.RecommendationService
	DB       Pinger
}

// App wires the recommendation, token and proxy services to their HTTP routes.
type App struct {
	config   *shared.Config
	logger   *log.Logger
	sessions session.Store
	auth     *services.SpotifyAuth
	tokens   *services.AppTokenCache
	spotify  *services.SpotifyClient
	songs    *services.RecommendationService
	db       Pinger
	now      func() time.Time
}

// NewApp creates the web service from opts.
func NewApp(opts Options) *App {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &App{
		config:   opts.Config,
		logger:   shared.WithLogger(opts.Logger, "component", "http"),
		sessions: opts.Sessions,
		auth:     opts.Auth,
		tokens:   opts.Tokens,
		spotify:  opts.Spotify,
		songs:    opts.Songs,
		db:       opts.DB,
		now:      time.Now,
	}
}

// Routes builds the router for every endpoint.
func (a *App) Routes() http.Handler {
	router := NewBasicRouter()
	router.Use(
		RequestIDMiddleware,
		LoggingMiddleware(a.logger),
		RecoverMiddleware(a.logger),
		CORSMiddleware(a.config.Server.AllowedOrigins),
	)

	router.HandleFunc(http.MethodGet, "/healthz", a.health)

	router.HandleFunc(http.MethodGet, "/songs", a.listSongs)
	router.HandleFunc(http.MethodGet, "/songs/{genre}", a.songsByGenre)

	router.Handler(NewAuthHandler(a))

	router.HandleFunc(http.MethodGet, "/me", a.profile)
	router.HandleFunc(http.MethodPost, "/create_playlist", a.createPlaylist)

	router.HandleFunc(http.MethodGet, "/player/devices", a.devices)
	router.HandleFunc(http.MethodGet, "/player/state", a.playbackState)
	router.HandleFunc(http.MethodPut, "/player/play", a.play)
	router.HandleFunc(http.MethodPut, "/player/transfer", a.transfer)
	router.HandleFunc(http.MethodPut, "/player/repeat", a.repeat)
	router.HandleFunc(http.MethodPut, "/player/shuffle", a.shuffle)
	router.HandleFunc(http.MethodGet, "/player/queue", a.queue)
	router.HandleFunc(http.MethodPost, "/player/queue", a.addToQueue)

	router.HandleFunc(http.MethodGet, "/me/albums", a.savedAlbums)
	router.HandleFunc(http.MethodGet, "/me/artists", a.followedArtists)
	router.HandleFunc(http.MethodGet, "/me/shows", a.savedShows)
	router.HandleFunc(http.MethodGet, "/me/playlists", a.userPlaylists)

	return router
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.Ping(r.Context()); err != nil {
			a.logger.Error("database ping failed", "error", err)
			Error(w, http.StatusServiceUnavailable, "Database unavailable", "")
			return
		}
	}
	JSON(w, StatusResponse{Status: "ok"})
}

// loadSession never fails: an unreadable session is logged and treated as empty.
func (a *App) loadSession(r *http.Request) *models.UserSession {
	us, err := a.sessions.Load(r)
	if err != nil {
		a.logger.Warn("discarding session", "error", err, "request_id", RequestID(r.Context()))
	}
	return us
}

func (a *App) saveSession(w http.ResponseWriter, r *http.Request, us *models.UserSession) bool {
	if err := a.sessions.Save(w, r, us); err != nil {
		a.logger.Error("failed to save session", "error", err, "request_id", RequestID(r.Context()))
		Error(w, http.StatusInternalServerError, "Failed to save session", "")
		return false
	}
	return true
}

// sessionToken requires an access token in the session without attempting a refresh.
func (a *App) sessionToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	us := a.loadSession(r)
	if !us.HasAccessToken() {
		Error(w, http.StatusUnauthorized, "No access token in session", "")
		return "", false
	}
	return us.AccessToken, true
}

// freshToken refreshes an expired session token before a proxied call.
//
// It answers 401 when the refresh gate fails and the current token is not usable; a session whose
// refresh was rejected is cleared.
func (a *App) freshToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	us := a.loadSession(r)
	before := us.AccessToken

	ok := a.auth.RefreshIfExpired(r.Context(), us)
	if ok && us.AccessToken != before {
		if !a.saveSession(w, r, us) {
			return "", false
		}
	}

	if !ok && !us.AccessTokenUsable(a.now()) {
		if us.RefreshToken != "" {
			if err := a.sessions.Clear(w, r); err != nil {
				a.logger.Warn("failed to clear session", "error", err)
			}
		}
		Error(w, http.StatusUnauthorized, "Unauthorized", "Log in again at /login.")
		return "", false
	}

	return us.AccessToken, true
}

// upstreamFailure renders a failed Spotify interaction as the {error, details} envelope.
func (a *App) upstreamFailure(w http.ResponseWriter, r *http.Request, summary string, err error) {
	if errors.Is(err, shared.ErrUnauthorized) {
		Error(w, http.StatusUnauthorized, "No access token in session", "")
		return
	}

	if ue, ok := services.AsUpstreamError(err); ok {
		a.logger.Warn(summary, "upstream_status", ue.StatusCode, "request_id", RequestID(r.Context()))
		Error(w, http.StatusBadRequest, summary, ue.Details())
		return
	}

	a.logger.Error(summary, "error", err, "request_id", RequestID(r.Context()))
	Error(w, http.StatusInternalServerError, summary, err.Error())
}
