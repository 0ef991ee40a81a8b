package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
)

type transferRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	Play     bool   `json:"play"`
}

type repeatRequest struct {
	State string `json:"state" validate:"required,oneof=off context track"`
}

type shuffleRequest struct {
	State *bool `json:"state" validate:"required"`
}

type queueRequest struct {
	URI string `json:"uri"`
}

// ProfileResponse is the body of GET /me.
type ProfileResponse struct {
	Profile   models.ProfileSummary `json:"profile"`
	Playlists json.RawMessage       `json:"playlists"`
}

func writeOK(w http.ResponseWriter) {
	JSON(w, StatusResponse{Status: "ok"})
}

func libraryPage(r *http.Request) services.LibraryPage {
	q := r.URL.Query()
	return services.LibraryPage{
		Limit:  q.Get("limit"),
		Offset: q.Get("offset"),
		After:  q.Get("after"),
	}
}

func (a *App) profile(w http.ResponseWriter, r *http.Request) {
	token, authed := a.sessionToken(w, r)
	if !authed {
		return
	}

	user, err := a.spotify.UserProfile(r.Context(), token)
	if err != nil {
		a.upstreamFailure(w, r, "Failed to fetch profile", err)
		return
	}

	playlists, err := a.spotify.UserPlaylists(r.Context(), token, services.LibraryPage{})
	if err != nil {
		a.upstreamFailure(w, r, "Failed to fetch playlists", err)
		return
	}

	JSON(w, ProfileResponse{Profile: user.Summary(), Playlists: playlists})
}

// createPlaylist creates the configured playlist for the signed-in user and relays the upstream response.
func (a *App) createPlaylist(w http.ResponseWriter, r *http.Request) {
	token, authed := a.sessionToken(w, r)
	if !authed {
		return
	}

	user, err := a.spotify.UserProfile(r.Context(), token)
	if err != nil {
		a.upstreamFailure(w, r, "Failed to fetch profile", err)
		return
	}

	cfg := a.config.Playlist
	resp, err := a.spotify.CreatePlaylist(r.Context(), token, user.ID, models.NewPlaylist{
		Name:        cfg.Name,
		Description: cfg.Description,
		Public:      cfg.Public,
	})
	if err != nil {
		a.upstreamFailure(w, r, "Failed to create playlist", err)
		return
	}

	RawJSON(w, resp.Body, resp.StatusCode)
}

func (a *App) devices(w http.ResponseWriter, r *http.Request) {
	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	body, err := a.spotify.Devices(r.Context(), token)
	if err != nil {
		a.upstreamFailure(w, r, "Failed to fetch devices", err)
		return
	}
	RawJSON(w, body, http.StatusOK)
}

func (a *App) playbackState(w http.ResponseWriter, r *http.Request) {
	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	body, err := a.spotify.PlaybackState(r.Context(), token)
	if err != nil {
		a.upstreamFailure(w, r, "Failed to fetch playback state", err)
		return
	}
	if body == nil {
		JSON(w, map[string]bool{"is_playing": false})
		return
	}
	RawJSON(w, body, http.StatusOK)
}

func (a *App) play(w http.ResponseWriter, r *http.Request) {
	req, err := Bind[services.PlayRequest](r)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	var body *services.PlayRequest
	if req.ContextURI != "" || len(req.URIs) > 0 || req.Offset != nil || req.PositionMS != nil {
		body = &req
	}

	if err := a.spotify.Play(r.Context(), token, r.URL.Query().Get("device_id"), body); err != nil {
		a.upstreamFailure(w, r, "Failed to start playback", err)
		return
	}
	writeOK(w)
}

func (a *App) transfer(w http.ResponseWriter, r *http.Request) {
	req, err := Bind[transferRequest](r)
	if err != nil {
		Error(w, http.StatusBadRequest, "Missing device_id", "")
		return
	}

	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	if err := a.spotify.Transfer(r.Context(), token, req.DeviceID, req.Play); err != nil {
		a.upstreamFailure(w, r, "Failed to transfer playback", err)
		return
	}
	writeOK(w)
}

func (a *App) repeat(w http.ResponseWriter, r *http.Request) {
	req, err := Bind[repeatRequest](r)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid repeat mode", "")
		return
	}

	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	if err := a.spotify.Repeat(r.Context(), token, req.State, r.URL.Query().Get("device_id")); err != nil {
		a.upstreamFailure(w, r, "Failed to set repeat mode", err)
		return
	}
	writeOK(w)
}

func (a *App) shuffle(w http.ResponseWriter, r *http.Request) {
	req, err := Bind[shuffleRequest](r)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid shuffle state", "")
		return
	}

	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	if err := a.spotify.Shuffle(r.Context(), token, *req.State, r.URL.Query().Get("device_id")); err != nil {
		a.upstreamFailure(w, r, "Failed to set shuffle", err)
		return
	}
	writeOK(w)
}

func (a *App) queue(w http.ResponseWriter, r *http.Request) {
	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	body, err := a.spotify.Queue(r.Context(), token)
	if err != nil {
		a.upstreamFailure(w, r, "Failed to fetch queue", err)
		return
	}
	RawJSON(w, body, http.StatusOK)
}

// addToQueue takes the uri from the JSON body, falling back to the query string.
func (a *App) addToQueue(w http.ResponseWriter, r *http.Request) {
	req, err := Bind[queueRequest](r)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	q := r.URL.Query()
	uri := req.URI
	if uri == "" {
		uri = q.Get("uri")
	}
	if uri == "" {
		Error(w, http.StatusBadRequest, "Missing uri", "")
		return
	}

	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	if err := a.spotify.AddToQueue(r.Context(), token, uri, q.Get("device_id")); err != nil {
		a.upstreamFailure(w, r, "Failed to add to queue", err)
		return
	}
	writeOK(w)
}

func (a *App) savedAlbums(w http.ResponseWriter, r *http.Request) {
	a.library(w, r, "Failed to fetch albums", a.spotify.SavedAlbums)
}

func (a *App) followedArtists(w http.ResponseWriter, r *http.Request) {
	a.library(w, r, "Failed to fetch artists", a.spotify.FollowedArtists)
}

func (a *App) savedShows(w http.ResponseWriter, r *http.Request) {
	a.library(w, r, "Failed to fetch shows", a.spotify.SavedShows)
}

func (a *App) userPlaylists(w http.ResponseWriter, r *http.Request) {
	a.library(w, r, "Failed to fetch playlists", a.spotify.UserPlaylists)
}

type libraryFetch func(ctx context.Context, token string, page services.LibraryPage) (json.RawMessage, error)

func (a *App) library(w http.ResponseWriter, r *http.Request, summary string, fetch libraryFetch) {
	token, authed := a.freshToken(w, r)
	if !authed {
		return
	}

	body, err := fetch(r.Context(), token, libraryPage(r))
	if err != nil {
		a.upstreamFailure(w, r, summary, err)
		return
	}
	RawJSON(w, body, http.StatusOK)
}
