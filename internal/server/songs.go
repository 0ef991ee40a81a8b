package server

import (
	"errors"
	"net/http"

	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
)

func (a *App) listSongs(w http.ResponseWriter, r *http.Request) {
	rows, err := a.songs.ListAll(r.Context())
	if err != nil {
		a.logger.Error("failed to list songs", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to fetch songs", "")
		return
	}
	JSON(w, rows)
}

// songsByGenre pages through one genre column; next/prev links point back at this path.
func (a *App) songsByGenre(w http.ResponseWriter, r *http.Request) {
	genre := r.PathValue("genre")
	q := r.URL.Query()
	page := services.ParsePageRequest(q.Get("offset"), q.Get("limit"))

	result, err := a.songs.ListByGenre(r.Context(), genre, page, r.URL.Path)
	switch {
	case errors.Is(err, shared.ErrInvalidGenre):
		Error(w, http.StatusBadRequest, "Invalid genre", "")
	case err != nil:
		a.logger.Error("failed to page songs", "genre", genre, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to fetch songs", "")
	default:
		JSON(w, result)
	}
}
