package server

import (
	"net/http"

	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
)

const restartDetails = "Don't refresh this page. Start again from /login."

// TokenResponse carries a bare access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AuthHandler serves the token lifecycle routes: the app token, the authorization-code
// flow, refresh and logout. Implements the [Handler] interface for registration with a Router.
type AuthHandler struct {
	app *App
}

// NewAuthHandler creates the auth routes backed by app's services.
func NewAuthHandler(app *App) *AuthHandler {
	return &AuthHandler{app: app}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{
		"GET /token",
		"GET /login",
		"GET /callback",
		"GET /refresh_access_token",
		"GET /logout",
	}
}

// ServeHTTP dispatches on the matched route pattern.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /token":
		h.token(w, r)
	case "GET /login":
		h.login(w, r)
	case "GET /callback":
		h.callback(w, r)
	case "GET /refresh_access_token":
		h.refresh(w, r)
	case "GET /logout":
		h.logout(w, r)
	default:
		Error(w, http.StatusNotFound, "Not found", "")
	}
}

// token returns the app-level token, refreshing it when expired.
func (h *AuthHandler) token(w http.ResponseWriter, r *http.Request) {
	tok, err := h.app.tokens.Token(r.Context())
	if err != nil {
		details := upstreamDetails(err)
		h.app.logger.Error("client credentials grant failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get token", details)
		return
	}
	JSON(w, TokenResponse{AccessToken: tok})
}

// login stores a fresh state value in the session and redirects to the authorize endpoint.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	us := h.app.loadSession(r)
	us.State = shared.GenerateID()
	if !h.app.saveSession(w, r, us) {
		return
	}
	http.Redirect(w, r, h.app.auth.AuthorizationURL(us.State), http.StatusFound)
}

// callback exchanges the authorization code, stores the token pair and redirects to /me.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	us := h.app.loadSession(r)

	code := q.Get("code")
	if code == "" {
		details := restartDetails
		if providerErr := q.Get("error"); providerErr != "" {
			details = providerErr
		}
		Error(w, http.StatusBadRequest, "Missing authorization code", details)
		return
	}

	if us.State != "" && q.Get("state") != us.State {
		Error(w, http.StatusBadRequest, "Invalid state parameter", restartDetails)
		return
	}

	tokens, err := h.app.auth.ExchangeCode(r.Context(), code)
	if err != nil {
		details := upstreamDetails(err)
		h.app.logger.Warn("authorization code exchange failed", "error", err)
		Error(w, http.StatusBadRequest, "Failed to obtain access token", details)
		return
	}

	if !h.app.saveSession(w, r, tokens) {
		return
	}
	http.Redirect(w, r, "/me", http.StatusFound)
}

// refresh renews the session's access token.
func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	us := h.app.loadSession(r)
	if us.RefreshToken == "" {
		Error(w, http.StatusBadRequest, "No refresh token available", "")
		return
	}

	if err := h.app.auth.Refresh(r.Context(), us); err != nil {
		h.app.logger.Warn("refresh token grant failed", "error", err)
		Error(w, http.StatusBadRequest, "Failed to refresh token", upstreamDetails(err))
		return
	}

	if !h.app.saveSession(w, r, us) {
		return
	}
	JSON(w, TokenResponse{AccessToken: us.AccessToken})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.app.sessions.Clear(w, r); err != nil {
		h.app.logger.Warn("failed to clear session", "error", err)
	}
	JSON(w, map[string]string{"message": "Logged out"})
}

// upstreamDetails prefers the upstream response body over the error text.
func upstreamDetails(err error) string {
	if ue, ok := services.AsUpstreamError(err); ok {
		return ue.Details()
	}
	return err.Error()
}
