package models

import "time"

// AppToken is the client-credentials token shared by the whole process.
//
// ExpiresAt is already pulled in by the safety margin, so a token is served only while now <= ExpiresAt.
type AppToken struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token is set and not past ExpiresAt at the given instant.
func (t *AppToken) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && !now.After(t.ExpiresAt)
}

// UserSession is the token pair for one authenticated browser session.
//
// Expiry is zero when the provider did not report a lifetime.
// State is the CSRF value issued by /login and cleared once the callback consumes it.
type UserSession struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	State        string    `json:"state,omitempty"`
}

// HasAccessToken reports whether any access token is on file.
func (s *UserSession) HasAccessToken() bool {
	return s != nil && s.AccessToken != ""
}

// AccessTokenUsable reports whether the access token is present and not known to be expired.
func (s *UserSession) AccessTokenUsable(now time.Time) bool {
	if !s.HasAccessToken() {
		return false
	}
	return s.Expiry.IsZero() || now.Before(s.Expiry)
}

// Clear drops every credential, leaving the session unauthenticated.
func (s *UserSession) Clear() {
	*s = UserSession{}
}
