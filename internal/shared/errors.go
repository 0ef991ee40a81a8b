package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrUnauthorized    = fmt.Errorf("unauthorized")
	ErrMissingCode     = fmt.Errorf("missing authorization code")
	ErrInvalidState    = fmt.Errorf("invalid state parameter")
	ErrTokenExchange   = fmt.Errorf("token exchange failed")
	ErrRefreshFailed   = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken  = fmt.Errorf("no refresh token available")
	ErrUpstreamAuth    = fmt.Errorf("upstream authorization failed")
	ErrSessionUnusable = fmt.Errorf("session could not be loaded")

	// API and service errors
	ErrUpstreamCall       = fmt.Errorf("upstream call failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidGenre     = fmt.Errorf("invalid genre")
	ErrMissingParameter = fmt.Errorf("missing required parameter")
	ErrInvalidParameter = fmt.Errorf("invalid parameter")
	ErrInvalidFlag      = fmt.Errorf("invalid flag value")
)
