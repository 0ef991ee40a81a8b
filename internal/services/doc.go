// Package services implements the token lifecycle, the Spotify proxy calls and the recommendation queries.
//
// # OAuth Exchange
//
// [SpotifyAuth] wraps [oauth2.Config] and [clientcredentials.Config] for the three token endpoint grants:
// client credentials, authorization code and refresh token. Client credentials always travel in the
// HTTP Basic header. Every call is bounded by a 10s timeout.
//
// [SpotifyAuth.RefreshIfExpired] is the gate used before a user call: it never returns an error,
// only whether the session now holds a usable access token.
//
// # Token Cache
//
// [AppTokenCache] keeps one app-level token per process. Its expiry is pulled in by [ExpirySkew]
// and refreshes are serialized under a mutex, so at most one grant is in flight.
//
// # Proxy
//
// [SpotifyClient] forwards a fixed set of Web API calls with the session's bearer token.
// Non-success responses become an [UpstreamError] whose Body is relayed as the details of the
// local error envelope.
//
// # Recommendations
//
// [RecommendationService] validates the genre against [models.Genres] and pages through
// non-null values of that column.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMissingCode] : callback reached without a code
//   - [shared.ErrNoRefreshToken] : refresh attempted with nothing on file
//   - [shared.ErrTokenExchange], [shared.ErrRefreshFailed], [shared.ErrUpstreamAuth] : token endpoint rejections
//   - [shared.ErrUpstreamCall] : Web API call failed
//   - [shared.ErrInvalidGenre] : genre not in the allowlist
package services
