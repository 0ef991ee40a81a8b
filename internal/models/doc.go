// Package models defines the value types shared by the moodmix service layers.
//
// The package contains three groups of types:
//
// 1. Recommendation data: rows of the curated genre table
//   - [GenreRow] : one table row with a nullable value per genre column
//   - [PageRequest] / [PageResult] : offset/limit pagination over one genre column
//
// 2. Token state: credentials held in memory or in the user's session
//   - [AppToken] : the process-wide client-credentials token
//   - [UserSession] : a user's access/refresh token pair
//
// 3. Spotify payloads that the service reshapes instead of relaying verbatim
//   - [SpotifyUser] : profile fields used by /me and /create_playlist
//
// The genre allowlist ([Genres], [IsGenre]) is the only source of column names
// that may be interpolated into SQL.
package models
