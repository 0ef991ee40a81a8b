package models

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// ProfileSummary is the trimmed profile returned by /me.
type ProfileSummary struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	Image       *string `json:"image"`
}

// Summary keeps the display name, email, and first image of the profile.
func (u SpotifyUser) Summary() ProfileSummary {
	var s ProfileSummary
	if u.DisplayName != "" {
		s.DisplayName = &u.DisplayName
	}
	if u.Email != "" {
		s.Email = &u.Email
	}
	if len(u.Images) > 0 {
		s.Image = &u.Images[0].URL
	}
	return s
}

// NewPlaylist is the request body for creating a playlist.
type NewPlaylist struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}
