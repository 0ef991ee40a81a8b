package models

import (
	"encoding/json"
	"slices"
)

// Genres is the allowlist of genre columns in the recommendation table, in table order.
var Genres = []string{
	"sad_music",
	"romantic_music",
	"party_music",
	"happy_music",
	"personal_fav",
	"native_music",
	"classical_music",
	"workout_music",
	"rock_music",
	"rap_music",
	"pop_music",
	"jazz_music",
	"motivaton_music", // sic, matches the column name
}

// IsGenre reports whether name is one of the allowlisted genre columns.
func IsGenre(name string) bool {
	return slices.Contains(Genres, name)
}

// GenreRow is a single row of the recommendation table.
//
// Values holds one entry per allowlisted genre; a nil entry is a NULL column.
type GenreRow struct {
	ID     int64
	Values map[string]*string
}

// MarshalJSON renders the row as a flat object with id plus every genre column.
func (r GenreRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(Genres)+1)
	out["id"] = r.ID
	for _, g := range Genres {
		if v := r.Values[g]; v != nil {
			out[g] = *v
		} else {
			out[g] = nil
		}
	}
	return json.Marshal(out)
}

// PageRequest selects a window of one genre column.
type PageRequest struct {
	Offset int
	Limit  int
}

// PageResult is one page of non-null values for a genre.
//
// Next and Prev are nil when there is no following or preceding page.
type PageResult struct {
	Results    []string `json:"results"`
	NextOffset int      `json:"next_offset"`
	TotalItems int      `json:"total_items"`
	HasMore    bool     `json:"has_more"`
	Length     int      `json:"length"`
	Next       *string  `json:"next"`
	Prev       *string  `json:"prev"`
}
