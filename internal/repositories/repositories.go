// package repositories provides persistence layer implementations for the recommendation table.
package repositories

import (
	"fmt"
	"regexp"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTable rejects table names that are not plain SQL identifiers.
func ValidateTable(table string) error {
	if !identifier.MatchString(table) {
		return fmt.Errorf("%w: table name %q", shared.ErrInvalidConfig, table)
	}
	return nil
}

// genreColumn returns the column for genre, or ErrInvalidGenre when it is not allowlisted.
func genreColumn(genre string) (string, error) {
	if !models.IsGenre(genre) {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidGenre, genre)
	}
	return genre, nil
}
