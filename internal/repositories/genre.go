package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// GenreRepository reads rows and genre columns from the recommendation table.
type GenreRepository struct {
	db    *shared.Database
	table string
}

// NewGenreRepository creates a new GenreRepository over the named table.
func NewGenreRepository(db *shared.Database, table string) (*GenreRepository, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &GenreRepository{db: db, table: table}, nil
}

// ListAll returns every row with every genre column, in the storage engine's default order.
func (r *GenreRepository) ListAll(ctx context.Context) ([]models.GenreRow, error) {
	query := fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(models.Genres, ", "), r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	result := []models.GenreRow{}
	for rows.Next() {
		row, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating songs: %w", err)
	}

	return result, nil
}

// CountByGenre counts the rows whose genre column is not NULL.
func (r *GenreRepository) CountByGenre(ctx context.Context, genre string) (int, error) {
	column, err := genreColumn(genre)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s WHERE %s IS NOT NULL", column, r.table, column)

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", genre, err)
	}

	return count, nil
}

// ListByGenre returns the non-NULL values of the genre column in the window [offset, offset+limit).
//
// Rows are ordered by id so successive windows never overlap.
func (r *GenreRepository) ListByGenre(ctx context.Context, genre string, offset, limit int) ([]string, error) {
	column, err := genreColumn(genre)
	if err != nil {
		return nil, err
	}

	query := r.db.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY id LIMIT ? OFFSET ?",
		column, r.table, column,
	))

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", genre, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", genre, err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", genre, err)
	}

	return values, nil
}

// Ping checks that the database is reachable.
func (r *GenreRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *GenreRepository) scanRow(rows *sql.Rows) (models.GenreRow, error) {
	cols := make([]sql.NullString, len(models.Genres))
	dest := make([]any, 0, len(cols)+1)

	var row models.GenreRow
	dest = append(dest, &row.ID)
	for i := range cols {
		dest = append(dest, &cols[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return row, fmt.Errorf("failed to scan song row: %w", err)
	}

	row.Values = make(map[string]*string, len(models.Genres))
	for i, g := range models.Genres {
		if cols[i].Valid {
			v := cols[i].String
			row.Values[g] = &v
		} else {
			row.Values[g] = nil
		}
	}

	return row, nil
}
