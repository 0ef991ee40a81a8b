// package formatter renders song listings for the command line (JSON, CSV, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
)

// Format names an output encoding accepted by the songs command.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
)

// ParseFormat accepts json, csv or txt (case-insensitive). Empty selects json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want json, csv or txt)", s)
	}
}

// Rows renders every table row in the given format.
func Rows(rows []models.GenreRow, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RowsToCSV(rows)
	case FormatText:
		return RowsToText(rows), nil
	default:
		return toJSON(rows)
	}
}

// Page renders one genre page in the given format. req is the window the page was read with.
func Page(genre string, req models.PageRequest, page *models.PageResult, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return PageToCSV(genre, page)
	case FormatText:
		return PageToText(genre, req, page), nil
	default:
		return toJSON(page)
	}
}

func toJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// RowsToCSV writes one record per row with columns: id, then every genre in table order.
//
// NULL columns are written as empty fields.
func RowsToCSV(rows []models.GenreRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := append([]string{"id"}, models.Genres...)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(headers))
		record = append(record, strconv.FormatInt(row.ID, 10))
		for _, g := range models.Genres {
			value := ""
			if v := row.Values[g]; v != nil {
				value = *v
			}
			record = append(record, value)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RowsToText lists the non-null columns of each row, one row per block.
func RowsToText(rows []models.GenreRow) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Rows: %d\n", len(rows)))
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("\n#%d\n", row.ID))
		for _, g := range models.Genres {
			if v := row.Values[g]; v != nil {
				buf.WriteString(fmt.Sprintf("  %s: %s\n", g, *v))
			}
		}
	}

	return buf.Bytes()
}

// PageToCSV writes a single column headed by the genre name.
func PageToCSV(genre string, page *models.PageResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{genre}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, v := range page.Results {
		if err := writer.Write([]string{v}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PageToText numbers the values by their position in the whole genre and notes the next offset.
func PageToText(genre string, req models.PageRequest, page *models.PageResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Genre: %s\n", genre))
	if page.Length == 0 {
		buf.WriteString(fmt.Sprintf("Showing 0 of %d\n", page.TotalItems))
	} else {
		buf.WriteString(fmt.Sprintf("Showing %d-%d of %d\n", req.Offset+1, req.Offset+page.Length, page.TotalItems))
	}
	buf.WriteString("\n")

	for i, v := range page.Results {
		buf.WriteString(fmt.Sprintf("%d. %s\n", req.Offset+i+1, v))
	}

	if page.HasMore {
		buf.WriteString(fmt.Sprintf("\nMore: --offset %d --limit %d\n", page.NextOffset, req.Limit))
	}

	return buf.Bytes()
}

// WriteExport writes data to the file at path.
func WriteExport(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("empty path provided")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
