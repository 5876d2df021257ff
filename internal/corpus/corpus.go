// Package corpus loads book records from tabular files.
//
// The format follows the file extension: .csv and .tsv are delimited text with a
// header row, .jsonl and .ndjson hold one JSON object per line, .json holds an
// array of objects, and .parquet is read column by column. Column names match
// case-insensitively; the identifier column may also be called "identifier" or
// "book_id".
package corpus

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"bookrec/internal/domain"
)

// Canonical column names.
const (
	ColID      = "id"
	ColTitle   = "title"
	ColAuthor  = "author"
	ColGenres  = "genres"
	ColSummary = "summary"
	ColYear    = "year"
)

var required = []string{ColID, ColTitle, ColAuthor, ColSummary}

var aliases = map[string]string{
	"id":               ColID,
	"identifier":       ColID,
	"book_id":          ColID,
	"title":            ColTitle,
	"author":           ColAuthor,
	"genres":           ColGenres,
	"genre":            ColGenres,
	"summary":          ColSummary,
	"year":             ColYear,
	"publication_year": ColYear,
}

// canonical maps a header to its canonical column name, or "" when the column is not used.
func canonical(header string) string {
	return aliases[strings.ToLower(strings.TrimSpace(header))]
}

// row is one raw record keyed by canonical column name.
// genres collects list-valued genre cells (JSON arrays, Parquet lists).
type row struct {
	num    int
	fields map[string]string
	genres []string
}

func newRow(num int) row { return row{num: num, fields: make(map[string]string)} }

// Load reads the corpus at path. Failures wrap domain.ErrDataFormat and name the path.
func Load(path string) ([]domain.Document, error) {
	var (
		cols map[string]bool
		rows []row
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		cols, rows, err = readDelimited(path, ',')
	case ".tsv":
		cols, rows, err = readDelimited(path, '\t')
	case ".jsonl", ".ndjson":
		cols, rows, err = readJSONLines(path)
	case ".json":
		cols, rows, err = readJSONArray(path)
	case ".parquet":
		cols, rows, err = readParquet(path)
	default:
		return nil, domain.NewDataFormatError(path, fmt.Sprintf("unsupported file extension %q", ext), nil)
	}
	if err != nil {
		return nil, err
	}
	return build(path, cols, rows)
}

func build(path string, cols map[string]bool, rows []row) ([]domain.Document, error) {
	for _, c := range required {
		if !cols[c] {
			return nil, domain.NewDataFormatError(path, fmt.Sprintf("missing required column %q", c), nil)
		}
	}
	docs := make([]domain.Document, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for _, r := range rows {
		d, err := toDocument(r)
		if err != nil {
			return nil, domain.NewDataFormatError(path, fmt.Sprintf("row %d: %s", r.num, err), nil)
		}
		if prev, ok := seen[d.ID]; ok {
			return nil, domain.NewDataFormatError(path, fmt.Sprintf("row %d: duplicate id %q (first seen in row %d)", r.num, d.ID, prev), nil)
		}
		seen[d.ID] = r.num
		docs = append(docs, d)
	}
	return docs, nil
}

func toDocument(r row) (domain.Document, error) {
	for _, c := range required {
		if strings.TrimSpace(r.fields[c]) == "" {
			return domain.Document{}, fmt.Errorf("empty %s", c)
		}
	}
	d := domain.Document{
		ID:      strings.TrimSpace(r.fields[ColID]),
		Title:   strings.TrimSpace(r.fields[ColTitle]),
		Author:  strings.TrimSpace(r.fields[ColAuthor]),
		Summary: strings.Join(strings.Fields(r.fields[ColSummary]), " "),
	}
	d.Genres = SplitGenres(r.fields[ColGenres])
	for _, g := range r.genres {
		d.Genres = append(d.Genres, SplitGenres(g)...)
	}
	if y := strings.TrimSpace(r.fields[ColYear]); y != "" {
		year, err := parseYear(y)
		if err != nil {
			return domain.Document{}, fmt.Errorf("invalid year %q", y)
		}
		d.Year = year
	}
	return d, nil
}

// parseYear accepts integers and integral floats such as "1999.0" written by dataframe exports.
func parseYear(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer year: %q", s)
	}
	return int(f), nil
}

// SplitGenres splits a comma-joined genre list, trimming entries and dropping empty ones.
func SplitGenres(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
