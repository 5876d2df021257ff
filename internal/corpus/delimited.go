package corpus

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"bookrec/internal/domain"
)

func readDelimited(path string, comma rune) (map[string]bool, []row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, domain.NewDataFormatError(path, "cannot open corpus", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.LazyQuotes = comma == '\t'
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, domain.NewDataFormatError(path, "empty file", nil)
		}
		return nil, nil, domain.NewDataFormatError(path, "cannot read header", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	cols := make(map[string]bool, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = canonical(h)
		if names[i] != "" {
			cols[names[i]] = true
		}
	}

	var rows []row
	for n := 2; ; n++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, domain.NewDataFormatError(path, "malformed record", err)
		}
		rw := newRow(n)
		for i, v := range rec {
			if names[i] != "" {
				rw.fields[names[i]] = v
			}
		}
		rows = append(rows, rw)
	}
	return cols, rows, nil
}
