package corpus

import (
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"bookrec/internal/domain"
)

// readParquet walks every row group with the generic row reader and maps leaf columns by name.
// List columns (e.g. genres stored as list<string>) contribute one value per element.
func readParquet(path string) (map[string]bool, []row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, domain.NewDataFormatError(path, "cannot open corpus", err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, nil, domain.NewDataFormatError(path, "cannot stat corpus", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, nil, domain.NewDataFormatError(path, "not a parquet file", err)
	}

	cols := make(map[string]bool)
	leaf := make(map[int]string)
	for i, p := range pf.Schema().Columns() {
		if len(p) == 0 {
			continue
		}
		if name := canonical(p[0]); name != "" {
			cols[name] = true
			leaf[i] = name
		}
	}

	var rows []row
	n := 0
	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rr := parquet.NewRowGroupReader(rg)
		for {
			cnt, readErr := rr.ReadRows(buf)
			for i := 0; i < cnt; i++ {
				n++
				rows = append(rows, parquetRow(n, buf[i], leaf))
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, nil, domain.NewDataFormatError(path, "cannot read rows", readErr)
			}
		}
	}
	return cols, rows, nil
}

func parquetRow(n int, values parquet.Row, leaf map[int]string) row {
	rw := newRow(n)
	for _, v := range values {
		name, ok := leaf[v.Column()]
		if !ok || v.IsNull() {
			continue
		}
		s := valueString(v)
		if name == ColGenres {
			rw.genres = append(rw.genres, s)
			continue
		}
		rw.fields[name] = s
	}
	return rw
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	default:
		return v.String()
	}
}
