package corpus

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"

	"bookrec/internal/domain"
)

const maxLineSize = 16 << 20

func readJSONLines(path string) (map[string]bool, []row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, domain.NewDataFormatError(path, "cannot open corpus", err)
	}
	defer f.Close()

	cols := make(map[string]bool)
	var rows []row
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, nil, domain.NewDataFormatError(path, fmt.Sprintf("line %d: invalid JSON", n), err)
		}
		rw, err := objectRow(n, obj, cols)
		if err != nil {
			return nil, nil, domain.NewDataFormatError(path, fmt.Sprintf("line %d: %s", n, err), nil)
		}
		rows = append(rows, rw)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, domain.NewDataFormatError(path, "cannot read corpus", err)
	}
	return cols, rows, nil
}

func readJSONArray(path string) (map[string]bool, []row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, domain.NewDataFormatError(path, "cannot open corpus", err)
	}
	var objs []map[string]any
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil, nil, domain.NewDataFormatError(path, "expected a JSON array of objects", err)
	}
	cols := make(map[string]bool)
	rows := make([]row, 0, len(objs))
	for i, obj := range objs {
		rw, err := objectRow(i+1, obj, cols)
		if err != nil {
			return nil, nil, domain.NewDataFormatError(path, fmt.Sprintf("record %d: %s", i+1, err), nil)
		}
		rows = append(rows, rw)
	}
	return cols, rows, nil
}

// objectRow converts a decoded JSON object and records which canonical columns it carries.
func objectRow(n int, obj map[string]any, cols map[string]bool) (row, error) {
	rw := newRow(n)
	for k, v := range obj {
		name := canonical(k)
		if name == "" {
			continue
		}
		cols[name] = true
		switch v := v.(type) {
		case nil:
		case string:
			rw.fields[name] = v
		case float64:
			rw.fields[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			rw.fields[name] = strconv.FormatBool(v)
		case []any:
			if name != ColGenres {
				return row{}, fmt.Errorf("column %q must not be a list", k)
			}
			for _, g := range v {
				s, ok := g.(string)
				if !ok {
					return row{}, fmt.Errorf("genres must be strings, got %T", g)
				}
				rw.genres = append(rw.genres, s)
			}
		default:
			return row{}, fmt.Errorf("unsupported value for column %q", k)
		}
	}
	return rw, nil
}
