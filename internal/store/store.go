// Package store persists trained models.
//
// A model file is a gob-encoded envelope holding a magic string, a format version,
// metadata, and the gzip-compressed gob payload together with its SHA-256 checksum.
// Files are written to a temporary name and renamed into place.
package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bookrec/internal/domain"
	"bookrec/internal/embedding"
	"bookrec/internal/model"
)

const (
	magic = "bookrec-model"
	// FormatVersion is bumped whenever the payload layout changes.
	FormatVersion = 1
	// Extension is the suffix of every model file.
	Extension = ".gob.gz"
)

// Metadata describes a stored model.
type Metadata struct {
	Name      string
	Provider  string
	Documents int
	Dimension int
	TrainedAt time.Time
	SavedAt   time.Time
	Checksum  string
	SizeBytes int64
}

// envelope is the on-disk format for model files.
type envelope struct {
	Magic          string
	Version        int
	Metadata       Metadata
	CompressedData []byte
}

type payload struct {
	Params           domain.Hyperparameters
	Provider         string
	State            []byte
	Documents        []domain.Document
	Vectors          [][]float64
	TrainedAt        time.Time
	TrainingDuration time.Duration
}

// Path returns the file a model named name is saved to inside dir.
func Path(name, dir string) string {
	return filepath.Join(dir, sanitize(name)+Extension)
}

// Save writes m under dir using a filename derived from name and returns the path.
func Save(m *model.Model, name, dir string) (string, error) {
	state, err := m.Embedder().MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode %s state: %w", m.Provider(), err)
	}
	p := payload{
		Params:           m.Params(),
		Provider:         m.Provider(),
		State:            state,
		Documents:        m.Documents(),
		Vectors:          m.Vectors(),
		TrainedAt:        m.TrainedAt(),
		TrainingDuration: m.TrainingDuration(),
	}
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(p); err != nil {
		return "", fmt.Errorf("encode model: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return "", fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	env := envelope{
		Magic:   magic,
		Version: FormatVersion,
		Metadata: Metadata{
			Name:      name,
			Provider:  m.Provider(),
			Documents: m.Len(),
			Dimension: m.Dimension(),
			TrainedAt: m.TrainedAt(),
			SavedAt:   time.Now(),
			Checksum:  hex.EncodeToString(hash[:]),
			SizeBytes: int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	path := Path(name, dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", domain.NewIOError(dir, err)
	}
	if err := writeAtomic(path, env); err != nil {
		return "", domain.NewIOError(path, err)
	}
	return path, nil
}

func writeAtomic(path string, env envelope) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".bookrec-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := gob.NewEncoder(f).Encode(env); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*model.Model, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	gzr, err := gzip.NewReader(bytes.NewReader(env.CompressedData))
	if err != nil {
		return nil, domain.NewDataFormatError(path, "decompress model", err)
	}
	defer func() { _ = gzr.Close() }()
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, domain.NewDataFormatError(path, "read decompressed data", err)
	}

	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != env.Metadata.Checksum {
		return nil, domain.NewDataFormatError(path, fmt.Sprintf("checksum mismatch: expected %s, got %s", env.Metadata.Checksum, got), nil)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, domain.NewDataFormatError(path, "decode model", err)
	}
	emb, err := embedding.Restore(p.Provider, p.State)
	if err != nil {
		return nil, domain.NewDataFormatError(path, "restore embedder", err)
	}
	m, err := model.New(emb, p.Params, p.Documents, p.Vectors, p.TrainedAt, p.TrainingDuration)
	if err != nil {
		return nil, domain.NewDataFormatError(path, "rebuild model", err)
	}
	return m, nil
}

// ReadMetadata returns the metadata of a model file without decoding the payload.
func ReadMetadata(path string) (*Metadata, error) {
	env, err := readEnvelope(path)
	if err != nil {
		return nil, err
	}
	return &env.Metadata, nil
}

// List returns metadata for every model file in dir, sorted by name.
// Unreadable files are skipped.
func List(dir string) ([]Metadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.NewIOError(dir, err)
	}
	var out []Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		meta, err := ReadMetadata(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, *meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func readEnvelope(path string) (*envelope, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewDataFormatError(path, "model file does not exist", err)
		}
		return nil, domain.NewDataFormatError(path, "open model file", err)
	}
	defer func() { _ = f.Close() }()

	var env envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, domain.NewDataFormatError(path, "unreadable header", err)
	}
	if env.Magic != magic {
		return nil, domain.NewDataFormatError(path, "not a bookrec model file", nil)
	}
	if env.Version != FormatVersion {
		return nil, domain.NewDataFormatError(path, fmt.Sprintf("format version %d, expected %d", env.Version, FormatVersion), nil)
	}
	return &env, nil
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "model"
	}
	return s
}
