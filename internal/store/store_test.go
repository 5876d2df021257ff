package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookrec/internal/domain"
	"bookrec/internal/embedding/paragraph"
	"bookrec/internal/embedding/tfidf"
	"bookrec/internal/model"
)

func books() []domain.Document {
	return []domain.Document{
		{ID: "1", Title: "A", Author: "Ann", Genres: []string{"Science Fiction", "Adventure"}, Summary: "a spaceship flies to mars", Year: 1990},
		{ID: "2", Title: "B", Author: "Bob", Genres: []string{"Science Fiction"}, Summary: "a starship flies to jupiter", Year: 1991},
		{ID: "3", Title: "C", Author: "Cid", Summary: "a chef bakes a cake"},
	}
}

func trained(t *testing.T, emb domain.Embedder) *model.Model {
	t.Helper()
	p := domain.DefaultHyperparameters()
	p.MinCount = 1
	p.VectorSize = 8
	p.Epochs = 20
	m, err := model.Train(context.Background(), emb, p, books(), zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, emb := range []domain.Embedder{paragraph.NewEmbedder(), tfidf.NewEmbedder()} {
		t.Run(emb.Name(), func(t *testing.T) {
			m := trained(t, emb)
			dir := filepath.Join(t.TempDir(), "models", "nested")

			path, err := Save(m, "books", dir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "books.gob.gz"), path)

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, m.Vectors(), loaded.Vectors())
			assert.Equal(t, m.Documents(), loaded.Documents())
			assert.Equal(t, m.Params(), loaded.Params())
			assert.Equal(t, m.Provider(), loaded.Provider())
			assert.Equal(t, m.Dimension(), loaded.Dimension())
			assert.True(t, m.TrainedAt().Equal(loaded.TrainedAt()))

			want, err := m.Infer(context.Background(), "a starship to jupiter")
			require.NoError(t, err)
			got, err := loaded.Infer(context.Background(), "a starship to jupiter")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("d", "my_model_v1.gob.gz"), Path("my model/v1", "d"))
	assert.Equal(t, filepath.Join("d", "model.gob.gz"), Path(" .. ", "d"))
	assert.Equal(t, Path("x", "d"), Path("x", "d"))
}

func TestSaveIOError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o600))

	_, err := Save(trained(t, tfidf.NewEmbedder()), "books", filepath.Join(blocker, "sub"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIO))
	assert.Contains(t, err.Error(), "blocker")
}

func writeEnvelope(t *testing.T, path string, env envelope) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gob.NewEncoder(f).Encode(env))
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		setup func(t *testing.T, path string)
	}{
		{"missing", func(t *testing.T, path string) {}},
		{"garbage", func(t *testing.T, path string) {
			require.NoError(t, os.WriteFile(path, []byte("definitely not a model"), 0o600))
		}},
		{"wrong magic", func(t *testing.T, path string) {
			writeEnvelope(t, path, envelope{Magic: "other", Version: FormatVersion})
		}},
		{"version mismatch", func(t *testing.T, path string) {
			writeEnvelope(t, path, envelope{Magic: magic, Version: FormatVersion + 1})
		}},
		{"not gzip", func(t *testing.T, path string) {
			writeEnvelope(t, path, envelope{Magic: magic, Version: FormatVersion, CompressedData: []byte("raw")})
		}},
		{"checksum mismatch", func(t *testing.T, path string) {
			writeEnvelope(t, path, envelope{
				Magic:          magic,
				Version:        FormatVersion,
				Metadata:       Metadata{Checksum: "00"},
				CompressedData: gzipped(t, []byte("payload")),
			})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+Extension)
			tt.setup(t, path)
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrDataFormat), err.Error())
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestLoadTruncatedFile(t *testing.T) {
	path, err := Save(trained(t, tfidf.NewEmbedder()), "books", t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o600))

	_, err = Load(path)
	assert.True(t, errors.Is(err, domain.ErrDataFormat))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(trained(t, tfidf.NewEmbedder()), "zeta", dir)
	require.NoError(t, err)
	_, err = Save(trained(t, paragraph.NewEmbedder()), "alpha", dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk"+Extension), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	metas, err := List(dir)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "alpha", metas[0].Name)
	assert.Equal(t, "paragraph", metas[0].Provider)
	assert.Equal(t, 8, metas[0].Dimension)
	assert.Equal(t, "zeta", metas[1].Name)
	assert.Equal(t, 3, metas[1].Documents)
	assert.Positive(t, metas[1].SizeBytes)

	_, err = List(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, domain.ErrIO))
}
