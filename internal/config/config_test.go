package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/domain"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, Validate(cfg))
}

func TestLoadMergesDefaults(t *testing.T) {
	path := write(t, `
embedder:
  type: tfidf
  params:
    vector_size: 100
    min_count: 3
query:
  k: 5
vector_store:
  type: qdrant
  qdrant:
    collection: novels
logging:
  env: prod
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, 100, cfg.Embedder.Params.VectorSize)
	assert.Equal(t, 3, cfg.Embedder.Params.MinCount)
	assert.Equal(t, domain.DefaultHyperparameters().Epochs, cfg.Embedder.Params.Epochs)
	assert.Equal(t, domain.DefaultHyperparameters().Alpha, cfg.Embedder.Params.Alpha)
	assert.Equal(t, 5, cfg.Query.K)
	assert.Equal(t, 3, cfg.Summarizer.MaxSentences)
	assert.Equal(t, "novels", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "prod", cfg.Logging.Env)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown embedder", "embedder:\n  type: word2vec\n"},
		{"negative k", "query:\n  k: -1\n"},
		{"negative min count", "embedder:\n  params:\n    min_count: -2\n"},
		{"min alpha above alpha", "embedder:\n  params:\n    alpha: 0.01\n    min_alpha: 0.5\n"},
		{"unknown store", "vector_store:\n  type: redis\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"not yaml", "embedder: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Query.K = 7
	cfg.Store.Dir = "/var/lib/bookrec"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefaultWritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "bookrec", "config.yaml"), path)
	assert.Equal(t, Default(), cfg)
	assert.FileExists(t, path)

	require.NoError(t, os.WriteFile("config.yaml", []byte("query:\n  k: 4\n"), 0o600))
	cfg, path, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)
	assert.Equal(t, 4, cfg.Query.K)
}

func TestResolve(t *testing.T) {
	path := write(t, "query:\n  k: 2\n")
	cfg, got, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, 2, cfg.Query.K)
}

func TestHTTPDurations(t *testing.T) {
	h := Default().HTTP
	assert.Equal(t, "30s", h.RequestTimeout().String())
	assert.Equal(t, "10s", h.ShutdownTimeout().String())
}
