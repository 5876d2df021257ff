package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookrec/internal/config"
	"bookrec/internal/embedding"
	"bookrec/internal/logger"
	"bookrec/internal/model"
	"bookrec/internal/presenter"
	"bookrec/internal/service"
	"bookrec/internal/store"
	"bookrec/internal/summarizer"
	"bookrec/internal/vectorstore"
	"bookrec/internal/vectorstore/memory"
	"bookrec/internal/vectorstore/qdrant"
)

// app carries what every subcommand needs once the root command has loaded configuration.
type app struct {
	cfgPath string
	cfg     *config.AppConfig
	logger  *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bookrec",
		Short:         "bookrec recommends books with similar summaries using paragraph embeddings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ./config.yaml, then ~/.config/bookrec/config.yaml)")

	cmd.AddCommand(
		newTrainCmd(a),
		newSimilarCmd(a),
		newBrowseCmd(a),
		newServeCmd(a),
		newModelsCmd(a),
	)
	return cmd
}

// fail reports err through the configured logger, or plainly on stderr when
// the command failed before a logger could be built.
func (a *app) fail(err error) {
	if a.logger == nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return
	}
	a.logger.Error("command failed", zap.Error(err))
	_ = a.logger.Sync()
}

func (a *app) init() error {
	_ = godotenv.Load()

	cfg, path, err := config.Resolve(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	l, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = l
	a.logger.Debug("configuration loaded", zap.String("path", path))
	return nil
}

func (a *app) openAIOptions() *embedding.OpenAIOptions {
	o := a.cfg.Embedder.OpenAI
	if o == nil {
		return nil
	}
	return &embedding.OpenAIOptions{
		BaseURL:   o.BaseURL,
		APIKeyEnv: o.APIKeyEnv,
		Model:     o.Model,
		Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
		BatchSize: o.BatchSize,
	}
}

// modelPath returns path, or the configured default model file when path is empty.
func (a *app) modelPath(path string) string {
	if path != "" {
		return path
	}
	return store.Path(a.cfg.Store.Name, a.cfg.Store.Dir)
}

func (a *app) loadModel(path string) (*model.Model, error) {
	path = a.modelPath(path)
	m, err := store.Load(path)
	if err != nil {
		return nil, err
	}
	a.logger.Info("model loaded",
		zap.String("path", path),
		zap.String("provider", m.Provider()),
		zap.Int("documents", m.Len()),
		zap.Int("dimension", m.Dimension()),
	)
	return m, nil
}

func (a *app) presenter() *presenter.Presenter {
	return presenter.New(summarizer.NewFrequencySummarizer(), a.cfg.Summarizer.MaxSentences)
}

func (a *app) vectorStore() (vectorstore.Storage, error) {
	switch a.cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		q := a.cfg.VectorStore.Qdrant
		if q == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     os.ExpandEnv(q.APIKey),
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", a.cfg.VectorStore.Type)
	}
}

func (a *app) recommender(opts ...service.Option) *service.Recommender {
	return service.NewRecommender(a.cfg.Query.K, a.logger, opts...)
}
