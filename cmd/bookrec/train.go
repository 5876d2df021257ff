package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookrec/internal/corpus"
	"bookrec/internal/embedding"
	"bookrec/internal/metrics"
	"bookrec/internal/model"
	"bookrec/internal/store"
)

type trainOptions struct {
	corpus   string
	name     string
	dir      string
	embedder string
}

func newTrainCmd(a *app) *cobra.Command {
	var o trainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model over a book corpus and save it",
		Example: "bookrec train --corpus books.csv --name books\n" +
			"bookrec train --corpus books.parquet --embedder tfidf --dir ./models",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.train(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.corpus, "corpus", "", "corpus file (.csv, .tsv, .jsonl, .json, .parquet); defaults to corpus.path")
	cmd.Flags().StringVar(&o.name, "name", "", "model name; defaults to store.name")
	cmd.Flags().StringVar(&o.dir, "dir", "", "output directory; defaults to store.dir")
	cmd.Flags().StringVar(&o.embedder, "embedder", "", "embedding provider (paragraph, tfidf, openai); defaults to embedder.type")
	return cmd
}

func (a *app) train(cmd *cobra.Command, o trainOptions) error {
	if o.corpus == "" {
		o.corpus = a.cfg.Corpus.Path
	}
	if o.corpus == "" {
		return fmt.Errorf("no corpus given: pass --corpus or set corpus.path")
	}
	if o.name == "" {
		o.name = a.cfg.Store.Name
	}
	if o.dir == "" {
		o.dir = a.cfg.Store.Dir
	}
	if o.embedder == "" {
		o.embedder = a.cfg.Embedder.Type
	}

	docs, err := corpus.Load(o.corpus)
	if err != nil {
		return err
	}
	a.logger.Info("corpus loaded", zap.String("path", o.corpus), zap.Int("documents", len(docs)))

	emb, err := embedding.New(o.embedder, a.openAIOptions())
	if err != nil {
		return err
	}
	m, err := model.Train(cmd.Context(), emb, a.cfg.Embedder.Params, docs, a.logger)
	if err != nil {
		return err
	}
	metrics.TrainingDuration.WithLabelValues(m.Provider()).Set(m.TrainingDuration().Seconds())

	path, err := store.Save(m, o.name, o.dir)
	if err != nil {
		return err
	}
	a.logger.Info("model saved", zap.String("path", path))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
