package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookrec/internal/domain"
)

type similarOptions struct {
	model       string
	title       string
	text        string
	k           int
	showSummary bool
}

func newSimilarCmd(a *app) *cobra.Command {
	var o similarOptions
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Print the books most similar to a title or to free text",
		Example: "bookrec similar --title \"The Hobbit\" -k 5\n" +
			"bookrec similar --text \"a boy learns he is a wizard\" --summary",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.similar(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.model, "model", "", "model file; defaults to the configured store path")
	cmd.Flags().StringVar(&o.title, "title", "", "title or identifier of a book in the model")
	cmd.Flags().StringVar(&o.text, "text", "", "free text to compare against; used when the title is unknown")
	cmd.Flags().IntVarP(&o.k, "k", "k", 0, "number of results; defaults to query.k")
	cmd.Flags().BoolVar(&o.showSummary, "summary", false, "include a short summary of each result")
	return cmd
}

func (a *app) similar(cmd *cobra.Command, o similarOptions) error {
	if strings.TrimSpace(o.title) == "" && strings.TrimSpace(o.text) == "" {
		return domain.ErrEmptyQuery
	}
	m, err := a.loadModel(o.model)
	if err != nil {
		return err
	}
	res, err := a.recommender().Recommend(cmd.Context(), m, o.title, o.text, o.k)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), a.presenter().Present(res, o.showSummary))
	return nil
}
