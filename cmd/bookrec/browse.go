package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bookrec/internal/tui"
)

func newBrowseCmd(a *app) *cobra.Command {
	var modelPath string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse recommendations interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.loadModel(modelPath)
			if err != nil {
				return err
			}
			info := fmt.Sprintf("%d books, %s embeddings (%d dims)", m.Len(), m.Provider(), m.Dimension())
			ui := tui.New(a.recommender().Bind(m), a.presenter(), a.cfg.Query.K, info)
			_, err = tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model file; defaults to the configured store path")
	return cmd
}
