package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bookrec/internal/store"
)

func newModelsCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List saved models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = a.cfg.Store.Dir
			}
			metas, err := store.List(dir)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPROVIDER\tBOOKS\tDIMENSION\tTRAINED")
			for _, md := range metas {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", md.Name, md.Provider, md.Documents, md.Dimension, md.TrainedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "model directory; defaults to store.dir")
	return cmd
}
