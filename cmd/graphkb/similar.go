package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/graphkb"
)

func newSimilarCmd(a *app) *cobra.Command {
	var (
		src kbFlags
		id  uint64
		k   int
	)

	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Print the ids most similar to an entity, nearest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := a.open(cmd.Context(), src)
			if err != nil {
				return err
			}
			defer kb.Close()

			ids, err := kb.SelectSimilar(cmd.Context(), id, k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range ids {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().Uint64Var(&id, "id", 0, "entity id")
	cmd.Flags().IntVarP(&k, "k", "k", graphkb.DefaultK, "number of neighbors")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
