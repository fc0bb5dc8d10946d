package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	var src kbFlags

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe a knowledge base container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := a.open(cmd.Context(), src)
			if err != nil {
				return err
			}
			defer kb.Close()

			st := kb.Stats()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "path\t%s\n", st.Path)
			fmt.Fprintf(w, "created\t%s\n", st.Metadata.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "entity type\t%s\n", st.Metadata.EntityType)
			fmt.Fprintf(w, "id predicate\t%s\n", st.Metadata.IDPredicate)
			fmt.Fprintf(w, "triples\t%d\n", st.Triples)
			fmt.Fprintf(w, "entities\t%d\n", st.Entities)
			fmt.Fprintf(w, "images\t%d\n", st.Images)
			fmt.Fprintf(w, "vectors\t%d\n", st.Index.Items)
			fmt.Fprintf(w, "vector length\t%d\n", st.Metadata.VectorLength)
			fmt.Fprintf(w, "metric\t%s\n", st.Index.Metric)
			fmt.Fprintf(w, "trees\t%d (%d nodes, leaf size %d)\n", st.Index.Trees, st.Index.Nodes, st.Index.LeafSize)
			fmt.Fprintf(w, "graph compression\t%s\n", st.Metadata.GraphCompression)
			return w.Flush()
		},
	}

	src.register(cmd)
	return cmd
}
