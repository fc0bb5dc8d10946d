package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/graphkb"
	"github.com/hupe1980/graphkb/distance"
)

type ingestFlags struct {
	graph       string
	embeddings  string
	out         string
	entityType  string
	idPredicate string
	images      string
	trees       int
	metric      string
}

func newIngestCmd(a *app) *cobra.Command {
	var f ingestFlags

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build a knowledge base container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("trees") {
				a.cfg.Index.Trees = f.trees
			}
			if flags.Changed("metric") {
				if _, err := distance.Parse(f.metric); err != nil {
					return err
				}
				a.cfg.Index.Metric = f.metric
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			req := graphkb.IngestRequest{
				GraphSource:  f.graph,
				EmbeddingDir: f.embeddings,
				OutputDir:    f.out,
				EntityType:   firstNonEmpty(f.entityType, a.cfg.Ingest.EntityType),
				IDPredicate:  firstNonEmpty(f.idPredicate, a.cfg.Ingest.IDPredicate),
				ImageDir:     f.images,
			}
			if req.ImageDir == "" && isDir(a.cfg.Ingest.ImagesFolder) {
				req.ImageDir = a.cfg.Ingest.ImagesFolder
			}

			kb, err := graphkb.Ingest(cmd.Context(), req, a.options()...)
			if err != nil {
				return err
			}
			defer kb.Close()

			st := kb.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d entities, %d vectors of length %d, %d images\n",
				st.Path, st.Entities, st.Index.Items, st.Metadata.VectorLength, st.Images)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.graph, "graph", "", "graph file (.ttl, .nt or .rdf)")
	flags.StringVar(&f.embeddings, "embeddings", "", "directory of <id>.<ext> vector files")
	flags.StringVar(&f.out, "out", "", "output directory of the container")
	flags.StringVar(&f.entityType, "entity-type", "", "IRI of the entity type to link")
	flags.StringVar(&f.idPredicate, "id-predicate", "", "IRI of the integer id predicate")
	flags.StringVar(&f.images, "images", "", "directory of <id>.<ext> image files")
	flags.IntVar(&f.trees, "trees", 0, "number of random projection trees")
	flags.StringVar(&f.metric, "metric", "", "distance metric: angular, euclidean, manhattan, hamming or dot")
	_ = cmd.MarkFlagRequired("graph")
	_ = cmd.MarkFlagRequired("embeddings")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
