package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/hupe1980/graphkb"
)

// kbFlags select a container: a local path, or a blob name in the configured
// store.
type kbFlags struct {
	path string
	blob string
}

func (f *kbFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "kb", "", "path of a container")
	cmd.Flags().StringVar(&f.blob, "blob", "", "name of a container in the configured store")
	cmd.MarkFlagsMutuallyExclusive("kb", "blob")
	cmd.MarkFlagsOneRequired("kb", "blob")
}

func (a *app) open(ctx context.Context, f kbFlags) (*graphkb.KnowledgeBase, error) {
	switch {
	case f.path != "":
		return graphkb.Open(ctx, f.path, a.options()...)
	case f.blob != "":
		store, err := a.store(ctx)
		if err != nil {
			return nil, err
		}
		return graphkb.OpenBlob(ctx, store, f.blob, a.options()...)
	default:
		return nil, errors.New("one of --kb or --blob is required")
	}
}
