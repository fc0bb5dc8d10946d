package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/graphkb"
	"github.com/hupe1980/graphkb/render"
)

func newImagesCmd(a *app) *cobra.Command {
	var (
		src kbFlags
		id  uint64
		k   int
		out string
	)

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Write the images of an entity and its neighbors, in rank order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := render.NewDir(out)
			if err != nil {
				return err
			}

			kb, err := a.open(cmd.Context(), src)
			if err != nil {
				return err
			}
			defer kb.Close()

			n, err := kb.SelectSimilarArtifact(cmd.Context(), id, k, render.RendererFunc(func(ctx context.Context, img render.Image) error {
				if err := dir.Render(ctx, img); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", img.Title, render.FileName(img))
				return nil
			}))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d images to %s\n", n, dir.Path())
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().Uint64Var(&id, "id", 0, "entity id")
	cmd.Flags().IntVarP(&k, "k", "k", graphkb.DefaultK, "number of neighbors")
	cmd.Flags().StringVar(&out, "out", "", "output directory")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
