package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/graphkb/blobstore"
	"github.com/hupe1980/graphkb/config"
)

// storeFlags override the store section of the config.
type storeFlags struct {
	backend string
	bucket  string
	prefix  string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "backend", "", "blob store backend: local, minio or s3")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "bucket name, or the root directory of the local backend")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "key prefix inside the bucket")
}

func (f *storeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Store.Backend = f.backend
	}
	if flags.Changed("bucket") {
		if cfg.Store.Backend == config.BackendLocal {
			cfg.Store.Root = f.bucket
		} else {
			cfg.Store.Bucket = f.bucket
		}
	}
	if flags.Changed("prefix") {
		cfg.Store.Prefix = f.prefix
	}
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		sf   storeFlags
		kb   string
		name string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a container to the blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sf.apply(cmd, a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(kb)
			}

			n, err := blobstore.Publish(cmd.Context(), store, name, kb,
				blobstore.WithResourceController(a.cfg.ResourceController()),
				blobstore.WithLogger(a.logger.Logger))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s (%d bytes)\n", name, n)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVar(&kb, "kb", "", "path of the container to upload")
	cmd.Flags().StringVar(&name, "name", "", "blob name (default: file name of --kb)")
	_ = cmd.MarkFlagRequired("kb")
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	var (
		sf    storeFlags
		name  string
		cache string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a container from the blob store into a cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sf.apply(cmd, a.cfg)
			if cmd.Flags().Changed("cache") {
				a.cfg.Archive.CacheDir = cache
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}

			path, err := blobstore.Fetch(cmd.Context(), store, name, a.cfg.Archive.CacheDir,
				blobstore.WithResourceController(a.cfg.ResourceController()),
				blobstore.WithLogger(a.logger.Logger))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "blob name")
	cmd.Flags().StringVar(&cache, "cache", "", "cache directory")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
