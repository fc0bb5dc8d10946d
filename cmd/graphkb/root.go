package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/graphkb"
	"github.com/hupe1980/graphkb/config"
)

// app carries state shared by the subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *graphkb.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "graphkb",
		Short:         "Build and query graph knowledge bases with embedding similarity",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newIngestCmd(a),
		newSimilarCmd(a),
		newImagesCmd(a),
		newInfoCmd(a),
		newPublishCmd(a),
		newFetchCmd(a),
	)
	return cmd
}

// load layers the config file and the persistent flags over the defaults.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.Logger()
	return nil
}

// options returns the knowledge base options of the loaded config.
func (a *app) options() []graphkb.Option {
	return append(a.cfg.Options(), graphkb.WithLogger(a.logger))
}

const longRoot = `
graphkb links the entities of a semantic graph to embedding vectors and
images, builds a random projection forest over the vectors and packs
everything into a single container file.

Examples:
  # Build a container from a Turtle file and a directory of .npy vectors.
  graphkb ingest --graph items.ttl --embeddings emb --out kb \
    --entity-type http://example.org/Item --id-predicate http://example.org/id

  # Query the ten nearest neighbors of entity 42.
  graphkb similar --kb kb/kb.ttlplus --id 42
`
