// Package graphkb pairs a semantic graph with embedding vectors and images
// and answers similarity queries over the embeddings.
//
// Ingest parses a graph, links every entity of a given type to the vector
// and image files named by its integer id, builds a random projection forest
// over the vectors and packs graph, index, metadata and images into a single
// container file. Open reopens such a container for read-only querying.
//
// # Quick Start
//
//	ctx := context.Background()
//	kb, err := graphkb.Ingest(ctx, graphkb.IngestRequest{
//	    GraphSource:  "data/items.ttl",
//	    EmbeddingDir: "data/embeddings",
//	    ImageDir:     "data/images",
//	    OutputDir:    "out",
//	    EntityType:   "http://example.org/Item",
//	    IDPredicate:  "http://example.org/id",
//	}, graphkb.WithTrees(20))
//	if err != nil {
//	    return err
//	}
//	defer kb.Close()
//
//	ids, err := kb.SelectSimilar(ctx, 42, 5)
//
// Reopen later, or from object storage:
//
//	kb, err := graphkb.Open(ctx, "out/kb.ttlplus")
//	kb, err := graphkb.OpenBlob(ctx, store, "kb.ttlplus", graphkb.WithCacheDir("/var/cache/kb"))
//
// # Errors
//
// Unknown entities and entities without an embedding are not errors:
// SelectSimilar returns an empty result. Unusable input (missing
// directories, inconsistent vector lengths, malformed containers) is reported
// as *InputError; failures to acquire or release local resources as
// *ResourceError.
//
// # Resources
//
// The index is memory-mapped from a scratch directory beside the container.
// Close must be called to release the mapping and remove the directory.
package graphkb
