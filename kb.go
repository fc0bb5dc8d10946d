package graphkb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/graphkb/archive"
	"github.com/hupe1980/graphkb/blobstore"
	"github.com/hupe1980/graphkb/codec"
	"github.com/hupe1980/graphkb/graph"
	"github.com/hupe1980/graphkb/index/forest"
	"github.com/hupe1980/graphkb/internal/conv"
	"github.com/hupe1980/graphkb/reify"
	"github.com/hupe1980/graphkb/render"
	"github.com/hupe1980/graphkb/vocab"
)

// IngestRequest names the raw inputs of a knowledge base.
type IngestRequest struct {
	// GraphSource is a Turtle, N-Triples or RDF/XML file. Ignored when Graph
	// is set.
	GraphSource string
	// Graph is an already parsed graph. It is enriched in place.
	Graph *graph.Memory
	// EmbeddingDir holds vector files named <id>.<ext>.
	EmbeddingDir string
	// OutputDir receives the container.
	OutputDir string
	// EntityType is the IRI of the rdf:type of the entities to link.
	EntityType string
	// IDPredicate is the IRI of the predicate holding the integer entity id.
	IDPredicate string
	// ImageDir optionally holds image files named <id>.<ext>.
	ImageDir string
}

func (r IngestRequest) validate() error {
	var missing string
	switch {
	case r.GraphSource == "" && r.Graph == nil:
		missing = "graph source"
	case r.EmbeddingDir == "":
		missing = "embedding directory"
	case r.OutputDir == "":
		missing = "output directory"
	case r.EntityType == "":
		missing = "entity type"
	case r.IDPredicate == "":
		missing = "id predicate"
	default:
		return nil
	}
	return &InputError{Op: "ingest", Err: fmt.Errorf("missing %s", missing)}
}

// KnowledgeBase is an open, read-only knowledge base: the enriched graph, the
// memory-mapped vector index and the images of one container.
//
// It is safe for concurrent use. Close releases the index mapping, removes
// the scratch directory and closes the container, in that order.
type KnowledgeBase struct {
	mu     sync.RWMutex
	closed bool

	archive     *archive.Archive
	graph       *graph.Memory
	index       *forest.Index
	meta        codec.Record
	entityType  graph.Term
	idPredicate graph.Term
	entities    int

	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// Stats summarizes an open knowledge base.
type Stats struct {
	Path       string
	Triples    int
	Entities   int
	Images     int
	ScratchDir string
	Index      forest.Stats
	Metadata   codec.Record
}

// Ingest parses the graph, links entities to their artifacts, builds the
// vector index, writes the container into req.OutputDir and returns it
// opened for querying.
func Ingest(ctx context.Context, req IngestRequest, optFns ...Option) (*KnowledgeBase, error) {
	o := applyOptions(optFns)
	start := time.Now()

	kb, items, err := ingest(ctx, req, o)
	o.metricsCollector.RecordIngest(items, time.Since(start), err)
	if err != nil {
		o.logger.LogIngest(ctx, "", 0, 0, time.Since(start), err)
		return nil, err
	}
	o.logger.LogIngest(ctx, kb.Path(), items, kb.meta.VectorLength, time.Since(start), nil)
	return kb, nil
}

func ingest(ctx context.Context, req IngestRequest, o options) (*KnowledgeBase, int, error) {
	if err := req.validate(); err != nil {
		return nil, 0, err
	}

	g := req.Graph
	if g == nil {
		var err error
		if g, err = graph.ReadFile(req.GraphSource); err != nil {
			return nil, 0, &InputError{Op: "ingest", Path: req.GraphSource, Err: err}
		}
	}

	engine := reify.New(o.logger.Logger)
	enriched, err := engine.Enrich(ctx, g, reify.Request{
		EmbeddingDir: req.EmbeddingDir,
		ImageDir:     req.ImageDir,
		EntityType:   graph.IRI(req.EntityType),
		IDPredicate:  graph.IRI(req.IDPredicate),
	})
	if err != nil {
		return nil, 0, translateError("ingest", req.EmbeddingDir, err)
	}

	idx, dim, err := forest.BuildFromDir(ctx, req.EmbeddingDir, o.forestOptions()...)
	if err != nil {
		return nil, 0, translateError("ingest", req.EmbeddingDir, err)
	}
	defer idx.Close()

	enriched.Add(vocab.LengthFact(dim))

	stats := idx.Stats()
	rec := &codec.Record{
		VectorLength: dim,
		EntityType:   req.EntityType,
		IDPredicate:  req.IDPredicate,
		Metric:       idx.Metric(),
		Trees:        stats.Trees,
		ItemCount:    stats.Items,
	}

	a, err := archive.Write(ctx, req.OutputDir, archive.WriteRequest{
		Graph:     enriched,
		Index:     idx,
		Metadata:  rec,
		ImagesDir: req.ImageDir,
	}, o.archiveOptions()...)
	if err != nil {
		return nil, 0, translateError("ingest", req.OutputDir, err)
	}

	return newKnowledgeBase(a, o), stats.Items, nil
}

// Open reopens a container written by Ingest.
func Open(ctx context.Context, containerPath string, optFns ...Option) (*KnowledgeBase, error) {
	o := applyOptions(optFns)
	start := time.Now()

	a, err := archive.Read(ctx, containerPath, o.archiveOptions()...)
	err = translateError("open", containerPath, err)
	o.metricsCollector.RecordOpen(time.Since(start), err)
	o.logger.LogOpen(ctx, containerPath, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return newKnowledgeBase(a, o), nil
}

// OpenBlob downloads the container name from store into the cache directory
// (see WithCacheDir) and opens it. A cached copy is reused while the blob's
// version is unchanged.
func OpenBlob(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*KnowledgeBase, error) {
	o := applyOptions(optFns)

	path, err := blobstore.Fetch(ctx, store, name, o.cacheDir,
		blobstore.WithResourceController(o.controller),
		blobstore.WithLogger(o.logger.Logger))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, &InputError{Op: "fetch", Path: name, Err: err}
		}
		return nil, &ResourceError{Op: "fetch", Path: name, Err: err}
	}
	return Open(ctx, path, optFns...)
}

func newKnowledgeBase(a *archive.Archive, o options) *KnowledgeBase {
	meta := *a.Metadata()
	kb := &KnowledgeBase{
		archive:     a,
		graph:       a.Graph(),
		index:       a.Index(),
		meta:        meta,
		entityType:  graph.IRI(meta.EntityType),
		idPredicate: graph.IRI(meta.IDPredicate),
		opts:        o,
		logger:      o.logger.WithPath(a.Path()),
		metrics:     o.metricsCollector,
	}
	kb.entities = len(reify.New(o.logger.Logger).Entities(kb.graph, kb.entityType, kb.idPredicate))
	return kb
}

// Path returns the container path.
func (kb *KnowledgeBase) Path() string {
	return kb.archive.Path()
}

// Graph returns the enriched graph.
func (kb *KnowledgeBase) Graph() graph.Store {
	return kb.graph
}

// Metadata returns a copy of the metadata record.
func (kb *KnowledgeBase) Metadata() codec.Record {
	return kb.meta
}

// Stats returns a summary of the knowledge base.
func (kb *KnowledgeBase) Stats() Stats {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return Stats{
		Path:       kb.archive.Path(),
		Triples:    kb.graph.Len(),
		Entities:   kb.entities,
		Images:     len(kb.archive.Images()),
		ScratchDir: kb.archive.ScratchDir(),
		Index:      kb.index.Stats(),
		Metadata:   kb.meta,
	}
}

// EntityOf returns the graph node whose id predicate holds id. Entities of
// the enriched type take precedence over other subjects with the same id.
func (kb *KnowledgeBase) EntityOf(id uint64) (graph.Term, bool) {
	n, err := conv.Uint64ToInt64(id)
	if err != nil {
		return graph.Term{}, false
	}
	candidates := graph.Subjects(kb.graph, kb.idPredicate, graph.Integer(n))
	if len(candidates) == 0 {
		return graph.Term{}, false
	}
	for _, c := range candidates {
		for range kb.graph.Match(c, vocab.Type, kb.entityType) {
			return c, true
		}
	}
	return candidates[0], true
}

// SelectSimilar returns up to k ids nearest to the entity with id, nearest
// first. Unknown entities and entities without an embedding yield an empty
// result, not an error.
func (kb *KnowledgeBase) SelectSimilar(ctx context.Context, id uint64, k int) ([]uint64, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if kb.closed {
		return nil, ErrClosed
	}
	return kb.selectSimilar(ctx, id, k)
}

func (kb *KnowledgeBase) selectSimilar(ctx context.Context, id uint64, k int) ([]uint64, error) {
	start := time.Now()
	ids, err := kb.query(ctx, id, k)
	if errors.Is(err, ErrNotFound) {
		ids, err = []uint64{}, nil
	}
	kb.metrics.RecordQuery(k, len(ids), time.Since(start), err)
	kb.logger.LogQuery(ctx, id, k, len(ids), err)
	return ids, err
}

func (kb *KnowledgeBase) query(ctx context.Context, id uint64, k int) ([]uint64, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entity, ok := kb.EntityOf(id)
	if !ok {
		kb.logger.WarnContext(ctx, "entity does not exist", "id", id)
		return nil, ErrNotFound
	}
	if _, ok := graph.First(kb.graph, entity, vocab.HasEmbedding); !ok {
		kb.logger.WarnContext(ctx, "entity has no embedding", "id", id, "entity", entity.String())
		return nil, ErrNotFound
	}

	ids, err := kb.index.NeighborsByID(id, k)
	if err != nil {
		return nil, translateError("select similar", kb.archive.Path(), err)
	}
	return ids, nil
}

// SelectSimilarArtifact runs SelectSimilar and hands the image of the query
// entity (rank 0) and of every neighbor (ranks 1..n) to r in rank order.
// Ids without an image are logged and skipped. It returns the number of
// rendered images.
func (kb *KnowledgeBase) SelectSimilarArtifact(ctx context.Context, id uint64, k int, r render.Renderer) (int, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if kb.closed {
		return 0, ErrClosed
	}

	start := time.Now()
	ids, err := kb.selectSimilar(ctx, id, k)
	if err != nil {
		return 0, err
	}
	ranked := append([]uint64{id}, ids...)

	images := make([]*render.Image, len(ranked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(kb.opts.imageWorkers())
	for rank, rid := range ranked {
		g.Go(func() error {
			img, err := kb.loadImage(gctx, rank, rid)
			if errors.Is(err, ErrNotFound) {
				kb.logger.WarnContext(ctx, "entity has no image", "id", rid, "rank", rank)
				return nil
			}
			if err != nil {
				return err
			}
			images[rank] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var rendered, skipped int
	for _, img := range images {
		if img == nil {
			skipped++
			continue
		}
		if err := r.Render(ctx, *img); err != nil {
			kb.metrics.RecordImages(rendered, skipped, time.Since(start))
			return rendered, fmt.Errorf("render image %s: %w", img.Name, err)
		}
		rendered++
	}
	kb.metrics.RecordImages(rendered, skipped, time.Since(start))
	return rendered, nil
}

// SelectSimilarImages is SelectSimilarArtifact with the default k.
func (kb *KnowledgeBase) SelectSimilarImages(ctx context.Context, id uint64, r render.Renderer) (int, error) {
	return kb.SelectSimilarArtifact(ctx, id, DefaultK, r)
}

// Image returns the archived image bytes of the entity with id.
func (kb *KnowledgeBase) Image(id uint64) ([]byte, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if kb.closed {
		return nil, ErrClosed
	}
	name, err := kb.imageName(id)
	if err != nil {
		return nil, err
	}
	data, err := kb.archive.ReadImage(name)
	if err != nil {
		return nil, translateError("image", name, err)
	}
	return data, nil
}

func (kb *KnowledgeBase) imageName(id uint64) (string, error) {
	entity, ok := kb.EntityOf(id)
	if !ok {
		return "", fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	name, ok := graph.First(kb.graph, entity, vocab.HasImage)
	if !ok {
		return "", fmt.Errorf("image of entity %d: %w", id, ErrNotFound)
	}
	return name.Value, nil
}

func (kb *KnowledgeBase) loadImage(ctx context.Context, rank int, id uint64) (*render.Image, error) {
	name, err := kb.imageName(id)
	if err != nil {
		return nil, err
	}
	size, ok := kb.archive.ImageSize(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	// Bound concurrent decompression by worker slots and memory.
	rc := kb.opts.controller
	if err := rc.AcquireWorker(ctx); err != nil {
		return nil, err
	}
	defer rc.ReleaseWorker()
	if err := rc.AcquireMemory(ctx, size); err != nil {
		return nil, err
	}
	defer rc.ReleaseMemory(size)

	data, err := kb.archive.ReadImage(name)
	if err != nil {
		return nil, translateError("image", name, err)
	}
	return &render.Image{
		Rank:  rank,
		ID:    id,
		Name:  name,
		Data:  data,
		Title: render.Title(rank, id),
	}, nil
}
