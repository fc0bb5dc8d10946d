// Package reify links graph entities to artifact files named by their
// integer id and records the links as facts in the graph.
package reify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/graphkb/graph"
	"github.com/hupe1980/graphkb/vecfile"
	"github.com/hupe1980/graphkb/vocab"
)

// Request describes one enrichment pass.
type Request struct {
	// EmbeddingDir holds vector files named <id>.<ext>. Required.
	EmbeddingDir string
	// ImageDir holds image files named <id>.<ext>. Optional.
	ImageDir string
	// EntityType is the rdf:type of the entities to link.
	EntityType graph.Term
	// IDPredicate is the predicate whose integer object is the entity id.
	IDPredicate graph.Term
}

// Entity is a typed graph node with an integer id.
type Entity struct {
	Node graph.Term
	ID   uint64
}

// ArtifactSet is the set of artifact files found in a directory.
type ArtifactSet struct {
	Dir   string
	IDs   *roaring64.Bitmap
	names map[uint64]string
}

// Contains reports whether an artifact exists for id.
func (s *ArtifactSet) Contains(id uint64) bool {
	return s.IDs.Contains(id)
}

// Name returns the file name of the artifact for id.
func (s *ArtifactSet) Name(id uint64) (string, bool) {
	n, ok := s.names[id]
	return n, ok
}

// Path returns the full path of the artifact for id.
func (s *ArtifactSet) Path(id uint64) (string, bool) {
	n, ok := s.names[id]
	if !ok {
		return "", false
	}
	return filepath.Join(s.Dir, n), true
}

// Len returns the number of artifacts.
func (s *ArtifactSet) Len() int {
	return int(s.IDs.GetCardinality())
}

// Engine performs reification.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine. A nil logger discards output.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// Scan lists the artifacts of dir. A missing directory is an error; files
// without an integer stem are ignored.
func (e *Engine) Scan(dir string) (*ArtifactSet, error) {
	entries, err := vecfile.List(dir)
	if err != nil {
		return nil, fmt.Errorf("reify: scan %s: %w", dir, err)
	}

	set := &ArtifactSet{
		Dir:   dir,
		IDs:   roaring64.New(),
		names: make(map[uint64]string, len(entries)),
	}
	for _, en := range entries {
		set.IDs.Add(en.ID)
		set.names[en.ID] = en.Name
	}
	return set, nil
}

// Entities returns every subject typed entityType that has an integer value
// for idPredicate. Subjects without an id are skipped; when a subject has
// several integer ids the first one wins.
func (e *Engine) Entities(g graph.Store, entityType, idPredicate graph.Term) []Entity {
	var out []Entity
	for _, node := range graph.Subjects(g, vocab.Type, entityType) {
		var (
			id    int64
			found bool
		)
		for _, obj := range graph.Objects(g, node, idPredicate) {
			n, ok := obj.Int64()
			if !ok || n < 0 {
				e.logger.Debug("skipping non-integer id", "entity", node.String(), "value", obj.String())
				continue
			}
			id, found = n, true
			break
		}
		if found {
			out = append(out, Entity{Node: node, ID: uint64(id)})
		}
	}
	return out
}

// Enrich links every entity of req.EntityType to its embedding file (and
// image file when req.ImageDir is set) and appends the artifact class facts.
//
// g is mutated in place and returned. Entities without a matching file are
// left unlinked.
func (e *Engine) Enrich(ctx context.Context, g graph.Store, req Request) (graph.Store, error) {
	if req.EmbeddingDir == "" {
		return nil, fmt.Errorf("reify: embedding directory is required")
	}

	entities := e.Entities(g, req.EntityType, req.IDPredicate)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings, err := e.Scan(req.EmbeddingDir)
	if err != nil {
		return nil, err
	}
	linked := e.link(g, entities, embeddings, vocab.HasEmbedding)

	var images int
	if req.ImageDir != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set, err := e.Scan(req.ImageDir)
		if err != nil {
			return nil, err
		}
		images = e.link(g, entities, set, vocab.HasImage)
	}

	g.Add(vocab.ClassFacts()...)

	e.logger.Info("graph enriched",
		"entities", len(entities),
		"embeddings", linked,
		"images", images)
	return g, nil
}

func (e *Engine) link(g graph.Store, entities []Entity, set *ArtifactSet, predicate graph.Term) int {
	var n int
	for _, en := range entities {
		name, ok := set.Name(en.ID)
		if !ok {
			continue
		}
		g.Add(graph.Triple{Subject: en.Node, Predicate: predicate, Object: graph.Literal(name)})
		n++
	}
	return n
}
