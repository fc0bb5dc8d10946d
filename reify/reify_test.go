package reify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphkb/graph"
	"github.com/hupe1980/graphkb/vocab"
)

var (
	itemType = graph.IRI("http://example.org/Item")
	idPred   = graph.IRI("http://example.org/id")
)

func entity(n string) graph.Term {
	return graph.IRI("http://example.org/item/" + n)
}

func sampleGraph() *graph.Memory {
	g := graph.NewMemory()
	add := func(s graph.Term, id graph.Term) {
		g.Add(graph.Triple{Subject: s, Predicate: vocab.Type, Object: itemType})
		if !id.IsZero() {
			g.Add(graph.Triple{Subject: s, Predicate: idPred, Object: id})
		}
	}
	add(entity("1"), graph.Integer(1))
	add(entity("2"), graph.TypedLiteral("002", graph.XSDInteger))
	add(entity("7"), graph.Integer(7))
	add(entity("42"), graph.Integer(42))
	add(entity("noid"), graph.Term{})
	add(entity("text"), graph.Literal("abc"))
	// Has an id but the wrong type.
	g.Add(graph.Triple{Subject: entity("3"), Predicate: idPred, Object: graph.Integer(3)})
	return g
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644))
	}
}

func links(g graph.Store, p graph.Term) map[string]string {
	out := map[string]string{}
	for tr := range g.Match(graph.Any, p, graph.Any) {
		out[tr.Subject.Value] = tr.Object.Value
	}
	return out
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.npy", "3.npy", "notes.txt", "x1.npy")

	set, err := New(nil).Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(3))
	assert.False(t, set.Contains(2))

	p, ok := set.Path(1)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "1.npy"), p)

	_, err = New(nil).Scan(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEntities(t *testing.T) {
	got := New(nil).Entities(sampleGraph(), itemType, idPred)
	assert.Equal(t, []Entity{
		{Node: entity("1"), ID: 1},
		{Node: entity("2"), ID: 2},
		{Node: entity("7"), ID: 7},
		{Node: entity("42"), ID: 42},
	}, got)
}

func TestEnrich(t *testing.T) {
	emb := t.TempDir()
	img := t.TempDir()
	touch(t, emb, "1.npy", "2.npy", "3.npy", "readme.md")
	touch(t, img, "7.jpg", "1.png")

	g := sampleGraph()
	out, err := New(nil).Enrich(context.Background(), g, Request{
		EmbeddingDir: emb,
		ImageDir:     img,
		EntityType:   itemType,
		IDPredicate:  idPred,
	})
	require.NoError(t, err)
	assert.Same(t, g, out)

	assert.Equal(t, map[string]string{
		entity("1").Value: "1.npy",
		entity("2").Value: "2.npy",
	}, links(out, vocab.HasEmbedding))
	assert.Equal(t, map[string]string{
		entity("1").Value: "1.png",
		entity("7").Value: "7.jpg",
	}, links(out, vocab.HasImage))

	loc, ok := graph.First(out, vocab.Embedding, vocab.LocatedAt)
	require.True(t, ok)
	assert.Equal(t, vocab.EmbeddingLocation, loc.Value)
	loc, ok = graph.First(out, vocab.Image, vocab.LocatedAt)
	require.True(t, ok)
	assert.Equal(t, vocab.ImageLocation, loc.Value)
	assert.True(t, g.Contains(graph.Triple{Subject: vocab.Image, Predicate: vocab.Type, Object: vocab.Class}))
}

func TestEnrich_Idempotent(t *testing.T) {
	emb := t.TempDir()
	touch(t, emb, "1.npy", "42.npy")

	g := sampleGraph()
	req := Request{EmbeddingDir: emb, EntityType: itemType, IDPredicate: idPred}

	_, err := New(nil).Enrich(context.Background(), g, req)
	require.NoError(t, err)
	first := links(g, vocab.HasEmbedding)
	n := g.Len()

	_, err = New(nil).Enrich(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, first, links(g, vocab.HasEmbedding))
	// The in-memory store is a set, so repeated passes add nothing.
	assert.Equal(t, n, g.Len())
}

func TestEnrich_NoImageDir(t *testing.T) {
	emb := t.TempDir()
	touch(t, emb, "7.npy")

	g, err := New(nil).Enrich(context.Background(), sampleGraph(), Request{EmbeddingDir: emb, EntityType: itemType, IDPredicate: idPred})
	require.NoError(t, err)
	assert.Empty(t, links(g, vocab.HasImage))
}

func TestEnrich_MissingDirectory(t *testing.T) {
	dir := t.TempDir()
	req := Request{EmbeddingDir: filepath.Join(dir, "nope"), EntityType: itemType, IDPredicate: idPred}

	_, err := New(nil).Enrich(context.Background(), sampleGraph(), req)
	assert.ErrorIs(t, err, os.ErrNotExist)

	req = Request{EmbeddingDir: dir, ImageDir: filepath.Join(dir, "nope"), EntityType: itemType, IDPredicate: idPred}
	_, err = New(nil).Enrich(context.Background(), sampleGraph(), req)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = New(nil).Enrich(context.Background(), sampleGraph(), Request{})
	assert.Error(t, err)
}
