package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/index"
	"github.com/hupe1980/graphkb/internal/conv"
	"github.com/hupe1980/graphkb/vecfile"
)

const (
	nodeLeaf  = 0
	nodeSplit = 1

	splitAttempts = 3
)

// Item is a vector keyed by id.
type Item struct {
	ID     uint64
	Vector []float32
}

// BuildFromDir builds an index from every <id>.<ext> vector file in dir and
// returns it with the vector length.
//
// The first file fixes the vector length; any file of a different length
// fails the build with *index.ErrDimensionMismatch.
func BuildFromDir(ctx context.Context, dir string, opts ...Option) (*Index, int, error) {
	o := applyOptions(opts)

	entries, err := vecfile.List(dir)
	if err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return nil, 0, fmt.Errorf("%w in %s", index.ErrEmpty, dir)
	}

	sample, err := vecfile.Load(filepath.Join(dir, entries[0].Name))
	if err != nil {
		return nil, 0, err
	}
	dim := len(sample)
	if dim == 0 {
		return nil, 0, fmt.Errorf("%w: %s", vecfile.ErrMalformed, entries[0].Name)
	}

	start := time.Now()
	items := make([]Item, len(entries))
	items[0] = Item{ID: entries[0].ID, Vector: sample}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for i := 1; i < len(entries); i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e := entries[i]
			v, err := vecfile.Load(filepath.Join(dir, e.Name))
			if err != nil {
				return err
			}
			if len(v) != dim {
				return &index.ErrDimensionMismatch{Expected: dim, Actual: len(v), ID: e.ID, HasID: true}
			}
			items[i] = Item{ID: e.ID, Vector: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	o.Logger.Debug("vectors loaded", "dir", dir, "count", len(items), "dimension", dim, "duration", time.Since(start))

	idx, err := build(ctx, dim, items, o)
	if err != nil {
		return nil, 0, err
	}
	return idx, dim, nil
}

// Build builds an in-memory index over items. Ids must be unique and every
// vector must have length dim.
func Build(ctx context.Context, dim int, items []Item, opts ...Option) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("forest: invalid dimension %d", dim)
	}
	if len(items) == 0 {
		return nil, index.ErrEmpty
	}
	if _, err := conv.IntToUint32(len(items)); err != nil {
		return nil, fmt.Errorf("forest: too many items: %w", err)
	}
	for _, it := range items {
		if len(it.Vector) != dim {
			return nil, &index.ErrDimensionMismatch{Expected: dim, Actual: len(it.Vector), ID: it.ID, HasID: true}
		}
	}
	return build(ctx, dim, items, applyOptions(opts))
}

func build(ctx context.Context, dim int, items []Item, o Options) (*Index, error) {
	strategy, err := distance.For(o.Metric)
	if err != nil {
		return nil, &index.ErrInvalidDistanceType{Metric: o.Metric}
	}

	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b Item) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	ids := make([]uint64, len(sorted))
	vectors := make([]float32, len(sorted)*dim)
	for i, it := range sorted {
		if i > 0 && it.ID == sorted[i-1].ID {
			return nil, fmt.Errorf("forest: duplicate item id %d", it.ID)
		}
		ids[i] = it.ID
		copy(vectors[i*dim:], it.Vector)
	}

	start := time.Now()
	trees := make([]*tree, o.Trees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for t := range trees {
		g.Go(func() error {
			tb := &treeBuilder{
				ctx:      gctx,
				dim:      dim,
				vectors:  vectors,
				strategy: strategy,
				leafSize: o.LeafSize,
				rng:      rand.New(rand.NewPCG(o.Seed+uint64(t), uint64(t))),
				out:      &tree{},
			}
			all := make([]uint32, len(ids))
			for i := range all {
				all[i] = uint32(i)
			}
			root, err := tb.build(all)
			if err != nil {
				return err
			}
			tb.out.root = root
			trees[t] = tb.out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{
		dim:      dim,
		metric:   o.Metric,
		strategy: strategy,
		opts:     o,
		ids:      ids,
		vectors:  vectors,
	}
	idx.merge(trees)

	o.Logger.Debug("forest built",
		"items", len(ids),
		"trees", o.Trees,
		"nodes", len(idx.nodes)/nodeWords,
		"metric", o.Metric.String(),
		"duration", time.Since(start))

	return idx, nil
}

// tree is the output of one treeBuilder with tree-local indices.
type tree struct {
	root      uint32
	nodes     []uint32
	normals   []float32
	leafSlots []uint32
}

type treeBuilder struct {
	ctx      context.Context
	dim      int
	vectors  []float32
	strategy distance.Strategy
	leafSize int
	rng      *rand.Rand
	out      *tree
}

func (b *treeBuilder) vector(i uint32) []float32 {
	off := int(i) * b.dim
	return b.vectors[off : off+b.dim]
}

func (b *treeBuilder) addNode(kind, left, right uint32, offset float32, start, n uint32) uint32 {
	id := uint32(len(b.out.nodes) / nodeWords)
	b.out.nodes = append(b.out.nodes, kind, left, right, math.Float32bits(offset), start, n)
	return id
}

func (b *treeBuilder) leaf(items []uint32) uint32 {
	start := uint32(len(b.out.leafSlots))
	b.out.leafSlots = append(b.out.leafSlots, items...)
	return b.addNode(nodeLeaf, 0, 0, 0, start, uint32(len(items)))
}

func (b *treeBuilder) build(items []uint32) (uint32, error) {
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}
	if len(items) <= b.leafSize {
		return b.leaf(items), nil
	}

	normal := make([]float32, b.dim)
	var (
		offset      float32
		left, right []uint32
	)
	for attempt := 0; attempt < splitAttempts; attempt++ {
		i := b.rng.IntN(len(items))
		j := b.rng.IntN(len(items) - 1)
		if j >= i {
			j++
		}
		offset = b.strategy.Split(b.vector(items[i]), b.vector(items[j]), normal)

		left, right = left[:0], right[:0]
		for _, it := range items {
			m := distance.Margin(normal, offset, b.vector(it))
			switch {
			case m > 0:
				right = append(right, it)
			case m < 0:
				left = append(left, it)
			case b.rng.IntN(2) == 0:
				left = append(left, it)
			default:
				right = append(right, it)
			}
		}
		if len(left) > 0 && len(right) > 0 {
			break
		}
	}

	if len(left) == 0 || len(right) == 0 {
		// No hyperplane separated the items (e.g. all equal): split them
		// arbitrarily and route queries by a zero normal.
		clear(normal)
		offset = 0
		half := len(items) / 2
		left = append(left[:0], items[:half]...)
		right = append(right[:0], items[half:]...)
	}

	normalIdx := uint32(len(b.out.normals) / b.dim)
	b.out.normals = append(b.out.normals, normal...)

	// Reserve the parent before recursing; child links are patched below.
	self := b.addNode(nodeSplit, 0, 0, offset, normalIdx, 0)

	l, err := b.build(slices.Clone(left))
	if err != nil {
		return 0, err
	}
	r, err := b.build(slices.Clone(right))
	if err != nil {
		return 0, err
	}

	base := int(self) * nodeWords
	b.out.nodes[base+1] = l
	b.out.nodes[base+2] = r
	return self, nil
}

// merge concatenates per-tree node, normal and leaf slot arrays, rebasing
// tree-local references.
func (idx *Index) merge(trees []*tree) {
	var nodeCount, normalCount, slotCount int
	for _, t := range trees {
		nodeCount += len(t.nodes)
		normalCount += len(t.normals)
		slotCount += len(t.leafSlots)
	}

	idx.roots = make([]uint32, 0, len(trees))
	idx.nodes = make([]uint32, 0, nodeCount)
	idx.normals = make([]float32, 0, normalCount)
	idx.leafSlots = make([]uint32, 0, slotCount)

	for _, t := range trees {
		nodeBase := uint32(len(idx.nodes) / nodeWords)
		normalBase := uint32(len(idx.normals) / idx.dim)
		slotBase := uint32(len(idx.leafSlots))

		idx.roots = append(idx.roots, t.root+nodeBase)
		for i := 0; i < len(t.nodes); i += nodeWords {
			n := t.nodes[i : i+nodeWords]
			if n[0] == nodeSplit {
				idx.nodes = append(idx.nodes, n[0], n[1]+nodeBase, n[2]+nodeBase, n[3], n[4]+normalBase, n[5])
			} else {
				idx.nodes = append(idx.nodes, n[0], n[1], n[2], n[3], n[4]+slotBase, n[5])
			}
		}
		idx.normals = append(idx.normals, t.normals...)
		idx.leafSlots = append(idx.leafSlots, t.leafSlots...)
	}
}
