package forest

import (
	"math"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/index"
	"github.com/hupe1980/graphkb/internal/mmap"
	"github.com/hupe1980/graphkb/internal/queue"
	"github.com/hupe1980/graphkb/persistence"
)

const nodeWords = persistence.NodeWords

// Compile-time check to ensure Index satisfies index.Index.
var _ index.Index = (*Index)(nil)

// Index is a random projection forest over vectors keyed by uint64 id.
//
// Items are stored in ascending id order; trees reference items by their
// position. A loaded index serves every section directly from the memory
// mapping of its file until Close is called.
type Index struct {
	mu       sync.RWMutex
	closed   bool
	dim      int
	metric   distance.Metric
	strategy distance.Strategy
	opts     Options

	ids       []uint64
	vectors   []float32
	roots     []uint32
	nodes     []uint32
	normals   []float32
	leafSlots []uint32

	mapping *mmap.Mapping
}

// Stats describes an index.
type Stats struct {
	Items       int
	Dimension   int
	Trees       int
	Nodes       int
	LeafSize    int
	Metric      distance.Metric
	IncludeSelf bool
	Mapped      bool
	Path        string
}

// Dimension returns the vector length.
func (idx *Index) Dimension() int { return idx.dim }

// Metric returns the distance metric.
func (idx *Index) Metric() distance.Metric { return idx.metric }

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// IDs returns a copy of the indexed ids in ascending order.
func (idx *Index) IDs() []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil
	}
	return slices.Clone(idx.ids)
}

// Stats returns a summary of the index.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := Stats{
		Items:       len(idx.ids),
		Dimension:   idx.dim,
		Trees:       len(idx.roots),
		Nodes:       len(idx.nodes) / nodeWords,
		LeafSize:    idx.opts.LeafSize,
		Metric:      idx.metric,
		IncludeSelf: idx.opts.IncludeSelf,
	}
	if idx.mapping != nil {
		s.Mapped = true
		s.Path = idx.mapping.Path()
	}
	return s
}

// Contains reports whether id is indexed.
func (idx *Index) Contains(id uint64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return false
	}
	_, ok := slices.BinarySearch(idx.ids, id)
	return ok
}

// Vector returns a copy of the stored vector of id.
func (idx *Index) Vector(id uint64) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, index.ErrClosed
	}
	pos, ok := slices.BinarySearch(idx.ids, id)
	if !ok {
		return nil, &index.ErrItemNotFound{ID: id}
	}
	return slices.Clone(idx.vector(uint32(pos))), nil
}

// NeighborsByID returns up to k ids nearest to item id, nearest first. The
// item itself is left out unless the index was built WithIncludeSelf.
func (idx *Index) NeighborsByID(id uint64, k int) ([]uint64, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, index.ErrClosed
	}

	pos, ok := slices.BinarySearch(idx.ids, id)
	if !ok {
		return nil, &index.ErrItemNotFound{ID: id}
	}

	n := k
	if !idx.opts.IncludeSelf {
		n++
	}
	results := idx.search(idx.vector(uint32(pos)), n)

	out := make([]uint64, 0, k)
	for _, r := range results {
		if !idx.opts.IncludeSelf && r.ID == id {
			continue
		}
		if len(out) == k {
			break
		}
		out = append(out, r.ID)
	}
	return out, nil
}

// Neighbors returns up to k items nearest to vector, nearest first.
func (idx *Index) Neighbors(vector []float32, k int) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(vector) != idx.dim {
		return nil, &index.ErrDimensionMismatch{Expected: idx.dim, Actual: len(vector)}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, index.ErrClosed
	}

	results := idx.search(vector, k)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close releases the index. A loaded index unmaps its file; afterwards the
// file may be removed. Close is idempotent.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true

	idx.ids, idx.vectors, idx.roots, idx.nodes, idx.normals, idx.leafSlots = nil, nil, nil, nil, nil, nil
	if idx.mapping != nil {
		return idx.mapping.Close()
	}
	return nil
}

func (idx *Index) vector(pos uint32) []float32 {
	off := int(pos) * idx.dim
	return idx.vectors[off : off+idx.dim]
}

func (idx *Index) normal(i uint32) []float32 {
	off := int(i) * idx.dim
	return idx.normals[off : off+idx.dim]
}

func (idx *Index) node(i uint32) []uint32 {
	off := int(i) * nodeWords
	return idx.nodes[off : off+nodeWords]
}

// search walks all trees best-first by hyperplane margin until searchK
// candidates are collected, then ranks the candidates exactly. Candidates
// with equal distance keep their discovery order.
func (idx *Index) search(q []float32, k int) []index.SearchResult {
	searchK := idx.opts.SearchK
	if searchK <= 0 {
		searchK = k * len(idx.roots)
	}

	pq := queue.NewMax(len(idx.roots) * 2)
	for _, r := range idx.roots {
		pq.Push(r, math.MaxFloat32)
	}

	seen := roaring64.New()
	var candidates []uint32

	for pq.Len() > 0 && len(candidates) < searchK {
		top, _ := pq.Pop()
		n := idx.node(top.Node)

		if n[0] == nodeLeaf {
			for _, pos := range idx.leafSlots[n[4] : n[4]+n[5]] {
				if seen.CheckedAdd(idx.ids[pos]) {
					candidates = append(candidates, pos)
				}
			}
			continue
		}

		m := distance.Margin(idx.normal(n[4]), math.Float32frombits(n[3]), q)
		pq.Push(n[2], min(top.Priority, m))
		pq.Push(n[1], min(top.Priority, -m))
	}

	results := make([]index.SearchResult, len(candidates))
	for i, pos := range candidates {
		results[i] = index.SearchResult{ID: idx.ids[pos], Distance: idx.strategy.Distance(q, idx.vector(pos))}
	}
	slices.SortStableFunc(results, func(a, b index.SearchResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
