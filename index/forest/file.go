package forest

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/index"
	"github.com/hupe1980/graphkb/internal/mmap"
	"github.com/hupe1980/graphkb/persistence"
)

// Save writes the index to path in the native file format. The file is
// written to a temporary name and renamed into place.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return index.ErrClosed
	}
	return persistence.SaveToFile(path, idx.writeTo)
}

// WriteTo writes the index in the native file format.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return 0, index.ErrClosed
	}
	cw := &countingWriter{w: w}
	err := idx.writeTo(cw)
	return cw.n, err
}

func (idx *Index) writeTo(w io.Writer) error {
	body := func(bw *persistence.BinaryIndexWriter) error {
		if err := bw.WriteUint64Slice(idx.ids); err != nil {
			return err
		}
		if err := bw.Pad(); err != nil {
			return err
		}
		if err := bw.WriteFloat32Slice(idx.vectors); err != nil {
			return err
		}
		if err := bw.Pad(); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(idx.roots); err != nil {
			return err
		}
		if err := bw.Pad(); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(idx.nodes); err != nil {
			return err
		}
		if err := bw.Pad(); err != nil {
			return err
		}
		if err := bw.WriteFloat32Slice(idx.normals); err != nil {
			return err
		}
		if err := bw.Pad(); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(idx.leafSlots); err != nil {
			return err
		}
		return bw.Pad()
	}

	sum, err := persistence.BodyChecksum(body)
	if err != nil {
		return err
	}

	h := &persistence.FileHeader{
		Metric:        uint8(idx.metric),
		Dimension:     uint32(idx.dim),
		ItemCount:     uint64(len(idx.ids)),
		TreeCount:     uint32(len(idx.roots)),
		NodeCount:     uint32(len(idx.nodes) / nodeWords),
		NormalCount:   uint32(len(idx.normals) / idx.dim),
		LeafSlotCount: uint32(len(idx.leafSlots)),
		LeafSize:      uint32(idx.opts.LeafSize),
		Checksum:      sum,
		Seed:          idx.opts.Seed,
	}
	if idx.opts.IncludeSelf {
		h.Flags |= persistence.FlagIncludeSelf
	}

	bw := persistence.NewBinaryIndexWriter(w)
	if err := bw.WriteHeader(h); err != nil {
		return err
	}
	return body(bw)
}

// Load memory-maps the index file at path. The stored dimension and metric
// must equal dim and metric. Queries are served from the mapping until Close.
//
// Only WithSearchK and WithLogger apply; the remaining options are fixed by
// the file.
func Load(path string, dim int, metric distance.Metric, opts ...Option) (*Index, error) {
	o := applyOptions(opts)
	start := time.Now()

	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	idx, err := fromMapping(m, dim, metric, o)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("forest: load %s: %w", path, err)
	}

	_ = m.Advise(mmap.AccessRandom)
	o.Logger.Debug("forest loaded",
		"path", path,
		"items", len(idx.ids),
		"trees", len(idx.roots),
		"bytes", m.Size(),
		"duration", time.Since(start))
	return idx, nil
}

func fromMapping(m *mmap.Mapping, dim int, metric distance.Metric, o Options) (*Index, error) {
	data := m.Bytes()
	r := persistence.NewSliceReader(data)

	h, err := r.ReadFileHeader()
	if err != nil {
		return nil, err
	}
	if int(h.Dimension) != dim {
		return nil, &index.ErrDimensionMismatch{Expected: dim, Actual: int(h.Dimension)}
	}
	stored := distance.Metric(h.Metric)
	if !stored.Valid() || stored != metric {
		return nil, &index.ErrInvalidDistanceType{Metric: stored}
	}
	if h.Dimension == 0 || h.ItemCount == 0 || h.TreeCount == 0 {
		return nil, fmt.Errorf("%w: empty index", persistence.ErrTruncated)
	}

	l, err := h.Layout(len(data))
	if err != nil {
		return nil, err
	}
	if err := persistence.VerifyChecksum(data[persistence.HeaderSize:l.End], h.Checksum); err != nil {
		return nil, err
	}

	strategy, err := distance.For(stored)
	if err != nil {
		return nil, &index.ErrInvalidDistanceType{Metric: stored}
	}

	o.Trees = int(h.TreeCount)
	o.Metric = stored
	o.Seed = h.Seed
	o.LeafSize = int(h.LeafSize)
	o.IncludeSelf = h.Flags&persistence.FlagIncludeSelf != 0

	idx := &Index{
		dim:      dim,
		metric:   stored,
		strategy: strategy,
		opts:     o,
		mapping:  m,
	}

	n := int(h.ItemCount)
	if err := r.Seek(l.IDs); err != nil {
		return nil, err
	}
	if idx.ids, err = r.ReadUint64SliceView(n); err != nil {
		return nil, err
	}
	if err := r.Seek(l.Vectors); err != nil {
		return nil, err
	}
	if idx.vectors, err = r.ReadFloat32SliceView(n * dim); err != nil {
		return nil, err
	}
	if err := r.Seek(l.Roots); err != nil {
		return nil, err
	}
	if idx.roots, err = r.ReadUint32SliceView(int(h.TreeCount)); err != nil {
		return nil, err
	}
	if err := r.Seek(l.Nodes); err != nil {
		return nil, err
	}
	if idx.nodes, err = r.ReadUint32SliceView(int(h.NodeCount) * nodeWords); err != nil {
		return nil, err
	}
	if err := r.Seek(l.Normals); err != nil {
		return nil, err
	}
	if idx.normals, err = r.ReadFloat32SliceView(int(h.NormalCount) * dim); err != nil {
		return nil, err
	}
	if err := r.Seek(l.LeafSlots); err != nil {
		return nil, err
	}
	if idx.leafSlots, err = r.ReadUint32SliceView(int(h.LeafSlotCount)); err != nil {
		return nil, err
	}

	if err := idx.validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

// validate checks that every reference stays in bounds so a damaged file
// cannot panic a query.
func (idx *Index) validate() error {
	nodeCount := uint32(len(idx.nodes) / nodeWords)
	normalCount := uint64(len(idx.normals) / idx.dim)
	itemCount := uint32(len(idx.ids))

	for i := 1; i < len(idx.ids); i++ {
		if idx.ids[i] <= idx.ids[i-1] {
			return fmt.Errorf("%w: ids not strictly ascending at %d", persistence.ErrCorrupt, i)
		}
	}
	for _, r := range idx.roots {
		if r >= nodeCount {
			return fmt.Errorf("%w: root %d out of range", persistence.ErrCorrupt, r)
		}
	}
	for i := uint32(0); i < nodeCount; i++ {
		n := idx.node(i)
		switch n[0] {
		case nodeSplit:
			if n[1] >= nodeCount || n[2] >= nodeCount || uint64(n[4]) >= normalCount {
				return fmt.Errorf("%w: split node %d out of range", persistence.ErrCorrupt, i)
			}
		case nodeLeaf:
			if uint64(n[4])+uint64(n[5]) > uint64(len(idx.leafSlots)) {
				return fmt.Errorf("%w: leaf node %d out of range", persistence.ErrCorrupt, i)
			}
		default:
			return fmt.Errorf("%w: node %d has kind %d", persistence.ErrCorrupt, i, n[0])
		}
	}
	for _, s := range idx.leafSlots {
		if s >= itemCount {
			return fmt.Errorf("%w: leaf slot %d out of range", persistence.ErrCorrupt, s)
		}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
