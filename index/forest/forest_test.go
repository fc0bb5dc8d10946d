package forest

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphkb/distance"
	"github.com/hupe1980/graphkb/index"
	"github.com/hupe1980/graphkb/persistence"
)

func writeVectors(t *testing.T, dir string, vecs map[uint64][]float32) {
	t.Helper()
	for id, v := range vecs {
		var buf bytes.Buffer
		require.NoError(t, npyio.Write(&buf, v))
		require.NoError(t, os.WriteFile(filepath.Join(dir, strconv.FormatUint(id, 10)+".npy"), buf.Bytes(), 0o644))
	}
}

func randomItems(n, dim int, seed uint64) []Item {
	rng := rand.New(rand.NewPCG(seed, seed))
	items := make([]Item, n)
	for i := range items {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		items[i] = Item{ID: uint64(i*3 + 1), Vector: v}
	}
	return items
}

func bruteForce(t *testing.T, m distance.Metric, items []Item, q []float32, k int) []uint64 {
	t.Helper()
	s, err := distance.For(m)
	require.NoError(t, err)

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		da, db := s.Distance(q, a.Vector), s.Distance(q, b.Vector)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return 0
		}
	})
	out := make([]uint64, 0, k)
	for _, it := range sorted[:k] {
		out = append(out, it.ID)
	}
	return out
}

func TestBuildFromDir_Scenario(t *testing.T) {
	dir := t.TempDir()
	writeVectors(t, dir, map[uint64][]float32{
		1: {0, 1},
		2: {0, 1},
		3: {1, 0},
	})

	idx, dim, err := BuildFromDir(context.Background(), dir)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 2, dim)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []uint64{1, 2, 3}, idx.IDs())

	ids, err := idx.NeighborsByID(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ids)

	ids, err = idx.NeighborsByID(3, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)
}

func TestBuildFromDir_IncludeSelf(t *testing.T) {
	dir := t.TempDir()
	writeVectors(t, dir, map[uint64][]float32{
		1: {0, 1},
		2: {0, 1},
		3: {1, 0},
	})

	idx, _, err := BuildFromDir(context.Background(), dir, WithIncludeSelf(true))
	require.NoError(t, err)
	defer idx.Close()

	ids, err := idx.NeighborsByID(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids)
}

func TestBuildFromDir_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeVectors(t, dir, map[uint64][]float32{
		1: make([]float32, 128),
		2: make([]float32, 64),
	})

	_, _, err := BuildFromDir(context.Background(), dir)
	require.Error(t, err)

	var dm *index.ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 128, dm.Expected)
	assert.Equal(t, 64, dm.Actual)
	assert.Equal(t, uint64(2), dm.ID)
}

func TestBuildFromDir_Empty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	_, _, err := BuildFromDir(context.Background(), dir)
	assert.ErrorIs(t, err, index.ErrEmpty)

	_, _, err = BuildFromDir(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildFromDir_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeVectors(t, dir, map[uint64][]float32{1: {0, 1}, 2: {1, 0}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := BuildFromDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_QueryErrors(t *testing.T) {
	idx, err := Build(context.Background(), 2, []Item{{ID: 1, Vector: []float32{1, 0}}})
	require.NoError(t, err)

	_, err = idx.NeighborsByID(1, 0)
	assert.ErrorIs(t, err, index.ErrInvalidK)

	_, err = idx.NeighborsByID(99, 1)
	var nf *index.ErrItemNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, uint64(99), nf.ID)

	_, err = idx.Neighbors([]float32{1, 2, 3}, 1)
	var dm *index.ErrDimensionMismatch
	assert.True(t, errors.As(err, &dm))

	ids, err := idx.NeighborsByID(1, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())
	_, err = idx.NeighborsByID(1, 1)
	assert.ErrorIs(t, err, index.ErrClosed)
	assert.False(t, idx.Contains(1))
}

func TestBuild_Validation(t *testing.T) {
	_, err := Build(context.Background(), 2, nil)
	assert.ErrorIs(t, err, index.ErrEmpty)

	_, err = Build(context.Background(), 2, []Item{{ID: 1, Vector: []float32{1}}})
	var dm *index.ErrDimensionMismatch
	assert.True(t, errors.As(err, &dm))

	_, err = Build(context.Background(), 1, []Item{{ID: 1, Vector: []float32{1}}, {ID: 1, Vector: []float32{2}}})
	assert.Error(t, err)

	_, err = Build(context.Background(), 1, []Item{{ID: 1, Vector: []float32{1}}}, WithMetric(distance.Metric(99)))
	var dt *index.ErrInvalidDistanceType
	assert.True(t, errors.As(err, &dt))
}

func TestIndex_ExhaustiveSearchMatchesBruteForce(t *testing.T) {
	items := randomItems(300, 8, 7)

	for _, m := range []distance.Metric{
		distance.MetricAngular,
		distance.MetricEuclidean,
		distance.MetricManhattan,
		distance.MetricDot,
	} {
		t.Run(m.String(), func(t *testing.T) {
			idx, err := Build(context.Background(), 8, items,
				WithMetric(m), WithLeafSize(10), WithSearchK(len(items)))
			require.NoError(t, err)
			defer idx.Close()

			for _, it := range items[:20] {
				got, err := idx.Neighbors(it.Vector, 5)
				require.NoError(t, err)

				ids := make([]uint64, len(got))
				for i, r := range got {
					ids[i] = r.ID
				}
				assert.Equal(t, bruteForce(t, m, items, it.Vector, 5), ids)
			}
		})
	}
}

func TestIndex_ApproximateFindsSelf(t *testing.T) {
	items := randomItems(500, 16, 11)

	idx, err := Build(context.Background(), 16, items, WithLeafSize(8), WithIncludeSelf(true))
	require.NoError(t, err)
	defer idx.Close()

	for _, it := range items {
		ids, err := idx.NeighborsByID(it.ID, 3)
		require.NoError(t, err)
		require.NotEmpty(t, ids)
		assert.Equal(t, it.ID, ids[0])
		assert.LessOrEqual(t, len(ids), 3)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	items := randomItems(400, 8, 3)
	shuffled := slices.Clone(items)
	rand.New(rand.NewPCG(1, 2)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	a, err := Build(context.Background(), 8, items, WithLeafSize(6), WithWorkers(1))
	require.NoError(t, err)
	b, err := Build(context.Background(), 8, shuffled, WithLeafSize(6), WithWorkers(8))
	require.NoError(t, err)

	for _, it := range items[:50] {
		x, err := a.NeighborsByID(it.ID, 10)
		require.NoError(t, err)
		y, err := b.NeighborsByID(it.ID, 10)
		require.NoError(t, err)
		assert.Equal(t, x, y)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	items := randomItems(250, 6, 5)
	built, err := Build(context.Background(), 6, items, WithLeafSize(5), WithTrees(4))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.kbf")
	require.NoError(t, built.Save(path))

	loaded, err := Load(path, 6, distance.MetricAngular)
	require.NoError(t, err)

	st := loaded.Stats()
	assert.True(t, st.Mapped)
	assert.Equal(t, 4, st.Trees)
	assert.Equal(t, 250, st.Items)
	assert.Equal(t, built.IDs(), loaded.IDs())

	for _, it := range items {
		want, err := built.NeighborsByID(it.ID, 7)
		require.NoError(t, err)
		got, err := loaded.NeighborsByID(it.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	v, err := loaded.Vector(items[3].ID)
	require.NoError(t, err)
	assert.Equal(t, items[3].Vector, v)

	require.NoError(t, loaded.Close())
	_, err = loaded.NeighborsByID(items[0].ID, 1)
	assert.ErrorIs(t, err, index.ErrClosed)

	// Unmapped files can be removed.
	require.NoError(t, os.Remove(path))
}

func TestLoad_Mismatch(t *testing.T) {
	idx, err := Build(context.Background(), 3, randomItems(20, 3, 9))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.kbf")
	require.NoError(t, idx.Save(path))

	_, err = Load(path, 4, distance.MetricAngular)
	var dm *index.ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 4, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	_, err = Load(path, 3, distance.MetricEuclidean)
	var dt *index.ErrInvalidDistanceType
	require.True(t, errors.As(err, &dt))
	assert.Equal(t, distance.MetricAngular, dt.Metric)
}

func TestLoad_Corruption(t *testing.T) {
	idx, err := Build(context.Background(), 3, randomItems(20, 3, 9))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.kbf")
	require.NoError(t, idx.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[persistence.HeaderSize+9] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path, 3, distance.MetricAngular)
	require.Error(t, err)
	assert.True(t, persistence.IsChecksumMismatch(err))

	require.NoError(t, os.WriteFile(path, data[:persistence.HeaderSize+4], 0o644))
	_, err = Load(path, 3, distance.MetricAngular)
	assert.ErrorIs(t, err, persistence.ErrTruncated)

	require.NoError(t, os.WriteFile(path, []byte("not an index file at all, just some text padding it out to sixty-four bytes"), 0o644))
	_, err = Load(path, 3, distance.MetricAngular)
	assert.ErrorIs(t, err, persistence.ErrInvalidMagic)
}

func TestLoad_OverflowingCounts(t *testing.T) {
	idx, err := Build(context.Background(), 3, randomItems(20, 3, 9))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.kbf")
	require.NoError(t, idx.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var h persistence.FileHeader
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, &h))
	h.ItemCount = 1 << 61

	var hb bytes.Buffer
	require.NoError(t, binary.Write(&hb, binary.LittleEndian, &h))
	copy(data, hb.Bytes())
	require.NoError(t, os.WriteFile(path, data, 0o644))

	require.NotPanics(t, func() {
		_, err = Load(path, 3, distance.MetricAngular)
	})
	assert.ErrorIs(t, err, persistence.ErrTruncated)
}

func TestWriteTo(t *testing.T) {
	idx, err := Build(context.Background(), 2, []Item{{ID: 5, Vector: []float32{1, 1}}})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := idx.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	h, err := persistence.NewSliceReader(buf.Bytes()).ReadFileHeader()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h.ItemCount)
	assert.Equal(t, uint32(DefaultTrees), h.TreeCount)
}
