package vecfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNPY(t *testing.T, path string, v any) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, npyio.Write(&buf, v))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestID(t *testing.T) {
	tests := []struct {
		name string
		id   uint64
		ok   bool
	}{
		{"1.npy", 1, true},
		{"007.json", 7, true},
		{"42", 42, true},
		{"-1.npy", 0, false},
		{"abc.npy", 0, false},
		{".npy", 0, false},
		{"1.tar.gz", 0, false},
	}
	for _, tt := range tests {
		id, ok := ID(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.id, id, tt.name)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"3.npy", "1.npy", "01.json", "notes.txt", "10.f32"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2"), 0o755))

	entries, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{ID: 1, Name: "01.json"},
		{ID: 3, Name: "3.npy"},
		{ID: 10, Name: "10.f32"},
	}, entries)

	_, err = List(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_NPY(t *testing.T) {
	dir := t.TempDir()

	writeNPY(t, filepath.Join(dir, "1.npy"), []float32{0, 1})
	v, err := Load(filepath.Join(dir, "1.npy"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)

	writeNPY(t, filepath.Join(dir, "2.npy"), []float64{0.5, -2})
	v, err = Load(filepath.Join(dir, "2.npy"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -2}, v)

	writeNPY(t, filepath.Join(dir, "3.npy"), []int64{3, 4, 5})
	v, err = Load(filepath.Join(dir, "3.npy"))
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5}, v)
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.json"), []byte(`[1, 0.25, -3]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.json"), []byte(`[[1, 2]]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.json"), []byte(`{"v": 1}`), 0o644))

	v, err := Load(filepath.Join(dir, "1.json"))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0.25, -3}, v)

	v, err = Load(filepath.Join(dir, "2.json"))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)

	_, err = Load(filepath.Join(dir, "3.json"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoad_Raw(t *testing.T) {
	dir := t.TempDir()
	want := []float32{1.5, -0.5, 3}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.f32"), Encode(want), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.bin"), []byte{1, 2, 3}, 0o644))

	v, err := Load(filepath.Join(dir, "1.f32"))
	require.NoError(t, err)
	assert.Equal(t, want, v)

	_, err = Load(filepath.Join(dir, "2.bin"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("1.csv")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, Supported("1.csv"))
	assert.True(t, Supported("1.NPY"))
}
