package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := writeFile(t, content)

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, path, m.Path())
	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	partial := make([]byte, 10)
	n, err = m.ReadAt(partial, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)

	require.NoError(t, m.Advise(AccessRandom))
}

func TestMmap_EmptyFile(t *testing.T) {
	m, err := Open(writeFile(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.Nil(t, m.Bytes())
}

func TestMmap_AfterClose(t *testing.T) {
	m, err := Open(writeFile(t, []byte("data")))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close is idempotent")

	assert.True(t, m.Closed())
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMmap_RemoveAfterClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scratch", "index.kbf")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("index bytes"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	require.NoError(t, os.RemoveAll(filepath.Dir(path)))
	_, err = os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(err))
}

func TestMmap_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}
