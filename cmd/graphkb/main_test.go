package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itemsTurtle = `@prefix ex: <http://example.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:item1 a ex:Item ; ex:id "1"^^xsd:integer .
ex:item2 a ex:Item ; ex:id "2"^^xsd:integer .
ex:item3 a ex:Item ; ex:id "3"^^xsd:integer .
`

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0xFF, 0xD9}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fixture(t *testing.T) (root string) {
	t.Helper()
	root = t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "items.ttl"), []byte(itemsTurtle), 0o644))

	emb := filepath.Join(root, "emb")
	require.NoError(t, os.Mkdir(emb, 0o755))
	for name, v := range map[string][]float32{
		"1.npy": {0, 1},
		"2.npy": {0, 1},
		"3.npy": {1, 0},
	} {
		var buf bytes.Buffer
		require.NoError(t, npyio.Write(&buf, v))
		require.NoError(t, os.WriteFile(filepath.Join(emb, name), buf.Bytes(), 0o644))
	}

	img := filepath.Join(root, "img")
	require.NoError(t, os.Mkdir(img, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(img, "1.jpg"), jpeg, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(img, "3.jpg"), jpeg, 0o644))

	cfg := "store:\n  backend: local\n  root: " + filepath.Join(root, "store") + "\n" +
		"archive:\n  cache_dir: " + filepath.Join(root, "cache") + "\n" +
		"ingest:\n  entity_type: http://example.org/Item\n  id_predicate: http://example.org/id\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "graphkb.yaml"), []byte(cfg), 0o644))
	return root
}

func TestWorkflow(t *testing.T) {
	root := fixture(t)
	conf := filepath.Join(root, "graphkb.yaml")
	kb := filepath.Join(root, "out", "kb.ttlplus")

	out, err := run(t, "ingest", "--config", conf,
		"--graph", filepath.Join(root, "items.ttl"),
		"--embeddings", filepath.Join(root, "emb"),
		"--images", filepath.Join(root, "img"),
		"--out", filepath.Join(root, "out"),
		"--trees", "4")
	require.NoError(t, err, out)
	assert.Contains(t, out, "3 entities")
	assert.FileExists(t, kb)

	out, err = run(t, "similar", "--config", conf, "--kb", kb, "--id", "1", "-k", "2")
	require.NoError(t, err, out)
	assert.Equal(t, "2\n3\n", out)

	out, err = run(t, "similar", "--config", conf, "--kb", kb, "--id", "42")
	require.NoError(t, err, out)
	assert.Empty(t, out)

	out, err = run(t, "info", "--config", conf, "--kb", kb)
	require.NoError(t, err, out)
	assert.Contains(t, out, "http://example.org/Item")
	assert.Regexp(t, `trees\s+4`, out)

	shown := filepath.Join(root, "shown")
	out, err = run(t, "images", "--config", conf, "--kb", kb, "--id", "1", "-k", "2", "--out", shown)
	require.NoError(t, err, out)
	assert.Contains(t, out, "wrote 2 images")
	assert.FileExists(t, filepath.Join(shown, "00_1.jpg"))
	assert.FileExists(t, filepath.Join(shown, "02_3.jpg"))

	out, err = run(t, "publish", "--config", conf, "--kb", kb, "--name", "kbs/items.ttlplus")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(root, "store", "kbs", "items.ttlplus"))

	out, err = run(t, "fetch", "--config", conf, "--name", "kbs/items.ttlplus")
	require.NoError(t, err, out)
	assert.Equal(t, filepath.Join(root, "cache", "kbs", "items.ttlplus"), strings.TrimSpace(out))

	out, err = run(t, "similar", "--config", conf, "--blob", "kbs/items.ttlplus", "--id", "1", "-k", "2")
	require.NoError(t, err, out)
	assert.Equal(t, "2\n3\n", out)
}

func TestFlagErrors(t *testing.T) {
	_, err := run(t, "similar", "--id", "1")
	assert.Error(t, err)

	_, err = run(t, "similar", "--kb", "a", "--blob", "b", "--id", "1")
	assert.Error(t, err)

	_, err = run(t, "info", "--kb", "x", "--log-format", "xml")
	assert.ErrorContains(t, err, "log.format")

	root := fixture(t)
	_, err = run(t, "ingest", "--config", filepath.Join(root, "graphkb.yaml"),
		"--graph", filepath.Join(root, "items.ttl"),
		"--embeddings", filepath.Join(root, "emb"),
		"--out", filepath.Join(root, "out"),
		"--metric", "jaccard")
	assert.Error(t, err)
}
