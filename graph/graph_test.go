package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTurtle = `@prefix ex: <http://example.org/> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:a rdf:type ex:Item ;
     ex:id 1 ;
     ex:label "first \"item\""@en .
ex:b rdf:type ex:Item ;
     ex:id "007"^^xsd:integer .
ex:c rdf:type ex:Item .
`

func TestTerm_IntegerEquality(t *testing.T) {
	a := TypedLiteral("007", XSDInteger)
	b := Integer(7)

	assert.True(t, a.Equal(b))
	n, ok := a.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = Literal("7").Int64()
	assert.False(t, ok)
	assert.False(t, Literal("7").Equal(b))

	_, ok = TypedLiteral("x", XSDInteger).Int64()
	assert.False(t, ok)
}

func TestTerm_String(t *testing.T) {
	assert.Equal(t, "<http://example.org/a>", IRI("http://example.org/a").String())
	assert.Equal(t, "_:b0", Blank("_:b0").String())
	assert.Equal(t, `"a\"b\nc"`, Literal("a\"b\nc").String())
	assert.Equal(t, `"hi"@en`, LangLiteral("hi", "EN").String())
	assert.Equal(t, `"5"^^<http://www.w3.org/2001/XMLSchema#integer>`, Integer(5).String())
	assert.Equal(t, `"s"`, TypedLiteral("s", XSDString).String())
}

func TestMemory_SetSemantics(t *testing.T) {
	m := NewMemory()
	tr := Triple{IRI("http://example.org/a"), IRI("http://example.org/id"), Integer(1)}

	m.Add(tr, tr)
	m.Add(Triple{tr.Subject, tr.Predicate, TypedLiteral("01", XSDInteger)})

	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Contains(tr))
}

func TestMemory_Match(t *testing.T) {
	m := NewMemory()
	typ := IRI(RDFType)
	item := IRI("http://example.org/Item")
	id := IRI("http://example.org/id")

	m.Add(
		Triple{IRI("http://example.org/a"), typ, item},
		Triple{IRI("http://example.org/a"), id, Integer(1)},
		Triple{IRI("http://example.org/b"), typ, item},
		Triple{IRI("http://example.org/b"), id, Integer(2)},
	)

	assert.Equal(t, []Term{IRI("http://example.org/a"), IRI("http://example.org/b")}, Subjects(m, typ, item))
	assert.Equal(t, []Term{IRI("http://example.org/b")}, Subjects(m, id, TypedLiteral("2", XSDInteger)))
	assert.Equal(t, []Term{Integer(1)}, Objects(m, IRI("http://example.org/a"), id))

	var all int
	for range m.Match(Any, Any, Any) {
		all++
	}
	assert.Equal(t, 4, all)

	_, ok := First(m, IRI("http://example.org/zzz"), id)
	assert.False(t, ok)
}

func TestMemory_AddWhileMatching(t *testing.T) {
	m := NewMemory()
	p := IRI("http://example.org/p")
	m.Add(Triple{IRI("http://example.org/a"), p, Integer(1)})

	for tr := range m.Match(Any, p, Any) {
		m.Add(Triple{tr.Subject, IRI("http://example.org/q"), tr.Object})
	}
	assert.Equal(t, 2, m.Len())
}

func TestDecode_Turtle(t *testing.T) {
	g, err := Decode(strings.NewReader(sampleTurtle), FormatTurtle)
	require.NoError(t, err)

	items := Subjects(g, IRI(RDFType), IRI("http://example.org/Item"))
	assert.Len(t, items, 3)

	b := Subjects(g, IRI("http://example.org/id"), Integer(7))
	require.Len(t, b, 1)
	assert.Equal(t, IRI("http://example.org/b"), b[0])

	label, ok := First(g, IRI("http://example.org/a"), IRI("http://example.org/label"))
	require.True(t, ok)
	assert.Equal(t, `first "item"`, label.Value)
	assert.Equal(t, "en", label.Lang)
}

func TestEncode_RoundTrip(t *testing.T) {
	g, err := Decode(strings.NewReader(sampleTurtle), FormatTurtle)
	require.NoError(t, err)
	g.Add(Triple{IRI("http://example.org/a"), IRI("http://knowledge.base/has_embedding"), Literal("1.npy")})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g))

	back, err := Decode(&buf, FormatNTriples)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), back.Len())
	for _, tr := range g.Triples() {
		assert.True(t, back.Contains(tr), tr.String())
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.ttl")
	require.NoError(t, os.WriteFile(path, []byte(sampleTurtle), 0o644))

	g, err := ReadFile(path)
	require.NoError(t, err)
	assert.Positive(t, g.Len())

	_, err = ReadFile(filepath.Join(dir, "data.csv"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ReadFile(filepath.Join(dir, "missing.nt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
