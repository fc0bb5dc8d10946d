package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
)

// Format names a textual graph serialization.
type Format uint8

const (
	// FormatTurtle is Turtle (.ttl).
	FormatTurtle Format = iota
	// FormatNTriples is N-Triples (.nt).
	FormatNTriples
	// FormatRDFXML is RDF/XML (.rdf, .xml).
	FormatRDFXML
)

// ErrUnknownFormat is returned for graph files with an unrecognized extension.
var ErrUnknownFormat = errors.New("graph: unknown serialization format")

func (f Format) String() string {
	switch f {
	case FormatTurtle:
		return "turtle"
	case FormatNTriples:
		return "ntriples"
	case FormatRDFXML:
		return "rdfxml"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

func (f Format) rdf() rdf.Format {
	switch f {
	case FormatNTriples:
		return rdf.NTriples
	case FormatRDFXML:
		return rdf.RDFXML
	default:
		return rdf.Turtle
	}
}

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl", ".turtle", ".n3":
		return FormatTurtle, nil
	case ".nt", ".ntriples":
		return FormatNTriples, nil
	case ".rdf", ".xml", ".owl":
		return FormatRDFXML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Decode parses every triple in r into a new Memory store.
func Decode(r io.Reader, format Format) (*Memory, error) {
	m := NewMemory()
	if err := DecodeInto(m, r, format); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeInto parses every triple in r and adds it to st.
func DecodeInto(st Store, r io.Reader, format Format) error {
	dec := rdf.NewTripleDecoder(r, format.rdf())
	for n := 1; ; n++ {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("graph: decode %s triple %d: %w", format, n, err)
		}
		st.Add(Triple{
			Subject:   fromRDF(tr.Subj),
			Predicate: fromRDF(tr.Pred),
			Object:    fromRDF(tr.Obj),
		})
	}
}

// ReadFile parses the graph file at path, choosing the format by extension.
func ReadFile(path string) (*Memory, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(bufio.NewReader(f), format)
}

func fromRDF(t rdf.Term) Term {
	switch t.Type() {
	case rdf.TermIRI:
		return IRI(t.String())
	case rdf.TermBlank:
		return Blank(t.String())
	case rdf.TermLiteral:
		lit, ok := t.(rdf.Literal)
		if !ok {
			return Literal(t.String())
		}
		if lang := lit.Lang(); lang != "" {
			return LangLiteral(lit.String(), lang)
		}
		dt := lit.DataType.String()
		if dt == rdfLangString {
			dt = ""
		}
		return TypedLiteral(lit.String(), dt)
	default:
		return Term{}
	}
}

// Encode writes every fact of st as N-Triples.
func Encode(w io.Writer, st Store) error {
	bw := bufio.NewWriter(w)
	for t := range st.Match(Any, Any, Any) {
		if _, err := bw.WriteString(t.String()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
