package graph

import (
	"strconv"
	"strings"
)

// Well-known vocabulary IRIs.
const (
	RDFType    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFSClass  = "http://www.w3.org/2000/01/rdf-schema#Class"
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"

	rdfLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	xsdNS         = "http://www.w3.org/2001/XMLSchema#"
)

var integerTypes = map[string]struct{}{
	"integer":            {},
	"int":                {},
	"long":               {},
	"short":              {},
	"byte":               {},
	"nonNegativeInteger": {},
	"positiveInteger":    {},
	"nonPositiveInteger": {},
	"negativeInteger":    {},
	"unsignedLong":       {},
	"unsignedInt":        {},
	"unsignedShort":      {},
	"unsignedByte":       {},
}

// Kind identifies the concrete type of a Term.
type Kind uint8

const (
	// KindInvalid is the zero Term. In patterns it matches anything.
	KindInvalid Kind = iota
	// KindIRI is an IRI reference.
	KindIRI
	// KindBlank is a blank node.
	KindBlank
	// KindLiteral is a literal with optional datatype or language tag.
	KindLiteral
)

// Term is an RDF term.
//
// For literals, Datatype is empty for plain strings and Lang holds the
// language tag, if any.
type Term struct {
	Kind     Kind
	Value    string
	Datatype string
	Lang     string
}

// Any is the wildcard term used in Match patterns.
var Any Term

// IRI returns an IRI term.
func IRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

// Blank returns a blank node term.
func Blank(id string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(id, "_:")}
}

// Literal returns a plain string literal.
func Literal(s string) Term {
	return Term{Kind: KindLiteral, Value: s}
}

// TypedLiteral returns a literal with the given datatype IRI.
func TypedLiteral(s, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: s, Datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(s, lang string) Term {
	return Term{Kind: KindLiteral, Value: s, Lang: strings.ToLower(lang)}
}

// Integer returns an xsd:integer literal.
func Integer(n int64) Term {
	return Term{Kind: KindLiteral, Value: strconv.FormatInt(n, 10), Datatype: XSDInteger}
}

// IsZero reports whether t is the wildcard term.
func (t Term) IsZero() bool {
	return t.Kind == KindInvalid
}

// IsInteger reports whether t is a literal with an XSD integer datatype.
func (t Term) IsInteger() bool {
	if t.Kind != KindLiteral || !strings.HasPrefix(t.Datatype, xsdNS) {
		return false
	}
	_, ok := integerTypes[t.Datatype[len(xsdNS):]]
	return ok
}

// Int64 returns the numeric value of an integer literal. It reports false for
// other terms and for lexical forms that do not parse.
func (t Term) Int64() (int64, bool) {
	if !t.IsInteger() {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(t.Value), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Key returns the identity of t. Integer literals compare by value, so
// "007"^^xsd:integer and 7 share a key.
func (t Term) Key() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		if n, ok := t.Int64(); ok {
			return "i:" + strconv.FormatInt(n, 10)
		}
		return t.String()
	default:
		return ""
	}
}

// Equal reports whether t and o denote the same term.
func (t Term) Equal(o Term) bool {
	return t.Kind == o.Kind && t.Key() == o.Key()
}

// String returns the N-Triples form of t.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + escapeIRI(t.Value) + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		var sb strings.Builder
		sb.WriteByte('"')
		sb.WriteString(escapeLiteral(t.Value))
		sb.WriteByte('"')
		switch {
		case t.Lang != "":
			sb.WriteByte('@')
			sb.WriteString(t.Lang)
		case t.Datatype != "":
			sb.WriteString("^^<")
			sb.WriteString(escapeIRI(t.Datatype))
			sb.WriteByte('>')
		}
		return sb.String()
	default:
		return "*"
	}
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

var iriEscaper = strings.NewReplacer(
	">", `\u003E`,
	"<", `\u003C`,
	`"`, `\u0022`,
	" ", `\u0020`,
	`\`, `\u005C`,
)

func escapeIRI(s string) string {
	return iriEscaper.Replace(s)
}
