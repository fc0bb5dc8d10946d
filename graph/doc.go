// Package graph provides the triple store used by a knowledge base.
//
// Store is the contract the rest of the module depends on: add facts and
// iterate facts matching a partial (subject, predicate, object) pattern.
// Memory is the bundled set-semantic implementation.
//
// Graph files are parsed from Turtle, N-Triples or RDF/XML with Decode or
// ReadFile, and snapshotted as N-Triples with Encode:
//
//	g, err := graph.ReadFile("data.ttl")
//	if err != nil {
//		return err
//	}
//	for t := range g.Match(graph.Any, graph.IRI(graph.RDFType), graph.IRI("http://example.org/Item")) {
//		fmt.Println(t.Subject)
//	}
//
// Integer literals are compared by value: "007"^^xsd:integer matches 7.
package graph
