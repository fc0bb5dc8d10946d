// Package vocab holds the fixed namespace, predicates and classes a knowledge
// base uses to link graph entities to their artifacts.
package vocab

import "github.com/hupe1980/graphkb/graph"

// Namespace is the IRI prefix of every knowledge base term.
const Namespace = "http://knowledge.base/"

// Storage location literals of the artifact classes.
const (
	EmbeddingLocation = "VectorIndex"
	ImageLocation     = "images"
)

var (
	// HasEmbedding links an entity to its vector file name.
	HasEmbedding = graph.IRI(Namespace + "has_embedding")
	// HasImage links an entity to its image file name.
	HasImage = graph.IRI(Namespace + "has_image")
	// Embedding is the class of embedding artifacts.
	Embedding = graph.IRI(Namespace + "embedding")
	// Image is the class of image artifacts.
	Image = graph.IRI(Namespace + "image")
	// LocatedAt gives the storage location of an artifact class.
	LocatedAt = graph.IRI(Namespace + "located_at")
	// HasLength gives the vector length of the embedding class.
	HasLength = graph.IRI(Namespace + "has_length")

	Type  = graph.IRI(graph.RDFType)
	Class = graph.IRI(graph.RDFSClass)
)

// ClassFacts returns the class declarations and storage locations of the
// embedding and image classes.
func ClassFacts() []graph.Triple {
	return []graph.Triple{
		{Subject: Embedding, Predicate: Type, Object: Class},
		{Subject: Embedding, Predicate: LocatedAt, Object: graph.Literal(EmbeddingLocation)},
		{Subject: Image, Predicate: Type, Object: Class},
		{Subject: Image, Predicate: LocatedAt, Object: graph.Literal(ImageLocation)},
	}
}

// LengthFact records the vector length of the embedding class.
func LengthFact(n int) graph.Triple {
	return graph.Triple{Subject: Embedding, Predicate: HasLength, Object: graph.Integer(int64(n))}
}
