package graph

import (
	"iter"
	"sync"
)

// Triple is a single (subject, predicate, object) fact.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// String returns the N-Triples line for t, without the trailing newline.
func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

func (t Triple) key() string {
	return t.Subject.Key() + "\x1f" + t.Predicate.Key() + "\x1f" + t.Object.Key()
}

// Store is the triple store contract used by reification and the knowledge
// base. Implementations may keep duplicate facts; Memory does not.
type Store interface {
	// Add inserts facts.
	Add(triples ...Triple)
	// Match yields every fact matching the pattern. Zero terms are wildcards.
	Match(s, p, o Term) iter.Seq[Triple]
	// Len returns the number of stored facts.
	Len() int
}

// Memory is an in-memory, set-semantic Store. Facts are kept in insertion
// order and indexed by subject, predicate and object. It is safe for
// concurrent use.
type Memory struct {
	mu      sync.RWMutex
	triples []Triple
	seen    map[string]struct{}
	bySubj  map[string][]int
	byPred  map[string][]int
	byObj   map[string][]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		seen:   make(map[string]struct{}),
		bySubj: make(map[string][]int),
		byPred: make(map[string][]int),
		byObj:  make(map[string][]int),
	}
}

// Add inserts facts, ignoring ones already present.
func (m *Memory) Add(triples ...Triple) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range triples {
		k := t.key()
		if _, ok := m.seen[k]; ok {
			continue
		}
		m.seen[k] = struct{}{}

		i := len(m.triples)
		m.triples = append(m.triples, t)
		m.bySubj[t.Subject.Key()] = append(m.bySubj[t.Subject.Key()], i)
		m.byPred[t.Predicate.Key()] = append(m.byPred[t.Predicate.Key()], i)
		m.byObj[t.Object.Key()] = append(m.byObj[t.Object.Key()], i)
	}
}

// Contains reports whether the exact fact is stored.
func (m *Memory) Contains(t Triple) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[t.key()]
	return ok
}

// Len returns the number of stored facts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.triples)
}

// Match yields facts matching the pattern in insertion order. The candidate
// set is captured when iteration starts, so the caller may Add while
// iterating without seeing its own additions.
func (m *Memory) Match(s, p, o Term) iter.Seq[Triple] {
	return func(yield func(Triple) bool) {
		for _, t := range m.snapshot(s, p, o) {
			if !yield(t) {
				return
			}
		}
	}
}

// Triples returns a copy of every stored fact in insertion order.
func (m *Memory) Triples() []Triple {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Triple, len(m.triples))
	copy(out, m.triples)
	return out
}

func (m *Memory) snapshot(s, p, o Term) []Triple {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Scan the shortest posting list among the bound positions.
	var (
		candidates []int
		indexed    bool
	)
	consider := func(idx map[string][]int, t Term) {
		if t.IsZero() {
			return
		}
		list := idx[t.Key()]
		if !indexed || len(list) < len(candidates) {
			candidates = list
			indexed = true
		}
	}
	consider(m.bySubj, s)
	consider(m.byPred, p)
	consider(m.byObj, o)

	var out []Triple
	if !indexed {
		out = make([]Triple, len(m.triples))
		copy(out, m.triples)
		return out
	}
	for _, i := range candidates {
		t := m.triples[i]
		if matches(t, s, p, o) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t Triple, s, p, o Term) bool {
	return (s.IsZero() || t.Subject.Equal(s)) &&
		(p.IsZero() || t.Predicate.Equal(p)) &&
		(o.IsZero() || t.Object.Equal(o))
}

// Objects returns the objects of facts with the given subject and predicate.
func Objects(st Store, s, p Term) []Term {
	var out []Term
	for t := range st.Match(s, p, Any) {
		out = append(out, t.Object)
	}
	return out
}

// Subjects returns the subjects of facts with the given predicate and object.
func Subjects(st Store, p, o Term) []Term {
	var out []Term
	for t := range st.Match(Any, p, o) {
		out = append(out, t.Subject)
	}
	return out
}

// First returns the object of the first fact with the given subject and
// predicate.
func First(st Store, s, p Term) (Term, bool) {
	for t := range st.Match(s, p, Any) {
		return t.Object, true
	}
	return Term{}, false
}
