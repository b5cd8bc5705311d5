package lexical

import (
	"slices"
	"sync"
)

// Store owns one Index per space. Writers replace a space's Index wholesale,
// so readers always see a complete index, old or new.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*Index
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{indexes: make(map[string]*Index)}
}

// Replace rebuilds the space's index from docs. An empty docs drops it.
func (s *Store) Replace(space string, docs []string) {
	if len(docs) == 0 {
		s.Drop(space)
		return
	}
	ix := NewIndex(docs)

	s.mu.Lock()
	s.indexes[space] = ix
	s.mu.Unlock()
}

// Append extends the space's document list with docs and rebuilds the index
// over the extended list.
func (s *Store) Append(space string, docs []string) {
	if len(docs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var all []string
	if ix, ok := s.indexes[space]; ok {
		all = slices.Grow(slices.Clone(ix.docs), len(docs))
	}
	s.indexes[space] = NewIndex(append(all, docs...))
}

// Drop removes the space's index.
func (s *Store) Drop(space string) {
	s.mu.Lock()
	delete(s.indexes, space)
	s.mu.Unlock()
}

// Search returns up to k scored documents of space. A space without an
// index yields no hits.
func (s *Store) Search(space, query string, k int) []Hit {
	ix := s.get(space)
	if ix == nil {
		return nil
	}
	return ix.Search(query, k)
}

// Documents returns the space's document list in order.
func (s *Store) Documents(space string) []string {
	ix := s.get(space)
	if ix == nil {
		return nil
	}
	return ix.Documents()
}

// Has reports whether the space has an index.
func (s *Store) Has(space string) bool {
	return s.get(space) != nil
}

// Spaces returns the indexed spaces, sorted.
func (s *Store) Spaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spaces := make([]string, 0, len(s.indexes))
	for space := range s.indexes {
		spaces = append(spaces, space)
	}
	slices.Sort(spaces)
	return spaces
}

func (s *Store) get(space string) *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexes[space]
}
