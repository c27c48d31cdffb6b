package types

import "sort"

// IDSet is a set of message identifiers. Callers only ever add to it.
type IDSet map[string]struct{}

// NewIDSet creates a set holding the given ids
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id into the set
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Merge adds every id of other into s
func (s IDSet) Merge(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Difference returns the ids in s that are not in other
func (s IDSet) Difference(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the ids in ascending order
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
