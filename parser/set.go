package parser

// OrderedSet is a set of strings that remembers insertion order.
// The zero value is an empty set ready to use.
type OrderedSet struct {
	items []string
	index map[string]struct{}
}

// NewOrderedSet creates a set holding the given values in order, skipping duplicates
func NewOrderedSet(values ...string) *OrderedSet {
	s := &OrderedSet{}
	s.Add(values...)
	return s
}

// Add inserts values not already present, keeping first-seen order
func (s *OrderedSet) Add(values ...string) {
	if s.index == nil {
		s.index = make(map[string]struct{}, len(values))
	}
	for _, v := range values {
		if _, ok := s.index[v]; ok {
			continue
		}
		s.index[v] = struct{}{}
		s.items = append(s.items, v)
	}
}

// Remove deletes v from the set. It reports whether v was present.
func (s *OrderedSet) Remove(v string) bool {
	if _, ok := s.index[v]; !ok {
		return false
	}
	delete(s.index, v)
	for i, item := range s.items {
		if item == v {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether v is in the set
func (s *OrderedSet) Contains(v string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[v]
	return ok
}

// Len returns the number of values
func (s *OrderedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Values returns a copy of the values in insertion order
func (s *OrderedSet) Values() []string {
	if s == nil || len(s.items) == 0 {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
