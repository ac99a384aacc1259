package prompt

// TagSet is an unordered set of comparison keys (see Key).
type TagSet map[string]struct{}

// NewTagSet builds the key set of the given raw tags.
func NewTagSet(tags []string) TagSet {
	s := make(TagSet, len(tags))
	for _, tag := range tags {
		s.Add(tag)
	}
	return s
}

// Add inserts the key of a raw tag.
func (s TagSet) Add(tag string) {
	s[Key(tag)] = struct{}{}
}

// Has reports whether the key of a raw tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := s[Key(tag)]
	return ok
}

// Len returns the number of distinct keys.
func (s TagSet) Len() int {
	return len(s)
}

// Intersect returns a new set holding the keys present in both s and other.
func (s TagSet) Intersect(other TagSet) TagSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(TagSet, len(small))
	for k := range small {
		if _, ok := large[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
