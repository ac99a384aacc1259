package prompt

// TagDiff lists the raw tags an edit removed from and added to a prompt.
type TagDiff struct {
	Removed []string `json:"removed"`
	Added   []string `json:"added"`
}

// Empty reports whether nothing changed at the tag level.
func (d TagDiff) Empty() bool {
	return len(d.Removed) == 0 && len(d.Added) == 0
}

// Diff compares two prompts by key. Removed holds tags of before with no
// match in after; Added holds tags of after with no match in before. Each
// key is reported once, in the order of its prompt.
func Diff(before, after string) TagDiff {
	b := Tokenize(before)
	a := Tokenize(after)
	return TagDiff{
		Removed: missingFrom(b, NewTagSet(a)),
		Added:   missingFrom(a, NewTagSet(b)),
	}
}

func missingFrom(tags []string, other TagSet) []string {
	out := []string{}
	seen := make(TagSet, len(tags))
	for _, tag := range tags {
		if other.Has(tag) || seen.Has(tag) {
			continue
		}
		seen.Add(tag)
		out = append(out, tag)
	}
	return out
}
