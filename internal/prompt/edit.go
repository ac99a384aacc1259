package prompt

import (
	"strings"
)

// Edit is a pair of free-text tag lists applied to one prompt.
// Remove is comma separated; Add is appended verbatim.
type Edit struct {
	Remove string `json:"remove,omitempty" yaml:"remove,omitempty"`
	Add    string `json:"add,omitempty" yaml:"add,omitempty"`
}

// Empty reports whether applying the edit would leave any prompt untouched.
func (e Edit) Empty() bool {
	return len(SplitList(e.Remove)) == 0 && strings.TrimSpace(e.Add) == ""
}

// Apply runs ApplyEdits with the edit's lists.
func (e Edit) Apply(p string) string {
	return ApplyEdits(p, e.Remove, e.Add)
}

// Merge combines e with next: both removal lists apply, and next's
// addition follows e's.
func (e Edit) Merge(next Edit) Edit {
	var remove []string
	for _, list := range []string{e.Remove, next.Remove} {
		if list = strings.TrimSpace(list); list != "" {
			remove = append(remove, list)
		}
	}
	return Edit{
		Remove: strings.Join(remove, Separator),
		Add:    AddTags(e.Add, next.Add),
	}
}

// EditSet holds one Edit per prompt side of an image.
type EditSet struct {
	Positive Edit `json:"positive" yaml:"positive"`
	Negative Edit `json:"negative" yaml:"negative"`
}

// Empty reports whether neither side would change.
func (s EditSet) Empty() bool {
	return s.Positive.Empty() && s.Negative.Empty()
}

// Merge merges each side of s with the same side of next.
func (s EditSet) Merge(next EditSet) EditSet {
	return EditSet{
		Positive: s.Positive.Merge(next.Positive),
		Negative: s.Negative.Merge(next.Negative),
	}
}

// SplitList splits a comma separated list into trimmed, non-empty entries.
func SplitList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// RemoveTags drops every tag of p whose key matches a key of the given
// phrases. A phrase may itself hold several tags or bracket syntax; each of
// its tags is matched by core, case-insensitively.
//
// With no phrases p is returned unchanged, without normalization.
func RemoveTags(p string, phrases []string) string {
	if len(phrases) == 0 {
		return p
	}

	remove := make(TagSet)
	for _, phrase := range phrases {
		for _, tag := range Tokenize(phrase) {
			remove.Add(tag)
		}
	}

	tags := Tokenize(p)
	kept := make([]string, 0, len(tags))
	for _, tag := range tags {
		if !remove.Has(tag) {
			kept = append(kept, tag)
		}
	}
	return Join(kept)
}

// AddTags appends add to the end of p. The addition is trimmed but not
// tokenized, so it may carry several tags. An empty addition returns p as-is.
func AddTags(p, add string) string {
	add = strings.TrimSpace(add)
	if add == "" {
		return p
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return add
	}
	return p + Separator + add
}

// ApplyEdits removes the tags listed in remove, then appends add.
func ApplyEdits(p, remove, add string) string {
	return AddTags(RemoveTags(p, SplitList(remove)), add)
}
