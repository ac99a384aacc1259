package prompt

// FindCommonTags returns the cores of the tags present in every prompt.
//
// A tag counts as common when its key appears at least once in each prompt.
// Results follow the order of prompts[0] and use its display casing; each
// core is reported once. Returns an empty, non-nil slice when prompts is
// empty or nothing is shared.
func FindCommonTags(prompts []string) []string {
	if len(prompts) == 0 {
		return []string{}
	}

	first := Tokenize(prompts[0])
	common := NewTagSet(first)
	for _, p := range prompts[1:] {
		common = common.Intersect(NewTagSet(Tokenize(p)))
	}

	result := []string{}
	seen := make(map[string]bool, common.Len())
	for _, tag := range first {
		core := ExtractCore(tag)
		key := Key(core)
		if !common.Has(core) || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, core)
	}
	return result
}
