package batch

import (
	"context"

	"github.com/nvandessel/promptedit/internal/prompt"
)

// Load reads paths with a Loader limited to jobs concurrent reads.
func Load(ctx context.Context, paths []string, jobs int) (*LoadResult, error) {
	return NewLoader(jobs).Load(ctx, paths)
}

// Common holds the tags shared by every image, per prompt side.
type Common struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// CommonTags finds the tags present in all images.
func CommonTags(images []Image) Common {
	pos := make([]string, len(images))
	neg := make([]string, len(images))
	for i, img := range images {
		pos[i] = img.Params.Positive
		neg[i] = img.Params.Negative
	}
	return Common{
		Positive: prompt.FindCommonTags(pos),
		Negative: prompt.FindCommonTags(neg),
	}
}

// Result is one image after edits have been applied.
type Result struct {
	Image        Image          `json:"image"`
	Positive     string         `json:"positive"`
	Negative     string         `json:"negative"`
	Infotext     string         `json:"infotext"`
	PositiveDiff prompt.TagDiff `json:"positive_diff"`
	NegativeDiff prompt.TagDiff `json:"negative_diff"`
}

// Changed reports whether either side lost or gained a tag.
func (r Result) Changed() bool {
	return !r.PositiveDiff.Empty() || !r.NegativeDiff.Empty()
}

// Preview applies edits to every image without touching any file.
func Preview(images []Image, edits prompt.EditSet) ([]Result, error) {
	if edits.Empty() {
		return nil, ErrNoEdits
	}

	results := make([]Result, 0, len(images))
	for _, img := range images {
		edited := img.Params.WithEdits(edits)
		results = append(results, Result{
			Image:        img,
			Positive:     edited.Positive,
			Negative:     edited.Negative,
			Infotext:     edited.Raw,
			PositiveDiff: prompt.Diff(img.Params.Positive, edited.Positive),
			NegativeDiff: prompt.Diff(img.Params.Negative, edited.Negative),
		})
	}
	return results, nil
}
