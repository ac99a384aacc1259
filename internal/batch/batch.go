// Package batch loads prompts from many images at once and applies the
// same edits to all of them.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nvandessel/promptedit/internal/infotext"
	"github.com/nvandessel/promptedit/internal/logging"
	"github.com/nvandessel/promptedit/internal/pngmeta"
	"github.com/nvandessel/promptedit/internal/prompt"
	"golang.org/x/sync/errgroup"
)

// ErrNoEdits is returned when an edit run has nothing to remove or add.
var ErrNoEdits = errors.New("no edits given: set a remove or add list for at least one side")

// Image is a source file and the generation parameters read from it.
type Image struct {
	Path   string           `json:"path"`
	Name   string           `json:"name"`
	Params *infotext.Params `json:"params"`
}

// Skip records a file that was read but holds no usable prompt.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// LoadResult is the outcome of Load. Images keep the order of the input paths.
type LoadResult struct {
	Images  []Image `json:"images"`
	Skipped []Skip  `json:"skipped,omitempty"`
}

// Loader reads images concurrently.
type Loader struct {
	// Jobs bounds concurrent reads. Values <= 0 mean GOMAXPROCS.
	Jobs int

	logger *slog.Logger
}

// NewLoader creates a Loader reading up to jobs files at a time.
func NewLoader(jobs int) *Loader {
	return &Loader{Jobs: jobs, logger: logging.Discard()}
}

// SetLogger sets the structured logger.
func (l *Loader) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

type loaded struct {
	image *Image
	skip  *Skip
}

// Load reads every path. PNG files contribute their parameters chunk; .txt
// files are parsed as infotext when they look like one and otherwise taken
// as a bare positive prompt. Files without Stable Diffusion parameters are
// skipped. I/O errors abort the whole load.
func (l *Loader) Load(ctx context.Context, paths []string) (*LoadResult, error) {
	jobs := l.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Each goroutine owns one index, so no mutex is needed.
	results := make([]loaded, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := loadFile(path)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &LoadResult{Images: []Image{}}
	for _, r := range results {
		if r.skip != nil {
			l.logger.Warn("skipping file", "path", r.skip.Path, "reason", r.skip.Reason)
			out.Skipped = append(out.Skipped, *r.skip)
			continue
		}
		l.logger.Debug("loaded image", "path", r.image.Path,
			"positive_tags", len(prompt.Tokenize(r.image.Params.Positive)),
			"negative_tags", len(prompt.Tokenize(r.image.Params.Negative)))
		out.Images = append(out.Images, *r.image)
	}
	return out, nil
}

func loadFile(path string) (loaded, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded{}, fmt.Errorf("reading prompt file: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return loaded{skip: &Skip{Path: path, Reason: "empty file"}}, nil
		}
		params := &infotext.Params{Positive: text, Settings: map[string]string{}, Raw: text}
		if infotext.IsSDMetadata(text) {
			params = infotext.Parse(text)
		}
		return loaded{image: newImage(path, params)}, nil
	}

	raw, err := pngmeta.ReadFile(path)
	switch {
	case errors.Is(err, pngmeta.ErrNoParameters):
		return loaded{skip: &Skip{Path: path, Reason: "no parameters chunk"}}, nil
	case errors.Is(err, pngmeta.ErrNotPNG):
		return loaded{skip: &Skip{Path: path, Reason: "not a PNG file"}}, nil
	case err != nil:
		return loaded{}, err
	}
	if !infotext.IsSDMetadata(raw) {
		return loaded{skip: &Skip{Path: path, Reason: "not Stable Diffusion parameters"}}, nil
	}
	return loaded{image: newImage(path, infotext.Parse(raw))}, nil
}

func newImage(path string, params *infotext.Params) *Image {
	return &Image{Path: path, Name: filepath.Base(path), Params: params}
}
