package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/promptedit/internal/infotext"
	"github.com/nvandessel/promptedit/internal/pngmeta"
	"github.com/nvandessel/promptedit/internal/prompt"
)

const settings = "Steps: 20, Sampler: Euler a, CFG scale: 7, Seed: 1, Size: 512x768"

// writePNG writes a 1x1 PNG to dir, with a parameters chunk when text is
// non-empty.
func writePNG(t *testing.T, dir, name, text string) string {
	t.Helper()
	blank := filepath.Join(dir, name+".blank")
	f, err := os.Create(blank)
	if err != nil {
		t.Fatalf("creating %s: %v", blank, err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing %s: %v", blank, err)
	}

	path := filepath.Join(dir, name)
	if text == "" {
		if err := os.Rename(blank, path); err != nil {
			t.Fatalf("renaming %s: %v", blank, err)
		}
		return path
	}
	if err := pngmeta.WriteFile(path, blank, text); err != nil {
		t.Fatalf("pngmeta.WriteFile() error = %v", err)
	}
	return path
}

func writeText(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "a.png", "masterpiece, (red hair:1.2), smile\nNegative prompt: lowres, bad hands\n"+settings),
		writePNG(t, dir, "blank.png", ""),
		writeText(t, dir, "b.txt", "masterpiece, smile, [red hair]"),
		writePNG(t, dir, "comfy.png", `{"prompt": {"3": {"class_type": "KSampler"}}}`),
		writeText(t, dir, "c.txt", "1girl, red hair\nNegative prompt: lowres\n"+settings),
	}

	res, err := Load(context.Background(), paths, 4)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var names []string
	for _, img := range res.Images {
		names = append(names, img.Name)
	}
	if diff := cmp.Diff([]string{"a.png", "b.txt", "c.txt"}, names); diff != "" {
		t.Errorf("loaded images mismatch (-want +got):\n%s", diff)
	}

	wantSkipped := []Skip{
		{Path: paths[1], Reason: "no parameters chunk"},
		{Path: paths[3], Reason: "not Stable Diffusion parameters"},
	}
	if diff := cmp.Diff(wantSkipped, res.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}

	a := res.Images[0].Params
	if a.Negative != "lowres, bad hands" {
		t.Errorf("a.png negative = %q", a.Negative)
	}
	if steps, ok := a.Int("Steps"); !ok || steps != 20 {
		t.Errorf("a.png Steps = %d, %v", steps, ok)
	}

	b := res.Images[1].Params
	if b.Positive != "masterpiece, smile, [red hair]" || b.Negative != "" {
		t.Errorf("bare prompt file parsed as %+v", b)
	}

	c := res.Images[2].Params
	if c.Positive != "1girl, red hair" || c.Negative != "lowres" {
		t.Errorf("infotext file parsed as %+v", c)
	}
}

func TestLoad_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := range 16 {
		paths = append(paths, writeText(t, dir, fmt.Sprintf("%02d.txt", i), fmt.Sprintf("tag%d", i)))
	}

	for _, jobs := range []int{0, 1, 3, 32} {
		t.Run(fmt.Sprintf("jobs=%d", jobs), func(t *testing.T) {
			res, err := Load(context.Background(), paths, jobs)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(res.Images) != len(paths) {
				t.Fatalf("got %d images, want %d", len(res.Images), len(paths))
			}
			for i, img := range res.Images {
				if want := fmt.Sprintf("tag%d", i); img.Params.Positive != want {
					t.Errorf("image %d positive = %q, want %q", i, img.Params.Positive, want)
				}
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeText(t, dir, "ok.txt", "a"),
		filepath.Join(dir, "missing.png"),
	}
	if _, err := Load(context.Background(), paths, 2); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	res, err := Load(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(res.Images) != 0 || len(res.Skipped) != 0 {
		t.Errorf("Load(nil) = %+v, want empty", res)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeText(t, dir, "a.txt", "a")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, paths, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func testImage(name, text string) Image {
	return Image{Path: name, Name: name, Params: infotext.Parse(text)}
}

func TestCommonTags(t *testing.T) {
	images := []Image{
		testImage("a.png", "masterpiece, (red hair:1.2), smile\nNegative prompt: lowres, bad hands\n"+settings),
		testImage("b.png", "Masterpiece, [red hair], blue eyes\nNegative prompt: (lowres:1.3)\n"+settings),
	}

	got := CommonTags(images)
	want := Common{
		Positive: []string{"masterpiece", "red hair"},
		Negative: []string{"lowres"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CommonTags() mismatch (-want +got):\n%s", diff)
	}

	if got := CommonTags(nil); len(got.Positive) != 0 || len(got.Negative) != 0 {
		t.Errorf("CommonTags(nil) = %+v, want empty", got)
	}
}

func TestPreview(t *testing.T) {
	images := []Image{
		testImage("a.png", "masterpiece, (red hair:1.2), smile\nNegative prompt: lowres\n"+settings),
		testImage("b.png", "masterpiece, blue eyes\n"+settings),
	}
	edits := prompt.EditSet{
		Positive: prompt.Edit{Remove: "red hair", Add: "1girl"},
		Negative: prompt.Edit{Add: "bad hands"},
	}

	results, err := Preview(images, edits)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Preview() returned %d results, want 2", len(results))
	}

	a := results[0]
	if a.Positive != "masterpiece, smile, 1girl" {
		t.Errorf("a positive = %q", a.Positive)
	}
	if a.Negative != "lowres, bad hands" {
		t.Errorf("a negative = %q", a.Negative)
	}
	wantInfotext := "masterpiece, smile, 1girl\nNegative prompt: lowres, bad hands\n" + settings
	if a.Infotext != wantInfotext {
		t.Errorf("a infotext = %q, want %q", a.Infotext, wantInfotext)
	}
	wantDiff := prompt.TagDiff{Removed: []string{"(red hair:1.2)"}, Added: []string{"1girl"}}
	if diff := cmp.Diff(wantDiff, a.PositiveDiff); diff != "" {
		t.Errorf("a positive diff mismatch (-want +got):\n%s", diff)
	}
	if !a.Changed() {
		t.Error("a.Changed() = false, want true")
	}

	b := results[1]
	if b.Negative != "bad hands" {
		t.Errorf("b negative = %q", b.Negative)
	}
	if images[1].Params.Negative != "" {
		t.Errorf("Preview modified input params: %+v", images[1].Params)
	}
}

func TestPreview_NoEdits(t *testing.T) {
	_, err := Preview([]Image{testImage("a.png", "a")}, prompt.EditSet{Positive: prompt.Edit{Remove: " , "}})
	if !errors.Is(err, ErrNoEdits) {
		t.Errorf("Preview() error = %v, want ErrNoEdits", err)
	}
}
