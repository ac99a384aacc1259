package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/promptedit/internal/batch"
	"github.com/nvandessel/promptedit/internal/prompt"
	"github.com/nvandessel/promptedit/internal/ratelimit"
	"github.com/nvandessel/promptedit/internal/store"
)

func TestHandleTokenize(t *testing.T) {
	server := setupTestServer(t)

	result, output, err := server.handleTokenize(context.Background(), nil, TokenizeInput{
		Prompt: "masterpiece, (red hair, blue eyes:1.2)\n<lora:x:0.8>",
	})
	if err != nil {
		t.Fatalf("handleTokenize failed: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result (SDK auto-populates)")
	}

	want := []string{"masterpiece", "(red hair, blue eyes:1.2)", "<lora:x:0.8>"}
	if diff := cmp.Diff(want, output.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
	if output.Count != 3 {
		t.Errorf("Count = %d, want 3", output.Count)
	}
}

func TestHandleTokenize_Empty(t *testing.T) {
	server := setupTestServer(t)

	_, output, err := server.handleTokenize(context.Background(), nil, TokenizeInput{})
	if err != nil {
		t.Fatalf("handleTokenize failed: %v", err)
	}
	if output.Tags == nil || len(output.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", output.Tags)
	}
}

func TestHandleExtractCore(t *testing.T) {
	server := setupTestServer(t)

	_, output, err := server.handleExtractCore(context.Background(), nil, ExtractCoreInput{
		Tags: []string{"(Red Hair:1.2)", "[blue eyes]", "<lora:x:0.8>"},
	})
	if err != nil {
		t.Fatalf("handleExtractCore failed: %v", err)
	}

	want := []CoreResult{
		{Tag: "(Red Hair:1.2)", Core: "Red Hair", Key: "red hair"},
		{Tag: "[blue eyes]", Core: "blue eyes", Key: "blue eyes"},
		{Tag: "<lora:x:0.8>", Core: "<lora:x:0.8>", Key: "<lora:x:0.8>"},
	}
	if diff := cmp.Diff(want, output.Cores); diff != "" {
		t.Errorf("Cores mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleApplyEdits(t *testing.T) {
	tests := []struct {
		name       string
		args       ApplyEditsInput
		wantResult string
		wantDiff   prompt.TagDiff
		wantSide   store.Side
	}{
		{
			name:       "remove and add",
			args:       ApplyEditsInput{Prompt: "1girl, (Red Hair:1.2), smile", Remove: "red hair", Add: "blue eyes"},
			wantResult: "1girl, smile, blue eyes",
			wantDiff:   prompt.TagDiff{Removed: []string{"(Red Hair:1.2)"}, Added: []string{"blue eyes"}},
			wantSide:   store.SidePrompt,
		},
		{
			name:       "positive preset",
			args:       ApplyEditsInput{Prompt: "1girl, watermark", Preset: "clean", Side: "positive"},
			wantResult: "1girl, masterpiece",
			wantDiff:   prompt.TagDiff{Removed: []string{"watermark"}, Added: []string{"masterpiece"}},
			wantSide:   store.SidePositive,
		},
		{
			name:       "negative preset with extra addition",
			args:       ApplyEditsInput{Prompt: "blurry", Preset: "clean", Side: "negative", Add: "jpeg artifacts"},
			wantResult: "blurry, lowres, bad hands, jpeg artifacts",
			wantDiff:   prompt.TagDiff{Removed: []string{}, Added: []string{"lowres", "bad hands", "jpeg artifacts"}},
			wantSide:   store.SideNegative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t)
			ctx := context.Background()

			_, output, err := server.handleApplyEdits(ctx, nil, tt.args)
			if err != nil {
				t.Fatalf("handleApplyEdits failed: %v", err)
			}
			if output.Result != tt.wantResult {
				t.Errorf("Result = %q, want %q", output.Result, tt.wantResult)
			}
			if diff := cmp.Diff(tt.wantDiff, output.Diff); diff != "" {
				t.Errorf("Diff mismatch (-want +got):\n%s", diff)
			}

			entries, err := server.history.List(ctx, store.Filter{})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("history has %d entries, want 1", len(entries))
			}
			e := entries[0]
			if e.ID != output.HistoryID {
				t.Errorf("history ID = %q, output HistoryID = %q", e.ID, output.HistoryID)
			}
			if e.Side != tt.wantSide || e.Source != "mcp" {
				t.Errorf("history entry side/source = %q/%q", e.Side, e.Source)
			}
			if e.Original != tt.args.Prompt || e.Edited != tt.wantResult {
				t.Errorf("history entry = %+v", e)
			}
		})
	}
}

func TestHandleApplyEdits_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    ApplyEditsInput
		wantErr string
		is      error
	}{
		{name: "no edits", args: ApplyEditsInput{Prompt: "a", Remove: " , "}, is: batch.ErrNoEdits},
		{name: "unknown preset", args: ApplyEditsInput{Prompt: "a", Preset: "missing"}, wantErr: "missing"},
		{name: "bad side", args: ApplyEditsInput{Prompt: "a", Add: "b", Side: "both"}, wantErr: "invalid side"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t)
			_, _, err := server.handleApplyEdits(context.Background(), nil, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestHandleApplyEdits_RateLimited(t *testing.T) {
	server := setupTestServer(t)
	server.toolLimiters = ratelimit.ToolLimiters{"prompt_apply_edits": ratelimit.NewLimiter(0, 1)}
	ctx := context.Background()
	args := ApplyEditsInput{Prompt: "a", Add: "b"}

	if _, _, err := server.handleApplyEdits(ctx, nil, args); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	_, _, err := server.handleApplyEdits(ctx, nil, args)
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("second call error = %v, want rate limit", err)
	}
}

func TestHandleCommonTags(t *testing.T) {
	server := setupTestServer(t)

	_, output, err := server.handleCommonTags(context.Background(), nil, CommonTagsInput{
		Prompts: []string{"(cat:1.1), dog, Bird", "cat, bird"},
	})
	if err != nil {
		t.Fatalf("handleCommonTags failed: %v", err)
	}
	if diff := cmp.Diff([]string{"cat", "Bird"}, output.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
	if output.Count != 2 {
		t.Errorf("Count = %d, want 2", output.Count)
	}
}

func TestHandleDiff(t *testing.T) {
	server := setupTestServer(t)

	_, output, err := server.handleDiff(context.Background(), nil, DiffInput{
		Before: "a, (b:1.2), c",
		After:  "a, c, d",
	})
	if err != nil {
		t.Fatalf("handleDiff failed: %v", err)
	}
	want := DiffOutput{Removed: []string{"(b:1.2)"}, Added: []string{"d"}}
	if diff := cmp.Diff(want, output); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleParseInfotext(t *testing.T) {
	server := setupTestServer(t)

	_, output, err := server.handleParseInfotext(context.Background(), nil, ParseInfotextInput{
		Text: "1girl, smile\nNegative prompt: lowres\nSteps: 20, Sampler: Euler a, Size: 512x768",
	})
	if err != nil {
		t.Fatalf("handleParseInfotext failed: %v", err)
	}
	if output.Positive != "1girl, smile" || output.Negative != "lowres" {
		t.Errorf("prompts = %q / %q", output.Positive, output.Negative)
	}
	if !output.IsSD {
		t.Error("IsSD = false, want true")
	}
	if output.Settings["Size-1"] != "512" || output.Settings["Sampler"] != "Euler a" {
		t.Errorf("Settings = %v", output.Settings)
	}

	if _, _, err := server.handleParseInfotext(context.Background(), nil, ParseInfotextInput{Text: "  "}); err == nil {
		t.Error("blank text should fail")
	}
}
