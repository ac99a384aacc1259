package mcp

import (
	"github.com/nvandessel/promptedit/internal/prompt"
)

// TokenizeInput defines the input for the prompt_tokenize tool.
type TokenizeInput struct {
	Prompt string `json:"prompt" jsonschema:"Prompt text with comma or newline separated tags"`
}

// TokenizeOutput defines the output for the prompt_tokenize tool.
type TokenizeOutput struct {
	Tags  []string `json:"tags" jsonschema:"Raw tags in prompt order with decoration kept"`
	Count int      `json:"count" jsonschema:"Number of tags"`
}

// ExtractCoreInput defines the input for the prompt_extract_core tool.
type ExtractCoreInput struct {
	Tags []string `json:"tags" jsonschema:"Raw tags such as (red hair:1.2) or [blue eyes]"`
}

// CoreResult pairs a raw tag with its canonical forms.
type CoreResult struct {
	Tag  string `json:"tag"`
	Core string `json:"core" jsonschema:"Tag with weights and brackets removed, case kept"`
	Key  string `json:"key" jsonschema:"Lowercased core used for matching"`
}

// ExtractCoreOutput defines the output for the prompt_extract_core tool.
type ExtractCoreOutput struct {
	Cores []CoreResult `json:"cores"`
}

// ApplyEditsInput defines the input for the prompt_apply_edits tool.
type ApplyEditsInput struct {
	Prompt string `json:"prompt" jsonschema:"Prompt to edit"`
	Remove string `json:"remove,omitempty" jsonschema:"Comma separated tags to remove, matched by core and case-insensitively"`
	Add    string `json:"add,omitempty" jsonschema:"Text appended to the end of the prompt"`
	Preset string `json:"preset,omitempty" jsonschema:"Name of a configured preset applied before remove and add"`
	Side   string `json:"side,omitempty" jsonschema:"Preset side to use: positive (default) or negative"`
	Source string `json:"source,omitempty" jsonschema:"Label stored with the history entry, such as an image file name"`
}

// ApplyEditsOutput defines the output for the prompt_apply_edits tool.
type ApplyEditsOutput struct {
	Result    string         `json:"result" jsonschema:"Edited prompt"`
	Diff      prompt.TagDiff `json:"diff" jsonschema:"Tags removed from and added to the prompt"`
	HistoryID string         `json:"history_id,omitempty" jsonschema:"ID of the recorded history entry"`
}

// CommonTagsInput defines the input for the prompt_common_tags tool.
type CommonTagsInput struct {
	Prompts []string `json:"prompts" jsonschema:"Prompts to intersect"`
}

// CommonTagsOutput defines the output for the prompt_common_tags tool.
type CommonTagsOutput struct {
	Tags  []string `json:"tags" jsonschema:"Cores present in every prompt, in the order of the first prompt"`
	Count int      `json:"count"`
}

// DiffInput defines the input for the prompt_diff tool.
type DiffInput struct {
	Before string `json:"before" jsonschema:"Prompt before editing"`
	After  string `json:"after" jsonschema:"Prompt after editing"`
}

// DiffOutput defines the output for the prompt_diff tool.
type DiffOutput struct {
	Removed []string `json:"removed"`
	Added   []string `json:"added"`
}

// ParseInfotextInput defines the input for the prompt_parse_infotext tool.
type ParseInfotextInput struct {
	Text string `json:"text" jsonschema:"Generation parameters text as stored in a PNG parameters chunk"`
}

// ParseInfotextOutput defines the output for the prompt_parse_infotext tool.
type ParseInfotextOutput struct {
	Positive string            `json:"positive_prompt"`
	Negative string            `json:"negative_prompt"`
	Settings map[string]string `json:"settings"`
	IsSD     bool              `json:"is_sd" jsonschema:"Whether the text looks like Stable Diffusion WebUI parameters"`
}
