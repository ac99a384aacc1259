package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/promptedit/internal/batch"
	"github.com/nvandessel/promptedit/internal/infotext"
	"github.com/nvandessel/promptedit/internal/prompt"
	"github.com/nvandessel/promptedit/internal/store"
	"gopkg.in/yaml.v3"
)

// PresetsURI is the resource listing configured presets.
const PresetsURI = "promptedit://presets"

// registerTools registers all promptedit MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "prompt_tokenize",
		Description: "Split a Stable Diffusion prompt into tags. Commas and newlines inside (), [] or <> do not split.",
	}, s.handleTokenize)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "prompt_extract_core",
		Description: "Reduce tags to their core by removing weights and emphasis brackets. <...> tags are kept as-is.",
	}, s.handleExtractCore)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "prompt_apply_edits",
		Description: "Remove tags from a prompt by core (case-insensitive) and append new text. Each call is recorded in the edit history.",
	}, s.handleApplyEdits)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "prompt_common_tags",
		Description: "Find the tag cores shared by every given prompt",
	}, s.handleCommonTags)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "prompt_diff",
		Description: "List the tags removed and added between two versions of a prompt",
	}, s.handleDiff)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "prompt_parse_infotext",
		Description: "Split Stable Diffusion generation parameters into positive prompt, negative prompt and settings",
	}, s.handleParseInfotext)
}

// registerResources registers MCP resources.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         PresetsURI,
		Name:        "promptedit-presets",
		Description: "Named edit presets usable with the preset argument of prompt_apply_edits.",
		MIMEType:    "application/yaml",
	}, s.handlePresetsResource)
}

func (s *Server) handlePresetsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	presets := s.cfg.Presets
	if presets == nil {
		presets = map[string]prompt.EditSet{}
	}
	data, err := yaml.Marshal(presets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode presets: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      PresetsURI,
				MIMEType: "application/yaml",
				Text:     string(data),
			},
		},
	}, nil
}

func (s *Server) handleTokenize(ctx context.Context, req *sdk.CallToolRequest, args TokenizeInput) (_ *sdk.CallToolResult, _ TokenizeOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.traceTool("prompt_tokenize", start, retErr, map[string]string{"prompt": args.Prompt}, nil)
	}()

	tags := prompt.Tokenize(args.Prompt)
	return nil, TokenizeOutput{Tags: tags, Count: len(tags)}, nil
}

func (s *Server) handleExtractCore(ctx context.Context, req *sdk.CallToolRequest, args ExtractCoreInput) (_ *sdk.CallToolResult, _ ExtractCoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.traceTool("prompt_extract_core", start, retErr, nil, map[string]any{"tags": len(args.Tags)})
	}()

	cores := make([]CoreResult, 0, len(args.Tags))
	for _, tag := range args.Tags {
		cores = append(cores, CoreResult{
			Tag:  tag,
			Core: prompt.ExtractCore(tag),
			Key:  prompt.Key(tag),
		})
	}
	return nil, ExtractCoreOutput{Cores: cores}, nil
}

func (s *Server) handleApplyEdits(ctx context.Context, req *sdk.CallToolRequest, args ApplyEditsInput) (_ *sdk.CallToolResult, _ ApplyEditsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.traceTool("prompt_apply_edits", start, retErr, map[string]string{"prompt": args.Prompt}, map[string]any{
			"remove": args.Remove,
			"add":    args.Add,
			"preset": args.Preset,
			"side":   args.Side,
		})
	}()

	if err := s.toolLimiters.Check("prompt_apply_edits"); err != nil {
		return nil, ApplyEditsOutput{}, err
	}

	side, err := store.ParseSide(args.Side)
	if err != nil {
		return nil, ApplyEditsOutput{}, err
	}
	if side == "" {
		side = store.SidePrompt
	}

	edit, err := s.resolveEdit(args.Preset, side, prompt.Edit{Remove: args.Remove, Add: args.Add})
	if err != nil {
		return nil, ApplyEditsOutput{}, err
	}
	if edit.Empty() {
		return nil, ApplyEditsOutput{}, batch.ErrNoEdits
	}

	result := edit.Apply(args.Prompt)
	out := ApplyEditsOutput{
		Result: result,
		Diff:   prompt.Diff(args.Prompt, result),
	}

	source := args.Source
	if source == "" {
		source = "mcp"
	}
	id, err := s.history.Record(ctx, store.HistoryEntry{
		Source:   source,
		Side:     side,
		Original: args.Prompt,
		Edited:   result,
		Remove:   edit.Remove,
		Add:      edit.Add,
	})
	if err != nil {
		return nil, ApplyEditsOutput{}, fmt.Errorf("failed to record edit: %w", err)
	}
	out.HistoryID = id

	return nil, out, nil
}

// resolveEdit merges the named preset's edit for side with extra. The
// preset's removals and additions come first.
func (s *Server) resolveEdit(preset string, side store.Side, extra prompt.Edit) (prompt.Edit, error) {
	if preset == "" {
		return extra, nil
	}
	set, err := s.cfg.Preset(preset)
	if err != nil {
		return prompt.Edit{}, err
	}
	base := set.Positive
	if side == store.SideNegative {
		base = set.Negative
	}
	return base.Merge(extra), nil
}

func (s *Server) handleCommonTags(ctx context.Context, req *sdk.CallToolRequest, args CommonTagsInput) (_ *sdk.CallToolResult, _ CommonTagsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.traceTool("prompt_common_tags", start, retErr, nil, map[string]any{"prompts": len(args.Prompts)})
	}()

	tags := prompt.FindCommonTags(args.Prompts)
	return nil, CommonTagsOutput{Tags: tags, Count: len(tags)}, nil
}

func (s *Server) handleDiff(ctx context.Context, req *sdk.CallToolRequest, args DiffInput) (_ *sdk.CallToolResult, _ DiffOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.traceTool("prompt_diff", start, retErr, map[string]string{
			"before": args.Before,
			"after":  args.After,
		}, nil)
	}()

	d := prompt.Diff(args.Before, args.After)
	return nil, DiffOutput{Removed: d.Removed, Added: d.Added}, nil
}

func (s *Server) handleParseInfotext(ctx context.Context, req *sdk.CallToolRequest, args ParseInfotextInput) (_ *sdk.CallToolResult, _ ParseInfotextOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.traceTool("prompt_parse_infotext", start, retErr, map[string]string{"text": args.Text}, nil)
	}()

	if strings.TrimSpace(args.Text) == "" {
		return nil, ParseInfotextOutput{}, fmt.Errorf("text is required")
	}
	p := infotext.Parse(args.Text)
	return nil, ParseInfotextOutput{
		Positive: p.Positive,
		Negative: p.Negative,
		Settings: p.Settings,
		IsSD:     infotext.IsSDMetadata(args.Text),
	}, nil
}
