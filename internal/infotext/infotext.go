// Package infotext parses and rebuilds the generation parameters text
// ("infotext") that Stable Diffusion front ends embed in their PNG output.
//
// An infotext block looks like:
//
//	masterpiece, 1girl, (red hair:1.2)
//	Negative prompt: lowres, bad hands
//	Steps: 20, Sampler: Euler a, CFG scale: 7, Seed: 1234, Size: 512x768
//
// The last line holds the settings when it carries at least three
// "key: value" pairs; otherwise it is treated as prompt text.
package infotext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nvandessel/promptedit/internal/prompt"
)

const negativePrefix = "Negative prompt:"

// minSettings is how many key/value pairs a line needs to count as the
// settings line.
const minSettings = 3

var (
	// reParam matches one "key: value" pair of the settings line. Values may
	// be double-quoted with backslash escapes.
	reParam = regexp.MustCompile(`\s*(\w[\w \-/]+):\s*("(?:\\.|[^\\"])+"|[^,]*)(?:,|$)`)

	// reImageSize matches "WIDTHxHEIGHT" values such as Size and Hires resize.
	reImageSize = regexp.MustCompile(`^(\d+)x(\d+)$`)
)

// Setting defaults applied when the settings line omits them.
var defaults = map[string]string{
	"Clip skip":     "1",
	"Schedule type": "Automatic",
}

// Params is a parsed infotext block.
type Params struct {
	Positive string            `json:"positive_prompt"`
	Negative string            `json:"negative_prompt"`
	Settings map[string]string `json:"settings"`
	Raw      string            `json:"raw,omitempty"`
}

// IsSDMetadata reports whether text looks like Stable Diffusion WebUI/Forge
// parameters rather than another tool's metadata (ComfyUI, NovelAI).
func IsSDMetadata(text string) bool {
	return strings.Contains(text, "Steps:")
}

// splitSettings separates the content lines of text from its settings line.
// The returned settings line is empty when the last line is prompt text.
func splitSettings(text string) (content []string, settings string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	last := lines[len(lines)-1]
	content = lines[:len(lines)-1]
	if len(reParam.FindAllStringSubmatch(last, -1)) < minSettings {
		return append(content, last), ""
	}
	return content, last
}

// Parse parses an infotext block. Size-like values ("512x768") are split
// into "<key>-1" and "<key>-2" entries. Parse never fails; unrecognized text
// ends up in the positive prompt.
func Parse(text string) *Params {
	content, settings := splitSettings(text)

	var positive, negative string
	inNegative := false
	for _, line := range content {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, negativePrefix) {
			inNegative = true
			line = strings.TrimSpace(line[len(negativePrefix):])
		}
		if inNegative {
			negative = appendLine(negative, line)
		} else {
			positive = appendLine(positive, line)
		}
	}

	p := &Params{
		Positive: positive,
		Negative: negative,
		Settings: make(map[string]string),
		Raw:      text,
	}
	for _, m := range reParam.FindAllStringSubmatch(settings, -1) {
		key, value := m[1], unquote(m[2])
		if size := reImageSize.FindStringSubmatch(value); size != nil {
			p.Settings[key+"-1"] = size[1]
			p.Settings[key+"-2"] = size[2]
			continue
		}
		p.Settings[key] = value
	}
	for key, value := range defaults {
		if _, ok := p.Settings[key]; !ok {
			p.Settings[key] = value
		}
	}
	return p
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return s + "\n" + line
}

func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.ReplaceAll(s, `\\`, `\`)
}

// Setting returns a raw settings value.
func (p *Params) Setting(key string) (string, bool) {
	v, ok := p.Settings[key]
	return v, ok
}

// Int returns a settings value parsed as an integer, e.g. "Steps" or "Seed".
func (p *Params) Int(key string) (int, bool) {
	v, ok := p.Settings[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float returns a settings value parsed as a float, e.g. "CFG scale".
func (p *Params) Float(key string) (float64, bool) {
	v, ok := p.Settings[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Reconstruct rebuilds an infotext block from raw with new prompts, keeping
// raw's settings line. The negative line is omitted when negative is empty.
func Reconstruct(raw, positive, negative string) string {
	_, settings := splitSettings(raw)

	parts := []string{positive}
	if negative != "" {
		parts = append(parts, negativePrefix+" "+negative)
	}
	if settings != "" {
		parts = append(parts, settings)
	}
	return strings.Join(parts, "\n")
}

// WithEdits returns a copy of p with both prompts edited and Raw rebuilt to
// match. p is not modified.
func (p *Params) WithEdits(edits prompt.EditSet) *Params {
	out := &Params{
		Positive: edits.Positive.Apply(p.Positive),
		Negative: edits.Negative.Apply(p.Negative),
		Settings: make(map[string]string, len(p.Settings)),
	}
	for k, v := range p.Settings {
		out.Settings[k] = v
	}
	out.Raw = Reconstruct(p.Raw, out.Positive, out.Negative)
	return out
}
