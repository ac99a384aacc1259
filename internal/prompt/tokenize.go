// Package prompt tokenizes and edits image-generation prompts.
//
// A prompt is a comma or newline separated list of tags. Tags may carry
// bracket and weight decoration such as "(red hair:1.2)", "[blue eyes]" or
// "<lora:name:0.8>". Every function in this package is pure: inputs are never
// mutated and all results are freshly allocated, so they are safe to call
// concurrently.
package prompt

import (
	"strings"
)

// Separator joins tags back into a prompt.
const Separator = ", "

// tokenizer is the scanning state for a single Tokenize call.
// Depths never go below zero; an unmatched closer is kept as tag text.
type tokenizer struct {
	round  int // ()
	square int // []
	angle  int // <>
	cur    strings.Builder
	tags   []string
}

func (t *tokenizer) nested() bool {
	return t.round > 0 || t.square > 0 || t.angle > 0
}

func (t *tokenizer) flush() {
	tag := strings.TrimSpace(t.cur.String())
	if tag != "" {
		t.tags = append(t.tags, tag)
	}
	t.cur.Reset()
}

func (t *tokenizer) feed(b byte) {
	switch b {
	case '(':
		t.round++
	case ')':
		t.round = max(0, t.round-1)
	case '[':
		t.square++
	case ']':
		t.square = max(0, t.square-1)
	case '<':
		t.angle++
	case '>':
		t.angle = max(0, t.angle-1)
	case ',', '\n':
		if !t.nested() {
			t.flush()
			return
		}
	}
	t.cur.WriteByte(b)
}

// Tokenize splits a prompt into its raw tags.
//
// Commas and newlines only separate tags when no round, square or angle
// bracket is open, so "(tag1, tag2:1.3)" stays a single tag. Tags are
// whitespace-trimmed and empty tags are dropped. Returns an empty, non-nil
// slice for a prompt with no tags.
//
// Examples:
//
//	"masterpiece, (tag1, tag2:1.3), <lora:name:0.8>"
//	-> ["masterpiece", "(tag1, tag2:1.3)", "<lora:name:0.8>"]
func Tokenize(p string) []string {
	t := &tokenizer{tags: []string{}}
	// Every delimiter is ASCII, so scanning bytes keeps multi-byte runes and
	// invalid UTF-8 intact.
	for i := 0; i < len(p); i++ {
		t.feed(p[i])
	}
	t.flush()
	return t.tags
}

// Join rejoins tags into a prompt using Separator.
func Join(tags []string) string {
	return strings.Join(tags, Separator)
}
