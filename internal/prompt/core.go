package prompt

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// reOpeners matches the run of wrapper openers at the start of a tag.
	reOpeners = regexp.MustCompile(`^[\(\[]+`)

	// reClosers matches the run of wrapper closers at the end of a tag.
	reClosers = regexp.MustCompile(`[\)\]]+$`)

	// reWeight matches a trailing attention weight such as ":1.2" or ": 0.9".
	reWeight = regexp.MustCompile(`:\s*[\d.]+$`)

	// reWrapped is a single wrapped layer, used when splitting the bracket
	// runs leaves nothing inside, as in "(())". An opener or closer is then
	// given up to the body.
	reWrapped = regexp.MustCompile(`^[\(\[]+(.+?)(?::\s*[\d.]+)?[\)\]]+$`)
)

// ExtractCore reduces a tag to its core by stripping bracket wrappers and
// weight suffixes until nothing more can be stripped. Case is preserved;
// callers that compare cores should use Key instead.
//
// Angle-bracket tags (LoRA and embedding references) are returned as-is.
//
// Examples:
//
//	"(masterpiece:1.2)"        -> "masterpiece"
//	"((masterpiece:1.2):0.9)"  -> "masterpiece"
//	"((best quality))"         -> "best quality"
//	"[lowres]"                 -> "lowres"
//	"<lora:name:0.8>"          -> "<lora:name:0.8>"
func ExtractCore(tag string) string {
	t := strings.TrimSpace(tag)
	if strings.HasPrefix(t, "<") && strings.HasSuffix(t, ">") {
		return t
	}

	for {
		next, ok := stripWrapper(t)
		if !ok || next == t {
			return t
		}
		t = next
	}
}

// Key returns the comparison key for a tag: its core, lowercased.
// Bytes that are not valid UTF-8 are kept as they are.
func Key(tag string) string {
	core := ExtractCore(tag)
	if utf8.ValidString(core) {
		return strings.ToLower(core)
	}
	// strings.ToLower would turn every invalid byte into U+FFFD, making
	// distinct Latin-1 tags compare equal.
	var b strings.Builder
	b.Grow(len(core))
	for i := 0; i < len(core); {
		r, size := utf8.DecodeRuneInString(core[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(core[i])
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		i += size
	}
	return b.String()
}

// stripWrapper removes one layer of "(" / "[" wrapping, together with a
// weight suffix placed just inside the closers. It reports false when t is
// not wrapped.
//
// When a tag opens more brackets than it closes and the weight follows
// another closer, as in "((x:1.2):0.9)", only as many openers are removed as
// closers so the inner weighted group survives for the next pass.
func stripWrapper(t string) (string, bool) {
	opened := len(reOpeners.FindString(t))
	if opened == 0 {
		return t, false
	}
	closed := len(reClosers.FindString(t[opened:]))
	if closed == 0 {
		return t, false
	}

	body := t[opened : len(t)-closed]
	nested := false
	if loc := reWeight.FindStringIndex(body); loc != nil && loc[0] > 0 {
		nested = isCloser(body[loc[0]-1])
		body = body[:loc[0]]
	}
	if nested && opened > closed {
		body = t[closed:opened] + body
	}

	if body == "" {
		m := reWrapped.FindStringSubmatch(t)
		if m == nil {
			return t, false
		}
		body = m[1]
	}
	if strings.Contains(body, "\n") {
		return t, false
	}
	return strings.TrimSpace(body), true
}

func isCloser(b byte) bool {
	return b == ')' || b == ']'
}
