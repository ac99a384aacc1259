// Package logging sets up the stderr logger and the JSONL edit trace kept
// in .promptedit/edits.jsonl.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug. At this level edited prompts are logged in
// full.
const LevelTrace = slog.LevelDebug - 4

// TraceFile is the name of the JSONL edit trace inside the data directory.
const TraceFile = "edits.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Components fall back to
// it when no logger was configured.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EditTrace appends edit and tool-call events to a JSONL file. Events carry
// tag lists and sizes; full prompt text is only written at trace level.
// A nil *EditTrace drops everything, so callers never need to check.
type EditTrace struct {
	mu    sync.Mutex
	file  *os.File
	level slog.Level
	now   func() time.Time
}

// NewEditTrace opens dir/edits.jsonl for append when level is debug or
// trace. At info level, or when the file cannot be opened, it returns nil.
func NewEditTrace(dir string, level string) *EditTrace {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, TraceFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &EditTrace{file: f, level: lvl, now: time.Now}
}

// Edit is one prompt side rewritten by an edit.
type Edit struct {
	Source   string
	Side     string
	Removed  []string
	Added    []string
	Original string
	Edited   string
}

type editEvent struct {
	Time        string   `json:"time"`
	Event       string   `json:"event"`
	Source      string   `json:"source"`
	Side        string   `json:"side"`
	Removed     []string `json:"removed"`
	Added       []string `json:"added"`
	Original    string   `json:"original,omitempty"`
	Edited      string   `json:"edited,omitempty"`
	OriginalLen int      `json:"original_len"`
	EditedLen   int      `json:"edited_len"`
}

// LogEdit records an edit. Removed and Added are never null in the output.
func (et *EditTrace) LogEdit(e Edit) {
	if et == nil {
		return
	}
	ev := editEvent{
		Time:        et.timestamp(),
		Event:       "edit",
		Source:      e.Source,
		Side:        e.Side,
		Removed:     nonNil(e.Removed),
		Added:       nonNil(e.Added),
		OriginalLen: len(e.Original),
		EditedLen:   len(e.Edited),
	}
	if et.verbose() {
		ev.Original, ev.Edited = e.Original, e.Edited
	}
	et.write(ev)
}

// ToolCall is one MCP tool invocation.
type ToolCall struct {
	Tool     string
	Duration time.Duration
	Err      error
	// Text holds prompt-like arguments. Below trace level only their
	// lengths are written.
	Text map[string]string
	// Params holds the remaining arguments, written as given.
	Params map[string]any
}

type toolEvent struct {
	Time       string         `json:"time"`
	Event      string         `json:"event"`
	Tool       string         `json:"tool"`
	DurationMS int64          `json:"duration_ms"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
}

// LogToolCall records a tool invocation.
func (et *EditTrace) LogToolCall(c ToolCall) {
	if et == nil {
		return
	}
	ev := toolEvent{
		Time:       et.timestamp(),
		Event:      "tool_call",
		Tool:       c.Tool,
		DurationMS: c.Duration.Milliseconds(),
		Status:     "success",
	}
	if c.Err != nil {
		ev.Status = "error"
		ev.Error = c.Err.Error()
	}
	if n := len(c.Text) + len(c.Params); n > 0 {
		ev.Params = make(map[string]any, n)
		for k, v := range c.Params {
			ev.Params[k] = v
		}
		for k, text := range c.Text {
			if et.verbose() {
				ev.Params[k] = text
			} else {
				ev.Params[k] = len(text)
			}
		}
	}
	et.write(ev)
}

func (et *EditTrace) verbose() bool {
	return et.level <= LevelTrace
}

func (et *EditTrace) timestamp() string {
	return et.now().UTC().Format(time.RFC3339Nano)
}

func (et *EditTrace) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	et.mu.Lock()
	defer et.mu.Unlock()
	if et.file == nil {
		return
	}
	_, _ = et.file.Write(append(data, '\n'))
}

// Close closes the trace file. Events logged afterwards are dropped.
func (et *EditTrace) Close() {
	if et == nil {
		return
	}

	et.mu.Lock()
	defer et.mu.Unlock()
	if et.file != nil {
		et.file.Close()
		et.file = nil
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
