package mcp

import (
	"time"

	"github.com/nvandessel/promptedit/internal/logging"
)

// traceTool logs one tool invocation. text holds prompt arguments, which the
// edit trace reduces to lengths below trace level.
func (s *Server) traceTool(tool string, start time.Time, err error, text map[string]string, params map[string]any) {
	elapsed := time.Since(start)
	s.logger.Debug("tool call", "tool", tool, "duration", elapsed, "error", err)
	s.trace.LogToolCall(logging.ToolCall{
		Tool:     tool,
		Duration: elapsed,
		Err:      err,
		Text:     text,
		Params:   params,
	})
}
