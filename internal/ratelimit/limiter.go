// Package ratelimit provides token bucket rate limiting for MCP tools that
// write to the edit history.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewLimiter creates a limiter refilling rate tokens per second, holding at
// most burst tokens. It starts full.
func NewLimiter(rate float64, burst int) *Limiter {
	return newLimiterAt(rate, burst, time.Now)
}

func newLimiterAt(rate float64, burst int, now func() time.Time) *Limiter {
	return &Limiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   now(),
		now:    now,
	}
}

// Allow takes one token if available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+l.rate*elapsed)
		l.last = now
	}
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// ToolLimiters maps tool names to their limiters. Tools without an entry
// are never limited.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default limits. Only tools that record history
// are limited; the pure prompt tools run unthrottled.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"prompt_apply_edits": NewLimiter(2.0, 20), // 120/minute, burst 20
	}
}

// Check returns an error when tool has exhausted its budget.
func (tl ToolLimiters) Check(tool string) error {
	l, ok := tl[tool]
	if !ok {
		return nil
	}
	if !l.Allow() {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", tool)
	}
	return nil
}
