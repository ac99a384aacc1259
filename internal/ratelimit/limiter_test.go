package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(rate float64, burst int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return newLimiterAt(rate, burst, clock.Now), clock
}

func TestAllow_Burst(t *testing.T) {
	l, _ := newTestLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
	if l.Allow() {
		t.Error("request 4 should be denied (burst exhausted)")
	}
}

func TestAllow_Refill(t *testing.T) {
	l, clock := newTestLimiter(2.0, 2)
	l.Allow()
	l.Allow()

	clock.Advance(500 * time.Millisecond)
	if !l.Allow() {
		t.Error("one token should have refilled after 500ms at 2/s")
	}
	if l.Allow() {
		t.Error("only one token should have refilled")
	}
}

func TestAllow_RefillCapsAtBurst(t *testing.T) {
	l, clock := newTestLimiter(10.0, 2)
	l.Allow()

	clock.Advance(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed = %d after long idle, want burst 2", allowed)
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(0, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}

func TestToolLimiters_Check(t *testing.T) {
	tl := ToolLimiters{"limited": newLimiterAt(0, 1, time.Now)}

	if err := tl.Check("limited"); err != nil {
		t.Errorf("first Check() error = %v", err)
	}
	if err := tl.Check("limited"); err == nil {
		t.Error("second Check() should be rate limited")
	}
	for i := 0; i < 10; i++ {
		if err := tl.Check("prompt_tokenize"); err != nil {
			t.Fatalf("unlimited tool got error = %v", err)
		}
	}
}

func TestNewToolLimiters(t *testing.T) {
	tl := NewToolLimiters()
	if _, ok := tl["prompt_apply_edits"]; !ok {
		t.Error("prompt_apply_edits should be limited")
	}
	if _, ok := tl["prompt_tokenize"]; ok {
		t.Error("prompt_tokenize should not be limited")
	}
}
