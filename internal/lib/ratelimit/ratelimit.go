// Package ratelimit guards operations with fixed-window call counters
// keyed by operation and caller identity.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var ErrLimited = errors.New("rate limit exceeded")

// Rule allows Max calls of Operation per Window.
type Rule struct {
	Operation string
	Max       int
	Window    time.Duration
}

// LimitError is returned when a rule rejects a call.
type LimitError struct {
	Operation  string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: rate limit exceeded, retry after %s", e.Operation, e.RetryAfter)
}

func (e *LimitError) Unwrap() error {
	return ErrLimited
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (e *LimitError) RetryAfterSeconds() int {
	return max(1, int(math.Ceil(e.RetryAfter.Seconds())))
}

// Key builds the counter key for an identity under a rule.
func Key(rule Rule, identity string) string {
	return "ratelimit:" + rule.Operation + ":" + identity
}

type window struct {
	count   int
	resetAt time.Time
}

// Memory keeps counters in process memory.
// Counters are not shared between instances.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	calls   int
}

const sweepEvery = 1024

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		windows: make(map[string]*window),
		now:     now,
	}
}

// Allow counts a call and returns *LimitError once the rule is exhausted.
func (m *Memory) Allow(_ context.Context, rule Rule, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	key := Key(rule, identity)
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rule.Window)}
		m.windows[key] = w
	}

	if w.count >= rule.Max {
		return &LimitError{Operation: rule.Operation, RetryAfter: w.resetAt.Sub(now)}
	}
	w.count++
	return nil
}

func (m *Memory) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
