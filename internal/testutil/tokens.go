// Package testutil provides deterministic substitutes for identifier
// sources, so tests can assert exact persisted contents.
package testutil

import "sync"

// FixedSource returns predetermined tokens in order.
//
// This enables deterministic dumps and golden comparisons: tests provide a
// known sequence of ids and assert exact table contents, where the
// production source would mint a fresh UUIDv7 every time.
//
// Thread-safety: FixedSource is safe for concurrent use via internal mutex.
type FixedSource struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedSource creates a source that returns tokens in order.
func NewFixedSource(tokens ...string) *FixedSource {
	return &FixedSource{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed; running out mid-test is a test
// bug, not a condition to recover from.
func (f *FixedSource) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.tokens) {
		panic("testutil: fixed token source exhausted")
	}
	token := f.tokens[f.idx]
	f.idx++
	return token
}

// Remaining returns how many tokens have not been handed out yet.
//
// Tests use this to assert that a run consumed exactly the ids it was
// given.
func (f *FixedSource) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens) - f.idx
}
