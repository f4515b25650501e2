package testutil

import (
	"fmt"
	"sync"
)

// SequentialGenerator generates predictable step IDs: "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic test execution and golden trace comparison for
// walkthroughs whose steps omit an explicit id.
//
// Thread-safety: SequentialGenerator is safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialGenerator creates a generator using prefix.
//
// If prefix is empty, "step" is used.
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = "step"
	}
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next ID in the sequence.
//
// Implements walkthrough.IDGenerator.
func (g *SequentialGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
