package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable snapshot ids: "<prefix>-0001",
// "<prefix>-0002", ...
//
// It satisfies store.IDGenerator, so golden output that includes snapshot
// ids is byte-identical across runs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "snap".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "snap"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
