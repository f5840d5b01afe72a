package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/simtree/internal/registry"
	"github.com/roach88/simtree/internal/testutil"
)

// fixtureRegistry registers the shared fixture record types.
func fixtureRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, rt := range testutil.Types() {
		_, err := reg.Register(rt)
		require.NoError(t, err)
	}
	return reg
}

// createTestStore creates a store in a temp dir with deterministic ids and seqs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithRegistry(fixtureRegistry(t)),
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDs("snap")),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
