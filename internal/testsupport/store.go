package testsupport

import (
	"testing"

	"recall/internal/config"
	"recall/internal/memory"
)

// MustOpenStore opens a memory.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts memory.Options) *memory.Store {
	t.Helper()

	store, err := memory.Open(cfg, opts)
	if err != nil {
		t.Fatalf("memory.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
