package testsupport

import (
	"context"
	"testing"

	"liepavoice/internal/config"
	"liepavoice/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartRun records a running entry for tests using the provided store.
func StartRun(t testing.TB, store *ledger.Store, id string, kind ledger.Kind) *ledger.Run {
	t.Helper()

	run, err := store.StartRun(context.Background(), id, kind, "", "")
	if err != nil {
		t.Fatalf("store.StartRun: %v", err)
	}
	return run
}
