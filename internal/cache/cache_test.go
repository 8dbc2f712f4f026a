package cache

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetCounterNeverDecreases(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetCounter(1, "xp", 50); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}
	if err := store.SetCounter(1, "xp", 30); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}

	value, err := store.GetCounter(1, "xp")
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if value != 50 {
		t.Errorf("expected counter to stay at 50, got %d", value)
	}

	if err := store.SetCounter(1, "xp", 80); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}
	value, _ = store.GetCounter(1, "xp")
	if value != 80 {
		t.Errorf("expected counter raised to 80, got %d", value)
	}
}

func TestGetCounterMissing(t *testing.T) {
	store := openTestStore(t)

	value, err := store.GetCounter(99, "tokens")
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if value != 0 {
		t.Errorf("expected 0 for missing counter, got %d", value)
	}
}

func TestDirtyTracking(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetCounter(1, "tokens", 10); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}
	if err := store.MergeCounter(2, "tokens", 5); err != nil {
		t.Fatalf("MergeCounter failed: %v", err)
	}

	dirty, err := store.DirtyCounters()
	if err != nil {
		t.Fatalf("DirtyCounters failed: %v", err)
	}
	if len(dirty) != 1 {
		t.Fatalf("expected 1 dirty counter, got %d", len(dirty))
	}
	if dirty[0].UserID != 1 || dirty[0].Name != "tokens" || dirty[0].Value != 10 {
		t.Errorf("unexpected dirty counter: %+v", dirty[0])
	}

	if err := store.MarkClean(1, "tokens", 10); err != nil {
		t.Fatalf("MarkClean failed: %v", err)
	}
	dirty, _ = store.DirtyCounters()
	if len(dirty) != 0 {
		t.Errorf("expected no dirty counters after MarkClean, got %d", len(dirty))
	}
}

func TestMarkCleanPreservesNewerWrite(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetCounter(1, "xp", 10); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}
	// A second write lands while the push of value 10 is in flight
	if err := store.SetCounter(1, "xp", 20); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}

	if err := store.MarkClean(1, "xp", 10); err != nil {
		t.Fatalf("MarkClean failed: %v", err)
	}

	dirty, err := store.DirtyCounters()
	if err != nil {
		t.Fatalf("DirtyCounters failed: %v", err)
	}
	if len(dirty) != 1 || dirty[0].Value != 20 {
		t.Fatalf("expected the newer write to stay dirty, got %+v", dirty)
	}
}

func TestMergeCounterRaisesOnly(t *testing.T) {
	store := openTestStore(t)

	if err := store.SetCounter(1, "best_streak", 7); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}
	if err := store.MergeCounter(1, "best_streak", 3); err != nil {
		t.Fatalf("MergeCounter failed: %v", err)
	}

	value, err := store.GetCounter(1, "best_streak")
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if value != 7 {
		t.Errorf("expected merge to keep 7, got %d", value)
	}
}

func TestUsersListsCachedUsers(t *testing.T) {
	store := openTestStore(t)

	users, err := store.Users()
	if err != nil {
		t.Fatalf("Users failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected no users in empty cache, got %v", users)
	}

	if err := store.SetCounter(3, "xp", 10); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}
	if err := store.SetCounter(1, "xp", 20); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}
	if err := store.SetCounter(1, "best_streak", 4); err != nil {
		t.Fatalf("SetCounter failed: %v", err)
	}

	users, err = store.Users()
	if err != nil {
		t.Fatalf("Users failed: %v", err)
	}
	if len(users) != 2 || users[0] != 1 || users[1] != 3 {
		t.Errorf("expected users [1 3], got %v", users)
	}
}
