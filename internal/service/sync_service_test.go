package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"questacademy/internal/cache"
	"questacademy/internal/models"
)

func newSyncEnv(t *testing.T) (*testEnv, *cache.Store, *SyncService) {
	t.Helper()
	env := newTestEnv(t)

	local, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	sync := NewSyncService(local, env.wallets, 2, time.Millisecond)
	return env, local, sync
}

func TestReconcileMaxWins(t *testing.T) {
	tests := []struct {
		name        string
		local       int64
		remote      int64
		resolved    int64
		writeLocal  bool
		writeRemote bool
	}{
		{"local ahead", 10, 4, 10, false, true},
		{"remote ahead", 3, 9, 9, true, false},
		{"equal", 5, 5, 5, false, false},
		{"both zero", 0, 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reconcile("xp", tt.local, tt.remote)
			if r.Resolved != tt.resolved {
				t.Errorf("Resolved = %d, want %d", r.Resolved, tt.resolved)
			}
			if r.WriteLocal != tt.writeLocal {
				t.Errorf("WriteLocal = %v, want %v", r.WriteLocal, tt.writeLocal)
			}
			if r.WriteRemote != tt.writeRemote {
				t.Errorf("WriteRemote = %v, want %v", r.WriteRemote, tt.writeRemote)
			}
		})
	}
}

func TestReconcileIsCommutativeOnResolved(t *testing.T) {
	pairs := [][2]int64{{0, 0}, {1, 0}, {0, 1}, {7, 7}, {100, 42}}
	for _, p := range pairs {
		a := Reconcile("xp", p[0], p[1])
		b := Reconcile("xp", p[1], p[0])
		if a.Resolved != b.Resolved {
			t.Errorf("Reconcile(%d,%d) and Reconcile(%d,%d) disagree: %d vs %d",
				p[0], p[1], p[1], p[0], a.Resolved, b.Resolved)
		}
	}
}

func TestSyncUserPushesLocalWrites(t *testing.T) {
	env, _, sync := newSyncEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if err := sync.RecordLocal(userID, models.CounterXP, 120); err != nil {
		t.Fatalf("RecordLocal failed: %v", err)
	}
	if sync.State(userID) != StateUnsynced {
		t.Errorf("expected unsynced after local write, got %v", sync.State(userID))
	}

	resolutions, err := sync.SyncUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}

	remote, err := env.wallets.GetCounter(userID, models.CounterXP)
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if remote != 120 {
		t.Errorf("expected remote xp 120, got %d", remote)
	}
	if sync.State(userID) != StateConflictResolved {
		t.Errorf("expected conflict_resolved after divergent sync, got %v", sync.State(userID))
	}

	var xpRes *Resolution
	for i := range resolutions {
		if resolutions[i].Name == models.CounterXP {
			xpRes = &resolutions[i]
		}
	}
	if xpRes == nil || !xpRes.WriteRemote {
		t.Errorf("expected xp resolution scheduling a remote write, got %+v", resolutions)
	}
}

func TestSyncUserPullsRemoteValues(t *testing.T) {
	env, local, sync := newSyncEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if err := env.wallets.RaiseCounter(userID, models.CounterBestStreak, 9); err != nil {
		t.Fatalf("RaiseCounter failed: %v", err)
	}

	if _, err := sync.SyncUser(context.Background(), userID); err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}

	cached, err := local.GetCounter(userID, models.CounterBestStreak)
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if cached != 9 {
		t.Errorf("expected cached best streak 9, got %d", cached)
	}
}

func TestSyncUserAgreementIsSynced(t *testing.T) {
	env, _, sync := newSyncEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if _, err := sync.SyncUser(context.Background(), userID); err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}
	if sync.State(userID) != StateSynced {
		t.Errorf("expected synced when both sides agree, got %v", sync.State(userID))
	}

	// Syncing again with no changes stays synced, not conflict_resolved
	if _, err := sync.SyncUser(context.Background(), userID); err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}
	if sync.State(userID) != StateSynced {
		t.Errorf("expected synced on repeat, got %v", sync.State(userID))
	}
}

func TestSyncUserIsIdempotent(t *testing.T) {
	env, _, sync := newSyncEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if err := sync.RecordLocal(userID, models.CounterXP, 50); err != nil {
		t.Fatalf("RecordLocal failed: %v", err)
	}
	if _, err := sync.SyncUser(context.Background(), userID); err != nil {
		t.Fatalf("SyncUser failed: %v", err)
	}
	if _, err := sync.SyncUser(context.Background(), userID); err != nil {
		t.Fatalf("repeat SyncUser failed: %v", err)
	}

	remote, _ := env.wallets.GetCounter(userID, models.CounterXP)
	if remote != 50 {
		t.Errorf("repeat sync must not change remote: got %d", remote)
	}
}

func TestSweepDirty(t *testing.T) {
	env, local, sync := newSyncEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	alice := env.createUser(t, "alice@example.com", "student")
	bob := env.createUser(t, "bob@example.com", "student")

	if err := sync.RecordLocal(alice, models.CounterXP, 30); err != nil {
		t.Fatalf("RecordLocal failed: %v", err)
	}
	if err := sync.RecordLocal(bob, models.CounterBestStreak, 4); err != nil {
		t.Fatalf("RecordLocal failed: %v", err)
	}

	pushed, err := sync.SweepDirty(context.Background())
	if err != nil {
		t.Fatalf("SweepDirty failed: %v", err)
	}
	if pushed != 2 {
		t.Errorf("expected 2 counters pushed, got %d", pushed)
	}

	remote, _ := env.wallets.GetCounter(alice, models.CounterXP)
	if remote != 30 {
		t.Errorf("expected alice xp 30 remotely, got %d", remote)
	}
	remote, _ = env.wallets.GetCounter(bob, models.CounterBestStreak)
	if remote != 4 {
		t.Errorf("expected bob streak 4 remotely, got %d", remote)
	}

	dirty, err := local.DirtyCounters()
	if err != nil {
		t.Fatalf("DirtyCounters failed: %v", err)
	}
	if len(dirty) != 0 {
		t.Errorf("expected no dirty counters after sweep, got %d", len(dirty))
	}

	// Nothing left to push
	pushed, err = sync.SweepDirty(context.Background())
	if err != nil {
		t.Fatalf("second SweepDirty failed: %v", err)
	}
	if pushed != 0 {
		t.Errorf("expected 0 pushed on clean sweep, got %d", pushed)
	}
}

func TestSyncDegradesToLocalOnly(t *testing.T) {
	env, local, sync := newSyncEnv(t)
	env.createUser(t, "admin@example.com", "admin")
	userID := env.createUser(t, "student@example.com", "student")

	if err := sync.RecordLocal(userID, models.CounterXP, 25); err != nil {
		t.Fatalf("RecordLocal failed: %v", err)
	}

	// Simulate the remote store going away
	env.db.Close()

	if _, err := sync.SyncUser(context.Background(), userID); err == nil {
		t.Fatal("expected SyncUser to fail with remote down")
	}
	if sync.State(userID) != StateUnsynced {
		t.Errorf("expected unsynced after failure, got %v", sync.State(userID))
	}

	// Local reads and writes keep working
	if err := sync.RecordLocal(userID, models.CounterXP, 40); err != nil {
		t.Fatalf("local write should survive remote outage: %v", err)
	}
	cached, err := local.GetCounter(userID, models.CounterXP)
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if cached != 40 {
		t.Errorf("expected cached xp 40, got %d", cached)
	}

	dirty, _ := local.DirtyCounters()
	if len(dirty) != 1 {
		t.Errorf("expected the write to stay dirty for a later sweep, got %d", len(dirty))
	}
}
