package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"questacademy/internal/cache"
	"questacademy/internal/models"
	"questacademy/internal/repository"
)

// SyncState describes where a user's counters stand relative to the remote
// store.
type SyncState int

const (
	// StateUnsynced means local writes exist that have not been pushed
	StateUnsynced SyncState = iota
	// StateSyncing means a push or pull is in flight
	StateSyncing
	// StateSynced means local and remote agree
	StateSynced
	// StateConflictResolved means both sides had diverged and the merged
	// value has been written back
	StateConflictResolved
)

func (s SyncState) String() string {
	switch s {
	case StateUnsynced:
		return "unsynced"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateConflictResolved:
		return "conflict_resolved"
	}
	return "unknown"
}

// ErrRemoteUnavailable is returned when the remote store cannot be reached
// after all retries
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// Resolution is the outcome of reconciling one counter
type Resolution struct {
	Name        string
	Local       int64
	Remote      int64
	Resolved    int64
	WriteLocal  bool
	WriteRemote bool
}

// Reconcile merges a local and remote counter value. Counters only ever
// increase, so the larger value is always the newer truth and the smaller
// side gets scheduled for a write. Equal values need no writes.
func Reconcile(name string, local, remote int64) Resolution {
	r := Resolution{Name: name, Local: local, Remote: remote}
	switch {
	case local > remote:
		r.Resolved = local
		r.WriteRemote = true
	case remote > local:
		r.Resolved = remote
		r.WriteLocal = true
	default:
		r.Resolved = local
	}
	return r
}

// SyncService pushes locally cached counter writes to the remote wallet
// store and pulls remote values back down, reconciling differences with a
// max-wins merge. When the remote is unreachable it degrades to local-only
// operation and retries later.
type SyncService struct {
	local      *cache.Store
	walletRepo *repository.WalletRepository
	retryMax   int
	retryBase  time.Duration

	mu     sync.Mutex
	states map[int64]SyncState
}

// NewSyncService creates a sync service. retryMax caps attempts per
// operation; retryBase is the initial backoff delay, doubled each retry.
func NewSyncService(local *cache.Store, walletRepo *repository.WalletRepository, retryMax int, retryBase time.Duration) *SyncService {
	if retryMax < 1 {
		retryMax = 1
	}
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	return &SyncService{
		local:      local,
		walletRepo: walletRepo,
		retryMax:   retryMax,
		retryBase:  retryBase,
		states:     make(map[int64]SyncState),
	}
}

// State reports the last known sync state for a user
func (s *SyncService) State(userID int64) SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[userID]; ok {
		return state
	}
	return StateUnsynced
}

func (s *SyncService) setState(userID int64, state SyncState) {
	s.mu.Lock()
	s.states[userID] = state
	s.mu.Unlock()
}

// RecordLocal writes a counter to the local cache and marks the user
// unsynced. Safe to call while the remote is down.
func (s *SyncService) RecordLocal(userID int64, name string, value int64) error {
	if err := s.local.SetCounter(userID, name, value); err != nil {
		return fmt.Errorf("failed to cache counter: %w", err)
	}
	s.setState(userID, StateUnsynced)
	return nil
}

// SyncUser reconciles all of a user's counters with the remote store and
// returns the per-counter resolutions. On remote failure the local cache is
// left intact and the user stays unsynced.
func (s *SyncService) SyncUser(ctx context.Context, userID int64) ([]Resolution, error) {
	s.setState(userID, StateSyncing)

	var resolutions []Resolution
	conflict := false

	for _, name := range models.SyncedCounterNames() {
		local, err := s.local.GetCounter(userID, name)
		if err != nil {
			s.setState(userID, StateUnsynced)
			return nil, fmt.Errorf("failed to read cached counter: %w", err)
		}

		var remote int64
		err = s.withRetry(ctx, func() error {
			var readErr error
			remote, readErr = s.walletRepo.GetCounter(userID, name)
			return readErr
		})
		if err != nil {
			s.setState(userID, StateUnsynced)
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}

		res := Reconcile(name, local, remote)
		if res.WriteRemote {
			err = s.withRetry(ctx, func() error {
				return s.walletRepo.RaiseCounter(userID, name, res.Resolved)
			})
			if err != nil {
				s.setState(userID, StateUnsynced)
				return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
			}
			conflict = true
		}
		if res.WriteLocal {
			if err := s.local.MergeCounter(userID, name, res.Resolved); err != nil {
				s.setState(userID, StateUnsynced)
				return nil, fmt.Errorf("failed to merge counter: %w", err)
			}
			conflict = true
		}
		if err := s.local.MarkClean(userID, name, res.Resolved); err != nil {
			s.setState(userID, StateUnsynced)
			return nil, fmt.Errorf("failed to mark counter clean: %w", err)
		}
		resolutions = append(resolutions, res)
	}

	if conflict {
		s.setState(userID, StateConflictResolved)
	} else {
		s.setState(userID, StateSynced)
	}
	return resolutions, nil
}

// SweepDirty pushes every dirty cached counter to the remote store. Users
// whose push fails stay dirty for the next sweep. Returns the number of
// counters pushed.
func (s *SyncService) SweepDirty(ctx context.Context) (int, error) {
	dirty, err := s.local.DirtyCounters()
	if err != nil {
		return 0, fmt.Errorf("failed to list dirty counters: %w", err)
	}

	pushed := 0
	var lastErr error
	for _, d := range dirty {
		err := s.withRetry(ctx, func() error {
			return s.walletRepo.RaiseCounter(d.UserID, d.Name, d.Value)
		})
		if err != nil {
			log.Printf("Sync push failed: user=%d counter=%s: %v", d.UserID, d.Name, err)
			s.setState(d.UserID, StateUnsynced)
			lastErr = err
			continue
		}
		if err := s.local.MarkClean(d.UserID, d.Name, d.Value); err != nil {
			return pushed, fmt.Errorf("failed to mark counter clean: %w", err)
		}
		pushed++
	}

	if lastErr != nil {
		return pushed, fmt.Errorf("%w: %v", ErrRemoteUnavailable, lastErr)
	}
	return pushed, nil
}

// withRetry runs op with bounded exponential backoff. The context cancels
// the wait between attempts.
func (s *SyncService) withRetry(ctx context.Context, op func() error) error {
	var err error
	delay := s.retryBase
	for attempt := 0; attempt < s.retryMax; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == s.retryMax-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}
