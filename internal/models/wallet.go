package models

import "time"

// Wallet counter names. All counters are monotonic: they only ever rise,
// with the single exception of an explicit token spend.
const (
	CounterTokens     = "tokens"
	CounterXP         = "xp"
	CounterBestStreak = "best_streak"
)

// CounterNames lists every tracked wallet counter, in sync sweep order.
func CounterNames() []string {
	return []string{CounterTokens, CounterXP, CounterBestStreak}
}

// SyncedCounterNames lists the counters the sync layer reconciles with a
// max-wins merge. Tokens are excluded: a spend lowers the balance, so the
// larger value is not necessarily the newer one and the remote store stays
// authoritative for it.
func SyncedCounterNames() []string {
	return []string{CounterXP, CounterBestStreak}
}

// Counter is one monotonic counter value for a user
type Counter struct {
	UserID    int64
	Name      string
	Value     int64
	UpdatedAt time.Time
}

// Wallet is a snapshot of all counters for a user
type Wallet struct {
	UserID     int64
	Tokens     int64
	XP         int64
	BestStreak int64
}
