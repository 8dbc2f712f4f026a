package repository

import (
	"database/sql"
	"fmt"

	"questacademy/internal/database"
	"questacademy/internal/models"
)

// WalletRepository handles the monotonic wallet counters (tokens, xp,
// best streak). Counters only rise; the one sanctioned decrement is an
// explicit token spend, which is guarded against overdraft.
type WalletRepository struct {
	db *database.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// RaiseCounter sets a counter to the given value if it is higher than the
// stored value, creating the row if needed. Lower values are ignored.
func (r *WalletRepository) RaiseCounter(userID int64, name string, value int64) error {
	query := r.db.Dialect.RaiseCounter()
	_, err := r.db.Exec(query, userID, name, value)
	if err != nil {
		return fmt.Errorf("failed to raise counter %s: %w", name, err)
	}
	return nil
}

// AddToCounter increments a counter by delta as a single statement,
// creating the row if needed. Concurrent earns for the same user both land.
func (r *WalletRepository) AddToCounter(userID int64, name string, delta int64) error {
	query := r.db.Dialect.AddCounterDelta()
	_, err := r.db.Exec(query, userID, name, delta)
	if err != nil {
		return fmt.Errorf("failed to add to counter %s: %w", name, err)
	}
	return nil
}

// GetCounter returns the stored value of a counter, zero if absent
func (r *WalletRepository) GetCounter(userID int64, name string) (int64, error) {
	query := "SELECT value FROM wallet_counters WHERE user_id = ? AND name = ?"

	var value int64
	err := r.db.QueryRow(query, userID, name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// GetWallet returns a snapshot of all counters for a user
func (r *WalletRepository) GetWallet(userID int64) (*models.Wallet, error) {
	query := "SELECT name, value FROM wallet_counters WHERE user_id = ?"

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallet := &models.Wallet{UserID: userID}
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		switch name {
		case models.CounterTokens:
			wallet.Tokens = value
		case models.CounterXP:
			wallet.XP = value
		case models.CounterBestStreak:
			wallet.BestStreak = value
		}
	}

	return wallet, rows.Err()
}

// SpendTokens atomically deducts amount from the token counter. It reports
// false when the balance is insufficient; the balance is never driven
// negative.
func (r *WalletRepository) SpendTokens(userID int64, amount int64) (bool, error) {
	query := `
		UPDATE wallet_counters
		SET value = value - ?
		WHERE user_id = ? AND name = ? AND value >= ?
	`

	result, err := r.db.Exec(query, amount, userID, models.CounterTokens, amount)
	if err != nil {
		return false, fmt.Errorf("failed to spend tokens: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
