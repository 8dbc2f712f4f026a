package database

import (
	"context"
	"path/filepath"
	"testing"
)

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	// Skip if not in integration test mode
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "test_integration.db")

	// Test initialization
	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Test connection
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	// Run migrations from the repository root
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Test that tables were created by migrations
	tables := []string{"users", "user_roles", "progress", "exam_scores", "wallet_counters", "user_achievements", "student_connections"}

	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Migrations must be idempotent on a second run
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "test_tx.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	id, err := tx.ExecReturningID(
		"INSERT INTO users (email, password_hash, name) VALUES (?, ?, ?)",
		"tx-test@example.com", "hash", "Tx Test",
	)
	if err != nil {
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if id == 0 {
		t.Fatal("Expected non-zero insert ID")
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	// Rolled-back insert must not be visible
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", "tx-test@example.com").Scan(&count); err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users after rollback, got %d", count)
	}
}
