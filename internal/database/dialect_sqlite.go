package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DSN(config DialectConfig) string {
	return config.Path
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return err
	}

	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) UpsertProgress() string {
	return `
		INSERT INTO progress (user_id, lesson_id, subject_id, year_level, completed, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			subject_id = excluded.subject_id,
			year_level = excluded.year_level,
			completed = excluded.completed,
			completed_at = excluded.completed_at
	`
}

func (d *SQLiteDialect) RaiseCounter() string {
	return `
		INSERT INTO wallet_counters (user_id, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET
			value = MAX(wallet_counters.value, excluded.value),
			updated_at = CURRENT_TIMESTAMP
	`
}

func (d *SQLiteDialect) AddCounterDelta() string {
	return `
		INSERT INTO wallet_counters (user_id, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET
			value = wallet_counters.value + excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`
}

func (d *SQLiteDialect) InsertIgnoreUnlock() string {
	return `
		INSERT OR IGNORE INTO user_achievements (user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?)
	`
}

func (d *SQLiteDialect) BoolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
