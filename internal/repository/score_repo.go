package repository

import (
	"database/sql"
	"fmt"

	"questacademy/internal/database"
	"questacademy/internal/models"
)

// ScoreRepository handles the exam score ledger. Scores are append-only:
// every attempt is its own row, deduplicated only by the client-generated
// attempt key.
type ScoreRepository struct {
	db *database.DB
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *database.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// InsertAttempt appends a score record. If a record with the same attempt
// key already exists (a double submission), the stored record is returned
// instead and inserted reports false.
func (r *ScoreRepository) InsertAttempt(record *models.ScoreRecord) (saved *models.ScoreRecord, inserted bool, err error) {
	existing, err := r.GetByAttemptKey(record.AttemptKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check attempt key: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	query := `
		INSERT INTO exam_scores (user_id, subject_id, year_level, score, total_marks, percentage, attempt_key, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	id, err := r.db.ExecReturningID(query,
		record.UserID,
		record.SubjectID,
		record.YearLevel,
		record.Score,
		record.TotalMarks,
		record.Percentage,
		record.AttemptKey,
		record.CompletedAt,
	)
	if err != nil {
		// The unique index on attempt_key is the backstop for a racing
		// duplicate; re-read before reporting failure.
		if existing, lookupErr := r.GetByAttemptKey(record.AttemptKey); lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert score: %w", err)
	}

	record.ID = id
	return record, true, nil
}

// GetByAttemptKey retrieves a score record by its idempotency key, or nil
func (r *ScoreRepository) GetByAttemptKey(attemptKey string) (*models.ScoreRecord, error) {
	query := `
		SELECT id, user_id, subject_id, year_level, score, total_marks, percentage, attempt_key, completed_at
		FROM exam_scores
		WHERE attempt_key = ?
	`

	record := &models.ScoreRecord{}
	err := r.db.QueryRow(query, attemptKey).Scan(
		&record.ID,
		&record.UserID,
		&record.SubjectID,
		&record.YearLevel,
		&record.Score,
		&record.TotalMarks,
		&record.Percentage,
		&record.AttemptKey,
		&record.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetByUser retrieves all score records for a user, oldest first
func (r *ScoreRepository) GetByUser(userID int64) ([]models.ScoreRecord, error) {
	query := `
		SELECT id, user_id, subject_id, year_level, score, total_marks, percentage, attempt_key, completed_at
		FROM exam_scores
		WHERE user_id = ?
		ORDER BY completed_at ASC, id ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ScoreRecord
	for rows.Next() {
		var record models.ScoreRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.SubjectID,
			&record.YearLevel,
			&record.Score,
			&record.TotalMarks,
			&record.Percentage,
			&record.AttemptKey,
			&record.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// CountByUser returns the number of exam attempts for a user
func (r *ScoreRepository) CountByUser(userID int64) (int, error) {
	query := "SELECT COUNT(*) FROM exam_scores WHERE user_id = ?"

	var count int
	err := r.db.QueryRow(query, userID).Scan(&count)
	return count, err
}
