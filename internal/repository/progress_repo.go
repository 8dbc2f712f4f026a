package repository

import (
	"database/sql"
	"fmt"
	"time"

	"questacademy/internal/database"
	"questacademy/internal/models"
)

// ProgressRepository handles the completion ledger. The ledger is
// upsert-only: records are created on first completion, refreshed on
// re-completion, and never deleted.
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// UpsertCompletion records a lesson completion keyed by (user, lesson).
// Calling it again for the same lesson refreshes completed_at to the
// given time; it never produces a second row.
func (r *ProgressRepository) UpsertCompletion(userID int64, lessonID, subjectID string, yearLevel int, completedAt time.Time) error {
	query := r.db.Dialect.UpsertProgress()
	_, err := r.db.Exec(query, userID, lessonID, subjectID, yearLevel, true, completedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert progress for lesson %s: %w", lessonID, err)
	}
	return nil
}

// GetByUserAndLesson retrieves a single progress record, or nil if the
// user has never touched the lesson
func (r *ProgressRepository) GetByUserAndLesson(userID int64, lessonID string) (*models.ProgressRecord, error) {
	query := `
		SELECT id, user_id, lesson_id, subject_id, year_level, completed, completed_at
		FROM progress
		WHERE user_id = ? AND lesson_id = ?
	`

	record := &models.ProgressRecord{}
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, userID, lessonID).Scan(
		&record.ID,
		&record.UserID,
		&record.LessonID,
		&record.SubjectID,
		&record.YearLevel,
		&record.Completed,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}

	return record, nil
}

// GetByUser retrieves all progress records for a user
func (r *ProgressRepository) GetByUser(userID int64) ([]models.ProgressRecord, error) {
	query := `
		SELECT id, user_id, lesson_id, subject_id, year_level, completed, completed_at
		FROM progress
		WHERE user_id = ?
		ORDER BY lesson_id ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ProgressRecord
	for rows.Next() {
		var record models.ProgressRecord
		var completedAt sql.NullTime

		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.LessonID,
			&record.SubjectID,
			&record.YearLevel,
			&record.Completed,
			&completedAt,
		)
		if err != nil {
			return nil, err
		}

		if completedAt.Valid {
			record.CompletedAt = &completedAt.Time
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// CountCompleted returns the number of completed lessons for a user
func (r *ProgressRepository) CountCompleted(userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM progress
		WHERE user_id = ? AND completed = ` + r.db.Dialect.BoolValue(true)

	var count int
	err := r.db.QueryRow(query, userID).Scan(&count)
	return count, err
}
