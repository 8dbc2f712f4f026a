package repository

import (
	"fmt"
	"time"

	"questacademy/internal/database"
	"questacademy/internal/models"
)

// AchievementRepository persists per-user achievement unlocks. Unlocks are
// insert-or-ignore and never deleted, which is what makes the unlocked set
// monotonic over time.
type AchievementRepository struct {
	db *database.DB
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *database.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Unlock records an achievement unlock. Unlocking an already-unlocked
// achievement is a no-op; the original unlock time is kept.
func (r *AchievementRepository) Unlock(userID int64, achievementID string, unlockedAt time.Time) error {
	query := r.db.Dialect.InsertIgnoreUnlock()
	_, err := r.db.Exec(query, userID, achievementID, unlockedAt)
	if err != nil {
		return fmt.Errorf("failed to unlock achievement %s: %w", achievementID, err)
	}
	return nil
}

// GetUnlockedIDs returns the IDs of all achievements a user has ever unlocked
func (r *AchievementRepository) GetUnlockedIDs(userID int64) (map[string]bool, error) {
	query := "SELECT achievement_id FROM user_achievements WHERE user_id = ?"

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unlocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		unlocked[id] = true
	}

	return unlocked, rows.Err()
}

// GetUnlocked returns all unlock records for a user, oldest first
func (r *AchievementRepository) GetUnlocked(userID int64) ([]models.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = ?
		ORDER BY unlocked_at ASC, achievement_id ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var unlocks []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.UnlockedAt); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, ua)
	}

	return unlocks, rows.Err()
}
