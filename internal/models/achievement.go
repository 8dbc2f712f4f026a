package models

import "time"

// UserAchievement records that a user has unlocked an achievement.
// Rows are insert-or-ignore and never deleted: once unlocked, an
// achievement stays unlocked regardless of later stat changes.
type UserAchievement struct {
	UserID        int64
	AchievementID string
	UnlockedAt    time.Time
}
