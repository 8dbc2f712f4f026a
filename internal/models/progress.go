package models

import "time"

// ProgressRecord represents one completed (or pending) lesson for a user.
// At most one record exists per (user, lesson); re-completion refreshes
// CompletedAt rather than adding a row.
type ProgressRecord struct {
	ID          int64
	UserID      int64
	LessonID    string
	SubjectID   string
	YearLevel   int
	Completed   bool
	CompletedAt *time.Time
}

// ScoreRecord represents a single exam or quiz attempt. Every attempt is a
// new record; history is never merged or overwritten.
type ScoreRecord struct {
	ID          int64
	UserID      int64
	SubjectID   string
	YearLevel   int
	Score       int
	TotalMarks  int
	Percentage  int
	AttemptKey  string
	CompletedAt time.Time
}
