package models

import "time"

// Connection status values
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionDeclined = "declined"
)

// StudentConnection links a teacher account to a student account. A teacher
// may only read the progress of students whose connection is accepted.
type StudentConnection struct {
	ID           int64
	TeacherID    int64
	StudentID    int64
	Relationship string
	Status       string
	CreatedAt    time.Time

	// Joined display fields, populated on list queries
	TeacherName string
	StudentName string
}

// IsAccepted reports whether the connection grants the teacher read access
func (c *StudentConnection) IsAccepted() bool {
	return c.Status == ConnectionAccepted
}
