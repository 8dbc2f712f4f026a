package models

import "time"

// Role values stored in the user_roles table
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents an account in the system
type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	Name          string
	OAuthProvider string
	OAuthSubject  string
	Role          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsTeacher reports whether the user may view connected students' progress
func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}

// IsAdmin reports whether the user has administrative access
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
