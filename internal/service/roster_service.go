package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"questacademy/internal/models"
	"questacademy/internal/repository"
)

var (
	ErrNotTeacher        = errors.New("user is not a teacher")
	ErrNotStudent        = errors.New("target user is not a student")
	ErrAlreadyConnected  = errors.New("connection already exists")
	ErrConnectionMissing = errors.New("connection not found")
	ErrNotAuthorized     = errors.New("not authorized")
)

// RosterService manages teacher-student connections. A teacher invites a
// student by email; the student accepts or declines; only accepted
// connections let the teacher read the student's progress.
type RosterService struct {
	userRepo       *repository.UserRepository
	connectionRepo *repository.ConnectionRepository
	emailService   *EmailService
}

// NewRosterService creates a new roster service
func NewRosterService(userRepo *repository.UserRepository, connectionRepo *repository.ConnectionRepository, emailService *EmailService) *RosterService {
	return &RosterService{
		userRepo:       userRepo,
		connectionRepo: connectionRepo,
		emailService:   emailService,
	}
}

// InviteStudent creates a pending connection from a teacher to the student
// with the given email, and notifies the student
func (s *RosterService) InviteStudent(ctx context.Context, teacherID int64, studentEmail, relationship string) (*models.StudentConnection, error) {
	teacher, err := s.userRepo.GetUserByID(teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load teacher: %w", err)
	}
	if teacher == nil || !teacher.IsTeacher() {
		return nil, ErrNotTeacher
	}

	student, err := s.userRepo.GetUserByEmail(studentEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	if student == nil {
		return nil, ErrUserNotFound
	}
	if student.Role != models.RoleStudent {
		return nil, ErrNotStudent
	}

	existing, err := s.connectionRepo.GetByPair(teacherID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing connection: %w", err)
	}
	if existing != nil && existing.Status != models.ConnectionDeclined {
		return nil, ErrAlreadyConnected
	}
	if existing != nil {
		// A declined invitation can be renewed
		if err := s.connectionRepo.UpdateStatus(existing.ID, models.ConnectionPending); err != nil {
			return nil, fmt.Errorf("failed to renew invitation: %w", err)
		}
		return s.connectionRepo.GetByID(existing.ID)
	}

	conn, err := s.connectionRepo.Create(teacherID, student.ID, relationship)
	if err != nil {
		return nil, err
	}

	if err := s.emailService.SendConnectionInvite(ctx, student.Email, student.Name, teacher.Name); err != nil {
		// The connection stands even if the notification fails
		log.Printf("Failed to send invitation email to %s: %v", student.Email, err)
	}

	return conn, nil
}

// Respond lets the student accept or decline a pending invitation
func (s *RosterService) Respond(studentID, connectionID int64, accept bool) (*models.StudentConnection, error) {
	conn, err := s.connectionRepo.GetByID(connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil {
		return nil, ErrConnectionMissing
	}
	if conn.StudentID != studentID {
		return nil, ErrNotAuthorized
	}

	status := models.ConnectionDeclined
	if accept {
		status = models.ConnectionAccepted
	}
	if err := s.connectionRepo.UpdateStatus(conn.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	return s.connectionRepo.GetByID(conn.ID)
}

// Students returns the teacher's connections, pending and accepted alike
func (s *RosterService) Students(teacherID int64) ([]models.StudentConnection, error) {
	return s.connectionRepo.ListForTeacher(teacherID)
}

// Invitations returns the connections where the user is the student
func (s *RosterService) Invitations(studentID int64) ([]models.StudentConnection, error) {
	return s.connectionRepo.ListForStudent(studentID)
}

// CanViewStudent reports whether viewer may read studentID's progress.
// Users always see their own; admins see everyone; teachers see students
// with an accepted connection.
func (s *RosterService) CanViewStudent(viewer *models.User, studentID int64) (bool, error) {
	if viewer.ID == studentID {
		return true, nil
	}
	if viewer.IsAdmin() {
		return true, nil
	}
	if !viewer.IsTeacher() {
		return false, nil
	}
	return s.connectionRepo.HasAcceptedConnection(viewer.ID, studentID)
}
