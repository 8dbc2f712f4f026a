package repository

import (
	"database/sql"
	"fmt"

	"questacademy/internal/database"
	"questacademy/internal/models"
)

// ConnectionRepository handles teacher-student connection records
type ConnectionRepository struct {
	db *database.DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *database.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Create inserts a pending connection between a teacher and a student
func (r *ConnectionRepository) Create(teacherID, studentID int64, relationship string) (*models.StudentConnection, error) {
	query := `
		INSERT INTO student_connections (teacher_id, student_id, relationship, status)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, teacherID, studentID, relationship, models.ConnectionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	return r.GetByID(id)
}

const connectionSelect = `
	SELECT c.id, c.teacher_id, c.student_id, c.relationship, c.status, c.created_at,
	       t.name, s.name
	FROM student_connections c
	JOIN users t ON t.id = c.teacher_id
	JOIN users s ON s.id = c.student_id
`

func scanConnection(row *sql.Row) (*models.StudentConnection, error) {
	conn := &models.StudentConnection{}
	err := row.Scan(
		&conn.ID,
		&conn.TeacherID,
		&conn.StudentID,
		&conn.Relationship,
		&conn.Status,
		&conn.CreatedAt,
		&conn.TeacherName,
		&conn.StudentName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// GetByID retrieves a connection by ID, or nil
func (r *ConnectionRepository) GetByID(id int64) (*models.StudentConnection, error) {
	query := connectionSelect + " WHERE c.id = ?"
	return scanConnection(r.db.QueryRow(query, id))
}

// GetByPair retrieves the connection between a teacher and student, or nil
func (r *ConnectionRepository) GetByPair(teacherID, studentID int64) (*models.StudentConnection, error) {
	query := connectionSelect + " WHERE c.teacher_id = ? AND c.student_id = ?"
	return scanConnection(r.db.QueryRow(query, teacherID, studentID))
}

// UpdateStatus transitions a connection to a new status
func (r *ConnectionRepository) UpdateStatus(id int64, status string) error {
	query := "UPDATE student_connections SET status = ? WHERE id = ?"
	result, err := r.db.Exec(query, status, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ConnectionRepository) list(query string, arg int64) ([]models.StudentConnection, error) {
	rows, err := r.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []models.StudentConnection
	for rows.Next() {
		var conn models.StudentConnection
		err := rows.Scan(
			&conn.ID,
			&conn.TeacherID,
			&conn.StudentID,
			&conn.Relationship,
			&conn.Status,
			&conn.CreatedAt,
			&conn.TeacherName,
			&conn.StudentName,
		)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

// ListForTeacher returns all connections where the user is the teacher
func (r *ConnectionRepository) ListForTeacher(teacherID int64) ([]models.StudentConnection, error) {
	query := connectionSelect + " WHERE c.teacher_id = ? ORDER BY c.created_at DESC"
	return r.list(query, teacherID)
}

// ListForStudent returns all connections where the user is the student
func (r *ConnectionRepository) ListForStudent(studentID int64) ([]models.StudentConnection, error) {
	query := connectionSelect + " WHERE c.student_id = ? ORDER BY c.created_at DESC"
	return r.list(query, studentID)
}

// HasAcceptedConnection reports whether the teacher may read the student's
// progress
func (r *ConnectionRepository) HasAcceptedConnection(teacherID, studentID int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM student_connections
		WHERE teacher_id = ? AND student_id = ? AND status = ?
	`
	var count int
	err := r.db.QueryRow(query, teacherID, studentID, models.ConnectionAccepted).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
