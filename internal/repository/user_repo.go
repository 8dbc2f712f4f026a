package repository

import (
	"database/sql"
	"fmt"
	"time"

	"questacademy/internal/database"
	"questacademy/internal/models"
)

// UserRepository handles database operations for users and roles
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user and its role row. The first user ever
// created becomes an admin.
func (r *UserRepository) CreateUser(email, passwordHash, name, role string) (*models.User, error) {
	var userCount int
	countQuery := "SELECT COUNT(*) FROM users"
	err := r.db.QueryRow(countQuery).Scan(&userCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	if userCount == 0 {
		role = models.RoleAdmin
	}
	if role == "" {
		role = models.RoleStudent
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (email, password_hash, name)
		VALUES (?, ?, ?)
	`
	id, err := tx.ExecReturningID(query, email, passwordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	roleQuery := "INSERT INTO user_roles (user_id, role) VALUES (?, ?)"
	if _, err := tx.Exec(roleQuery, id, role); err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

const userSelect = `
	SELECT u.id, u.email, u.password_hash, u.name,
	       COALESCE(u.oauth_provider, ''), COALESCE(u.oauth_subject, ''),
	       COALESCE(r.role, 'student'), u.created_at, u.updated_at
	FROM users u
	LEFT JOIN user_roles r ON r.user_id = u.id
`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.OAuthProvider,
		&user.OAuthSubject,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address, or nil
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	query := userSelect + " WHERE u.email = ?"
	return scanUser(r.db.QueryRow(query, email))
}

// GetUserByID retrieves a user by ID, or nil
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	query := userSelect + " WHERE u.id = ?"
	return scanUser(r.db.QueryRow(query, id))
}

// GetUserByOAuth retrieves a user by OAuth provider and subject, or nil
func (r *UserRepository) GetUserByOAuth(provider, subject string) (*models.User, error) {
	query := userSelect + " WHERE u.oauth_provider = ? AND u.oauth_subject = ?"
	return scanUser(r.db.QueryRow(query, provider, subject))
}

// LinkOAuthProvider attaches an OAuth identity to an existing user
func (r *UserRepository) LinkOAuthProvider(userID int64, provider, subject string) error {
	query := `
		UPDATE users
		SET oauth_provider = ?, oauth_subject = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, provider, subject, userID)
	return err
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(userID int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, passwordHash, userID)
	return err
}

// SetRole updates a user's role
func (r *UserRepository) SetRole(userID int64, role string) error {
	// Role row may not exist for users created before roles were added
	current, err := r.GetUserByID(userID)
	if err != nil {
		return err
	}
	if current == nil {
		return sql.ErrNoRows
	}

	query := "UPDATE user_roles SET role = ? WHERE user_id = ?"
	result, err := r.db.Exec(query, role, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		_, err = r.db.Exec("INSERT INTO user_roles (user_id, role) VALUES (?, ?)", userID, role)
	}
	return err
}

// ListUsers returns all users, newest first
func (r *UserRepository) ListUsers() ([]models.User, error) {
	query := userSelect + " ORDER BY u.created_at DESC, u.id DESC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.Name,
			&user.OAuthProvider,
			&user.OAuthSubject,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
