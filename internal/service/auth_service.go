package service

import (
	"errors"
	"fmt"

	"questacademy/internal/models"
	"questacademy/internal/repository"
	"questacademy/internal/security"
	"questacademy/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles account registration and login
type AuthService struct {
	userRepo *repository.UserRepository
	tokens   *security.TokenIssuer
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, tokens *security.TokenIssuer) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Register creates a new account and returns the user with a signed token
func (s *AuthService) Register(email, password, name, role string) (*models.User, string, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, "", err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, "", err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, "", err
	}
	if role != "" {
		if err := validation.ValidateRole(role); err != nil {
			return nil, "", err
		}
	}

	existing, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(email, passwordHash, name, role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a signed token
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, "", ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// OAuthLogin finds or creates the account for an external identity. An
// existing account with the same email gets the identity linked rather than
// a duplicate account created.
func (s *AuthService) OAuthLogin(provider, subject, email, name string) (*models.User, string, error) {
	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up oauth user: %w", err)
	}

	if user == nil {
		user, err = s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, "", fmt.Errorf("failed to look up user: %w", err)
		}
		if user != nil {
			if err := s.userRepo.LinkOAuthProvider(user.ID, provider, subject); err != nil {
				return nil, "", fmt.Errorf("failed to link oauth provider: %w", err)
			}
		} else {
			user, err = s.userRepo.CreateUser(email, "", name, models.RoleStudent)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create oauth user: %w", err)
			}
			if err := s.userRepo.LinkOAuthProvider(user.ID, provider, subject); err != nil {
				return nil, "", fmt.Errorf("failed to link oauth provider: %w", err)
			}
		}
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetUser returns a user by ID
func (s *AuthService) GetUser(userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ChangePassword updates a user's password after verifying the current one
func (s *AuthService) ChangePassword(userID int64, currentPassword, newPassword string) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if !security.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(userID, hash)
}
