package validation

import (
	"fmt"
	"regexp"
	"strings"

	"questacademy/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var nameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z '\-]+$`)

// ValidateEmail checks that an email address is well formed
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidateName checks that a display name is acceptable
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if len(name) > 100 {
		return fmt.Errorf("name must be at most 100 characters")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("name contains invalid characters")
	}
	return nil
}

// ValidatePassword checks password strength requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// ValidateScore checks a raw exam score against its total marks
func ValidateScore(score, totalMarks int) error {
	if totalMarks <= 0 {
		return fmt.Errorf("total marks must be positive")
	}
	if score < 0 {
		return fmt.Errorf("score cannot be negative")
	}
	if score > totalMarks {
		return fmt.Errorf("score cannot exceed total marks")
	}
	return nil
}

// ValidateYearLevel checks a school year level is in the supported range
func ValidateYearLevel(yearLevel int) error {
	if yearLevel < 1 || yearLevel > 13 {
		return fmt.Errorf("year level must be between 1 and 13")
	}
	return nil
}

// ValidateCounterName checks the counter is one the wallet tracks
func ValidateCounterName(name string) error {
	for _, known := range models.CounterNames() {
		if name == known {
			return nil
		}
	}
	return fmt.Errorf("unknown counter %q", name)
}

// ValidateRole checks a role string is one of the defined roles
func ValidateRole(role string) error {
	switch role {
	case models.RoleStudent, models.RoleTeacher, models.RoleAdmin:
		return nil
	}
	return fmt.Errorf("unknown role %q", role)
}
