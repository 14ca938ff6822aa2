// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxTitleLength    = 255
	MaxContentLength  = 50000
	MaxCommentLength  = 5000
	MaxQuantityLength = 64
	MaxNameLength     = 64
	MaxIngredientName = 128
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)
)

// ValidatePassword checks length and requires at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain at least one letter and one digit")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 150 {
		return fmt.Errorf("username must not exceed 150 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) || strings.Contains(email, "..") {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateHexColor accepts "#rgb" and "#rrggbb". Empty means no color.
func ValidateHexColor(color string) error {
	if color == "" || hexColorRegex.MatchString(color) {
		return nil
	}
	return fmt.Errorf("color must be a hex value like #ff8800")
}

// ValidateText requires a non-blank value of at most max characters.
func ValidateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return ValidateMaxLength(field, value, max)
}

// ValidateMaxLength bounds value to max characters.
func ValidateMaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return nil
}

// ValidateNonNegative rejects negative optional integers.
func ValidateNonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%s must be zero or greater", field)
	}
	return nil
}
