package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email address is not valid")
	ErrEmailTooLong     = errors.New("email must be at most 254 characters")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 5 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
	ErrNameTooLong      = errors.New("name must be at most 100 characters")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)

	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrEmailTooLong
	}
	if !emailRegex.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword enforces length bounds only; bcrypt truncates inputs
// beyond 72 bytes, so longer passwords are rejected instead of silently
// weakened.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < 5 {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

func ValidateName(name string) error {
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}

// NormalizeEmail lowercases and trims an address so uniqueness checks
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
