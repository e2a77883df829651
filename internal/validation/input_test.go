package validation

import (
	"strings"
	"testing"
)

func TestValidateEmail_Valid(t *testing.T) {
	valid := []string{
		"a@b.com",
		"user@example.com",
		"first.last@sub.domain.org",
		"user+tag@example.co",
	}

	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("expected %q to be valid, got %v", email, err)
		}
	}
}

func TestValidateEmail_Invalid(t *testing.T) {
	tests := []struct {
		email string
		want  error
	}{
		{"", ErrEmailRequired},
		{"not-an-email", ErrEmailInvalid},
		{"missing@tld", ErrEmailInvalid},
		{"@example.com", ErrEmailInvalid},
		{"spaces in@example.com", ErrEmailInvalid},
		{strings.Repeat("a", 250) + "@b.com", ErrEmailTooLong},
	}

	for _, tt := range tests {
		if err := ValidateEmail(tt.email); err != tt.want {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, err, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{"", ErrPasswordRequired},
		{"abcd", ErrPasswordTooShort},
		{"pw123", nil},
		{"longenough", nil},
		{strings.Repeat("x", 73), ErrPasswordTooLong},
		{strings.Repeat("x", 72), nil},
	}

	for _, tt := range tests {
		if err := ValidatePassword(tt.password); err != tt.want {
			t.Errorf("ValidatePassword(len=%d) = %v, want %v", len(tt.password), err, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("expected 'user@example.com', got %q", got)
	}
}
