package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashCost stays at the bcrypt default; raising it slows every login.
const hashCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash. The
// bcrypt mismatch error is deliberately not surfaced; callers map a
// false result to their own credentials error.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
