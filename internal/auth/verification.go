package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const verificationCodeMax = 1000000

// GenerateVerificationCode returns a random 6-digit code, zero padded.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationCodeMax))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
