package auth

import "testing"

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "" {
		t.Error("expected non-empty hash")
	}
	if hash == "pw123" {
		t.Error("hash must not equal the plaintext password")
	}
}

func TestHashPassword_DistinctSalts(t *testing.T) {
	first, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("expected different hashes for the same password")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !CheckPassword(hash, "pw123") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected mismatched password to fail")
	}
}
