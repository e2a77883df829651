package auth

import (
	"testing"
	"time"
)

func TestNewJWTManager(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	if manager == nil {
		t.Fatal("expected JWTManager to be created")
	}
	if manager.secretKey != "test-secret" {
		t.Errorf("expected secretKey 'test-secret', got '%s'", manager.secretKey)
	}
	if manager.tokenDuration != time.Hour {
		t.Errorf("expected tokenDuration 1h, got %v", manager.tokenDuration)
	}
}

func TestGenerateToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)

	token, claims, err := manager.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token == "" {
		t.Error("expected non-empty token")
	}
	if claims == nil || claims.ID == "" {
		t.Fatal("expected claims with a JWT ID")
	}

	expectedExpiry := time.Now().Add(time.Hour)
	expiresAt := claims.ExpiresAt.Time
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("expiry time not within expected range")
	}
}

func TestValidateToken_Valid(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)

	token, _, err := manager.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected error validating token: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("expected UserID 'user-123', got '%s'", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("expected Email 'test@example.com', got '%s'", claims.Email)
	}
	if claims.ID == "" {
		t.Error("expected non-empty JWT ID")
	}
}

func TestValidateToken_UniqueTokenIDs(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)

	first, _, err := manager.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	second, _, err := manager.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	firstClaims, err := manager.ValidateToken(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondClaims, err := manager.ValidateToken(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if firstClaims.ID == secondClaims.ID {
		t.Error("expected distinct JWT IDs for separately issued tokens")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	manager := NewJWTManager("correct-secret", time.Hour)
	otherManager := NewJWTManager("wrong-secret", time.Hour)

	token, _, err := manager.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := otherManager.ValidateToken(token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	manager := NewJWTManager("test-secret-key", -time.Minute)

	token, _, err := manager.GenerateToken("user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expected validation to fail for expired token")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)

	if _, err := manager.ValidateToken("not-a-token"); err == nil {
		t.Error("expected validation to fail for garbage input")
	}
}
