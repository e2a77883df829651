package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/himalai/expense-service/internal/auth"
	"github.com/himalai/expense-service/internal/mailer"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/storage"
)

// memSessions is an in-process SessionStore for tests.
type memSessions struct {
	mu   sync.Mutex
	data map[string]*models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string]*models.Session)}
}

func (s *memSessions) Save(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.TokenID] = session
	return nil
}

func (s *memSessions) Get(ctx context.Context, tokenID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[tokenID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, nil
	}
	return sess, nil
}

func (s *memSessions) Revoke(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, tokenID)
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	svc := NewAuthService(store.Users, newMemSessions(), jwtManager, mailer.NewLogMailer(), 24*time.Hour)
	return svc, store
}

func register(t *testing.T, svc *AuthService, email string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "password123",
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return user
}

func verificationCode(t *testing.T, store *storage.MemoryStore, email string) string {
	t.Helper()
	user, err := store.Users.GetUserByEmail(context.Background(), email)
	if err != nil || user == nil {
		t.Fatalf("Failed to load user %s: %v", email, err)
	}
	return user.VerifyCode
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	register(t, svc, "a@b.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.com",
		Password: "password123",
	})
	if err != ErrDuplicateEmail {
		t.Errorf("Expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, store := newTestAuthService(t)
	register(t, svc, "  A@B.COM ")

	user, err := store.Users.GetUserByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if user == nil {
		t.Fatal("Expected registered email to be stored normalized")
	}
	if user.Verified {
		t.Error("Expected new account to start unverified")
	}
}

func TestRegisterGrantsWelcomeBonus(t *testing.T) {
	svc, store := newTestAuthService(t)
	user := register(t, svc, "a@b.com")

	profile, err := store.Users.GetProfile(context.Background(), user.ID)
	if err != nil || profile == nil {
		t.Fatalf("Failed to load profile: %v", err)
	}
	if profile.BonusPoints != 10 {
		t.Errorf("Expected welcome bonus of 10 points, got %d", profile.BonusPoints)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.com",
		Password: "pw",
	})
	if err == nil {
		t.Error("Expected short password to be rejected")
	}
}

func TestVerifyFlow(t *testing.T) {
	svc, store := newTestAuthService(t)
	register(t, svc, "a@b.com")
	ctx := context.Background()

	if err := svc.Verify(ctx, "a@b.com", "000000"); err != ErrInvalidCode {
		t.Errorf("Expected ErrInvalidCode for wrong code, got %v", err)
	}

	code := verificationCode(t, store, "a@b.com")
	if len(code) != 6 {
		t.Fatalf("Expected 6-digit code, got %q", code)
	}

	if err := svc.Verify(ctx, "a@b.com", code); err != nil {
		t.Fatalf("Verify failed with correct code: %v", err)
	}

	if err := svc.Verify(ctx, "a@b.com", code); err != ErrAlreadyVerified {
		t.Errorf("Expected ErrAlreadyVerified on second verify, got %v", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	svc, store := newTestAuthService(t)
	user := register(t, svc, "a@b.com")
	ctx := context.Background()

	code := verificationCode(t, store, "a@b.com")
	expired := time.Now().Add(-time.Minute)
	if err := store.Users.SetVerificationCode(ctx, user.ID, code, expired); err != nil {
		t.Fatalf("SetVerificationCode failed: %v", err)
	}

	if err := svc.Verify(ctx, "a@b.com", code); err != ErrCodeExpired {
		t.Errorf("Expected ErrCodeExpired, got %v", err)
	}
}

func TestLoginRequiresVerification(t *testing.T) {
	svc, _ := newTestAuthService(t)
	register(t, svc, "a@b.com")

	_, err := svc.Login(context.Background(), "a@b.com", "password123", "127.0.0.1", "")
	if err != ErrNotVerified {
		t.Errorf("Expected ErrNotVerified for unverified login, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, store := newTestAuthService(t)
	register(t, svc, "a@b.com")
	ctx := context.Background()

	if err := svc.Verify(ctx, "a@b.com", verificationCode(t, store, "a@b.com")); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if _, err := svc.Login(ctx, "a@b.com", "wrong-password", "127.0.0.1", ""); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@b.com", "password123", "127.0.0.1", ""); err != ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLoginAuthorizeLogout(t *testing.T) {
	svc, store := newTestAuthService(t)
	registered := register(t, svc, "a@b.com")
	ctx := context.Background()

	if err := svc.Verify(ctx, "a@b.com", verificationCode(t, store, "a@b.com")); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	result, err := svc.Login(ctx, "a@b.com", "password123", "203.0.113.9", "Mozilla/5.0 (X11; Linux x86_64) Firefox/130.0")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("Expected a token")
	}
	if result.User.LastLogin == nil {
		t.Error("Expected last login to be recorded")
	}

	user, err := svc.Authorize(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("Authorize returned wrong user: %s", user.ID)
	}

	if err := svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := svc.Authorize(ctx, result.Token); err != ErrInvalidSession {
		t.Errorf("Expected ErrInvalidSession after logout, got %v", err)
	}
}

func TestAuthorizeGarbageToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, err := svc.Authorize(context.Background(), "not-a-token"); err != ErrInvalidSession {
		t.Errorf("Expected ErrInvalidSession, got %v", err)
	}
}

func TestResendCode(t *testing.T) {
	svc, store := newTestAuthService(t)
	register(t, svc, "a@b.com")
	ctx := context.Background()

	first := verificationCode(t, store, "a@b.com")
	if err := svc.ResendCode(ctx, "a@b.com"); err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}
	second := verificationCode(t, store, "a@b.com")

	if len(second) != 6 {
		t.Fatalf("Expected fresh 6-digit code, got %q", second)
	}
	// Both codes stay 6-digit; the old one no longer works if they differ.
	if first != second {
		if err := svc.Verify(ctx, "a@b.com", first); err != ErrInvalidCode {
			t.Errorf("Expected stale code to be rejected, got %v", err)
		}
	}

	if err := svc.Verify(ctx, "a@b.com", second); err != nil {
		t.Fatalf("Verify with resent code failed: %v", err)
	}
	if err := svc.ResendCode(ctx, "a@b.com"); err != ErrAlreadyVerified {
		t.Errorf("Expected ErrAlreadyVerified for resend after verification, got %v", err)
	}
}

// blindUserStore never sees existing accounts on lookup, so inserts
// race the way two concurrent registrations do.
type blindUserStore struct {
	storage.UserStore
}

func (s *blindUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func TestRegisterConcurrentDuplicateEmail(t *testing.T) {
	store := storage.NewMemoryStore()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	svc := NewAuthService(&blindUserStore{UserStore: store.Users}, newMemSessions(), jwtManager, mailer.NewLogMailer(), 24*time.Hour)
	ctx := context.Background()

	input := RegisterInput{Email: "race@b.com", Password: "password123", FirstName: "A", LastName: "B"}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("First registration failed: %v", err)
	}
	if _, err := svc.Register(ctx, input); err != ErrDuplicateEmail {
		t.Errorf("Expected ErrDuplicateEmail when the insert loses the race, got %v", err)
	}
}
