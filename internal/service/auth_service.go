package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/himalai/expense-service/internal/auth"
	"github.com/himalai/expense-service/internal/enrichment"
	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/mailer"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/points"
	"github.com/himalai/expense-service/internal/storage"
	"github.com/himalai/expense-service/internal/validation"
)

// SessionStore is the slice of the session API the auth flow needs.
// Satisfied by auth.SessionStore; tests substitute an in-memory one.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, tokenID string) (*models.Session, error)
	Revoke(ctx context.Context, tokenID string) error
}

type AuthService struct {
	users           storage.UserStore
	sessions        SessionStore
	jwt             *auth.JWTManager
	mail            mailer.Mailer
	verificationTTL time.Duration
	log             *logger.Logger
}

func NewAuthService(users storage.UserStore, sessions SessionStore, jwt *auth.JWTManager, mail mailer.Mailer, verificationTTL time.Duration) *AuthService {
	return &AuthService{
		users:           users,
		sessions:        sessions,
		jwt:             jwt,
		mail:            mail,
		verificationTTL: verificationTTL,
		log:             logger.New("auth-service"),
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an unverified account with its profile and emails a
// verification code. The welcome bonus is granted now but only becomes
// reachable once the account verifies and can log in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validation.ValidateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(input.FirstName); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(input.LastName); err != nil {
		return nil, err
	}

	email := validation.NormalizeEmail(input.Email)

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return nil, err
	}
	expires := time.Now().Add(s.verificationTTL)

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		VerifyCode:   code,
		CodeExpires:  &expires,
	}
	profile := &models.Profile{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		BonusPoints: points.WelcomeBonus,
	}

	if err := s.users.CreateUser(ctx, user, profile); err != nil {
		// A concurrent registration can win the insert after the
		// existence check above.
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.mail.SendVerificationCode(ctx, email, code); err != nil {
		// The account exists either way; the code can be resent.
		s.log.Error("Failed to send verification email to %s: %v", email, err)
	}

	s.log.Info("Registered user %s", user.ID)
	return user, nil
}

// Verify activates the account if the code matches and has not expired.
func (s *AuthService) Verify(ctx context.Context, email, code string) error {
	email = validation.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrNotFound
	}
	if user.Verified {
		return ErrAlreadyVerified
	}
	if user.VerifyCode == "" || user.VerifyCode != code {
		return ErrInvalidCode
	}
	if user.CodeExpires != nil && time.Now().After(*user.CodeExpires) {
		return ErrCodeExpired
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to mark verified: %w", err)
	}

	s.log.Info("Verified user %s", user.ID)
	return nil
}

// ResendCode issues a fresh code with a fresh expiry for an unverified
// account.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrNotFound
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	code, err := auth.GenerateVerificationCode()
	if err != nil {
		return err
	}
	expires := time.Now().Add(s.verificationTTL)

	if err := s.users.SetVerificationCode(ctx, user.ID, code, expires); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	if err := s.mail.SendVerificationCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login authenticates a verified account, issues a token, and records
// the session with client device info so it can be revoked later.
// Unverified accounts are rejected even with correct credentials.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP, userAgent string) (*LoginResult, error) {
	email = validation.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}

	token, claims, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	device := enrichment.ParseUserAgent(userAgent)
	session := &models.Session{
		TokenID:   claims.ID,
		UserID:    user.ID,
		IP:        clientIP,
		UserAgent: userAgent,
		Browser:   device.Browser,
		OS:        device.OS,
		Device:    device.Device,
		CreatedAt: time.Now(),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("Failed to update last login for %s: %v", user.ID, err)
	}
	user.LastLogin = &now

	s.log.Info("User %s logged in from %s", user.ID, clientIP)
	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// Authorize validates a bearer token against both the signature and the
// server-side session record, then loads the account. A token whose
// session was revoked fails even if the signature is still valid.
func (s *AuthService) Authorize(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.UserID != claims.UserID {
		return nil, ErrInvalidSession
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidSession
	}
	return user, nil
}

// Logout revokes the session behind the token. Revoking an already
// revoked or expired token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return ErrInvalidSession
	}
	return s.sessions.Revoke(ctx, claims.ID)
}
