package models

import "time"

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	Verified     bool       `json:"verified"`
	Admin        bool       `json:"admin"`
	VerifyCode   string     `json:"-"`
	CodeExpires  *time.Time `json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Profile holds per-user aggregates and the points welcome bonus. The
// points balance itself is never stored: it is derived from the ledger
// plus BonusPoints.
type Profile struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	BonusPoints       int       `json:"bonus_points"`
	TotalUploads      int       `json:"total_uploads"`
	TotalTransactions int       `json:"total_transactions"`
	Bio               string    `json:"bio,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Age               int       `json:"age,omitempty"`
	Complete          bool      `json:"complete"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Session is the server-side record of an issued token, keyed by the
// token's JWT ID. Revoking the record invalidates the token before its
// natural expiry.
type Session struct {
	TokenID   string    `json:"token_id"`
	UserID    string    `json:"user_id"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	OS        string    `json:"os,omitempty"`
	Device    string    `json:"device,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
