package service

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to
// HTTP status codes; everything else surfaces as a 500.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidSession     = errors.New("session is invalid or revoked")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidDiscount    = errors.New("invalid discount configuration")
	ErrNotFound           = errors.New("not found")
	ErrNotOwner           = errors.New("entry belongs to another user")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrImportInProgress   = errors.New("another import is already running for this user")
	ErrDuplicateCode      = errors.New("voucher code already exists")
	ErrVoucherNotUsable   = errors.New("voucher cannot be applied")
	ErrMinPurchase        = errors.New("purchase amount below voucher minimum")
)
