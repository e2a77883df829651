package storage

import (
	"context"
	"errors"
	"time"

	"github.com/himalai/expense-service/internal/models"
)

// ErrDuplicate reports a unique-constraint violation. Inserts racing
// past a caller's existence check still surface it.
var ErrDuplicate = errors.New("duplicate row")

// Lookups return (nil, nil) when the row does not exist; callers decide
// which domain error that becomes.

type UserStore interface {
	// CreateUser inserts the user and their profile in one transaction.
	CreateUser(ctx context.Context, user *models.User, profile *models.Profile) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	MarkVerified(ctx context.Context, userID string) error
	SetVerificationCode(ctx context.Context, userID, code string, expires time.Time) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error)
	DeleteUser(ctx context.Context, id string) error
	DeleteExpiredUnverified(ctx context.Context, cutoff time.Time) (int64, error)

	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	// AdjustTransactionTotals applies per-user deltas to the
	// total_transactions counter in one transaction.
	AdjustTransactionTotals(ctx context.Context, deltas map[string]int) error
}

type ExpenseStore interface {
	Add(ctx context.Context, expense *models.Expense) error
	// AddBatch inserts imported entries and bumps the owner's upload
	// counter in one transaction.
	AddBatch(ctx context.Context, userID string, expenses []*models.Expense) error
	Get(ctx context.Context, id string) (*models.Expense, error)
	List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]*models.Expense, error)
	Delete(ctx context.Context, id string) error
}

type VoucherStore interface {
	Create(ctx context.Context, voucher *models.Voucher) error
	GetByID(ctx context.Context, id string) (*models.Voucher, error)
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Voucher, error)
	Update(ctx context.Context, voucher *models.Voucher) error
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}
