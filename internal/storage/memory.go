package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/himalai/expense-service/internal/models"
)

// memoryData is the shared backing state for the in-memory stores. One
// mutex covers all maps because cross-table operations (user deletion
// cascading to expenses, imports bumping the upload counter) must see a
// consistent view.
type memoryData struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	profiles map[string]*models.Profile // keyed by user ID
	expenses map[string]*models.Expense
	vouchers map[string]*models.Voucher
}

// MemoryStore bundles in-memory implementations of every store
// interface. It backs the service tests and makes the binaries runnable
// without a database when DB_PRIMARY_DSN is unset.
type MemoryStore struct {
	Users    *MemoryUserStore
	Expenses *MemoryExpenseStore
	Vouchers *MemoryVoucherStore
}

func NewMemoryStore() *MemoryStore {
	d := &memoryData{
		users:    make(map[string]*models.User),
		profiles: make(map[string]*models.Profile),
		expenses: make(map[string]*models.Expense),
		vouchers: make(map[string]*models.Voucher),
	}
	return &MemoryStore{
		Users:    &MemoryUserStore{d: d},
		Expenses: &MemoryExpenseStore{d: d},
		Vouchers: &MemoryVoucherStore{d: d},
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	return &c
}

func copyExpense(e *models.Expense) *models.Expense {
	c := *e
	return &c
}

func copyVoucher(v *models.Voucher) *models.Voucher {
	c := *v
	return &c
}

type MemoryUserStore struct {
	d *memoryData
}

func (s *MemoryUserStore) CreateUser(ctx context.Context, user *models.User, profile *models.Profile) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, existing := range s.d.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	profile.CreatedAt = now
	profile.UpdatedAt = now

	s.d.users[user.ID] = copyUser(user)
	s.d.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

func (s *MemoryUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	for _, u := range s.d.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *MemoryUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	u, ok := s.d.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *MemoryUserStore) MarkVerified(ctx context.Context, userID string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %s", userID)
	}
	u.Verified = true
	u.VerifyCode = ""
	u.CodeExpires = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryUserStore) SetVerificationCode(ctx context.Context, userID, code string, expires time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %s", userID)
	}
	u.VerifyCode = code
	u.CodeExpires = &expires
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryUserStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %s", userID)
	}
	u.LastLogin = &at
	return nil
}

func (s *MemoryUserStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	u.FirstName = user.FirstName
	u.LastName = user.LastName
	u.Admin = user.Admin
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryUserStore) ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	search = strings.ToLower(search)
	var matched []*models.User
	for _, u := range s.d.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.FirstName), search) &&
			!strings.Contains(strings.ToLower(u.LastName), search) {
			continue
		}
		matched = append(matched, copyUser(u))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *MemoryUserStore) DeleteUser(ctx context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	delete(s.d.users, id)
	delete(s.d.profiles, id)
	for eid, e := range s.d.expenses {
		if e.UserID == id {
			delete(s.d.expenses, eid)
		}
	}
	return nil
}

func (s *MemoryUserStore) DeleteExpiredUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var deleted int64
	for id, u := range s.d.users {
		if !u.Verified && u.CodeExpires != nil && u.CodeExpires.Before(cutoff) {
			delete(s.d.users, id)
			delete(s.d.profiles, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryUserStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	p, ok := s.d.profiles[userID]
	if !ok {
		return nil, nil
	}
	return copyProfile(p), nil
}

func (s *MemoryUserStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.d.profiles[profile.UserID] = copyProfile(profile)
	return nil
}

func (s *MemoryUserStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	p, ok := s.d.profiles[profile.UserID]
	if !ok {
		return fmt.Errorf("profile not found for user: %s", profile.UserID)
	}
	p.Bio = profile.Bio
	p.Gender = profile.Gender
	p.Age = profile.Age
	p.Complete = profile.Complete
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryUserStore) AdjustTransactionTotals(ctx context.Context, deltas map[string]int) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for userID, delta := range deltas {
		p, ok := s.d.profiles[userID]
		if !ok {
			continue
		}
		p.TotalTransactions += delta
		if p.TotalTransactions < 0 {
			p.TotalTransactions = 0
		}
		p.UpdatedAt = time.Now()
	}
	return nil
}

type MemoryExpenseStore struct {
	d *memoryData
}

func (s *MemoryExpenseStore) Add(ctx context.Context, expense *models.Expense) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	expense.CreatedAt = time.Now()
	s.d.expenses[expense.ID] = copyExpense(expense)
	return nil
}

func (s *MemoryExpenseStore) AddBatch(ctx context.Context, userID string, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	now := time.Now()
	for _, e := range expenses {
		e.CreatedAt = now
		s.d.expenses[e.ID] = copyExpense(e)
	}
	if p, ok := s.d.profiles[userID]; ok {
		p.TotalUploads++
		p.UpdatedAt = now
	}
	return nil
}

func (s *MemoryExpenseStore) Get(ctx context.Context, id string) (*models.Expense, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	e, ok := s.d.expenses[id]
	if !ok {
		return nil, nil
	}
	return copyExpense(e), nil
}

func (s *MemoryExpenseStore) List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]*models.Expense, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	var matched []*models.Expense
	for _, e := range s.d.expenses {
		if e.UserID != userID {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.From != nil && e.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Date.After(*filter.To) {
			continue
		}
		matched = append(matched, copyExpense(e))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Limit > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
		if filter.Limit < len(matched) {
			matched = matched[:filter.Limit]
		}
	}
	return matched, nil
}

func (s *MemoryExpenseStore) Delete(ctx context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	delete(s.d.expenses, id)
	return nil
}

type MemoryVoucherStore struct {
	d *memoryData
}

func (s *MemoryVoucherStore) Create(ctx context.Context, voucher *models.Voucher) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, v := range s.d.vouchers {
		if v.Code == voucher.Code {
			return ErrDuplicate
		}
	}

	now := time.Now()
	voucher.CreatedAt = now
	voucher.UpdatedAt = now
	s.d.vouchers[voucher.ID] = copyVoucher(voucher)
	return nil
}

func (s *MemoryVoucherStore) GetByID(ctx context.Context, id string) (*models.Voucher, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	v, ok := s.d.vouchers[id]
	if !ok {
		return nil, nil
	}
	return copyVoucher(v), nil
}

func (s *MemoryVoucherStore) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	for _, v := range s.d.vouchers {
		if v.Code == code {
			return copyVoucher(v), nil
		}
	}
	return nil, nil
}

func (s *MemoryVoucherStore) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Voucher, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()

	var matched []*models.Voucher
	for _, v := range s.d.vouchers {
		if activeOnly && !v.Active {
			continue
		}
		matched = append(matched, copyVoucher(v))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryVoucherStore) Update(ctx context.Context, voucher *models.Voucher) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	v, ok := s.d.vouchers[voucher.ID]
	if !ok {
		return fmt.Errorf("voucher not found: %s", voucher.ID)
	}
	v.Title = voucher.Title
	v.Description = voucher.Description
	v.Amount = voucher.Amount
	v.Type = voucher.Type
	v.ValidFrom = voucher.ValidFrom
	v.ValidUntil = voucher.ValidUntil
	v.Active = voucher.Active
	v.UsageLimit = voucher.UsageLimit
	v.MinPurchase = voucher.MinPurchase
	v.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryVoucherStore) Delete(ctx context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	delete(s.d.vouchers, id)
	return nil
}

func (s *MemoryVoucherStore) IncrementUsage(ctx context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	v, ok := s.d.vouchers[id]
	if !ok {
		return fmt.Errorf("voucher not found: %s", id)
	}
	if v.UsageLimit > 0 && v.UsageCount >= v.UsageLimit {
		return fmt.Errorf("voucher usage limit reached")
	}
	v.UsageCount++
	v.UpdatedAt = time.Now()
	return nil
}
