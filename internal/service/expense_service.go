package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/himalai/expense-service/internal/cache"
	"github.com/himalai/expense-service/internal/category"
	"github.com/himalai/expense-service/internal/events"
	"github.com/himalai/expense-service/internal/importer"
	"github.com/himalai/expense-service/internal/lock"
	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/points"
	"github.com/himalai/expense-service/internal/storage"
)

const importLockTTL = 5 * time.Minute

type ExpenseService struct {
	expenses  storage.ExpenseStore
	users     storage.UserStore
	publisher events.Publisher
	cache     *cache.Cache
	redis     *redis.Client
	log       *logger.Logger
}

// NewExpenseService wires the ledger. Cache and redis may be nil; the
// service then recomputes balances on every read and skips import
// locking, which is how the in-memory test setup runs.
func NewExpenseService(expenses storage.ExpenseStore, users storage.UserStore, publisher events.Publisher, c *cache.Cache, redisClient *redis.Client) *ExpenseService {
	return &ExpenseService{
		expenses:  expenses,
		users:     users,
		publisher: publisher,
		cache:     c,
		redis:     redisClient,
		log:       logger.New("expense-service"),
	}
}

type AddExpenseInput struct {
	Date        time.Time
	Description string
	Category    string
	Amount      float64
}

// Add records a manual spend entry. The amount must be positive; a
// missing or unknown category is detected from the description.
func (s *ExpenseService) Add(ctx context.Context, userID string, input AddExpenseInput) (*models.Expense, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	cat := category.Normalize(input.Category)
	if cat == category.Fallback && input.Category == "" {
		cat = category.Detect(input.Description)
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	expense := &models.Expense{
		ID:          uuid.New().String(),
		UserID:      userID,
		Date:        date,
		Description: input.Description,
		Category:    cat,
		Debit:       input.Amount,
		Source:      "manual",
	}

	if err := s.expenses.Add(ctx, expense); err != nil {
		return nil, err
	}

	s.invalidateBalance(ctx, userID)
	s.publishEvent(ctx, expense, events.ActionAdded)

	return expense, nil
}

func (s *ExpenseService) List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]*models.Expense, error) {
	if filter.Category != "" && !category.Valid(filter.Category) {
		filter.Category = category.Normalize(filter.Category)
	}
	return s.expenses.List(ctx, userID, filter)
}

// Get returns one entry, refusing entries owned by someone else.
func (s *ExpenseService) Get(ctx context.Context, userID, entryID string) (*models.Expense, error) {
	expense, err := s.expenses.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrNotFound
	}
	if expense.UserID != userID {
		return nil, ErrNotOwner
	}
	return expense, nil
}

// Delete removes an entry. The points it earned disappear with it, so
// the cached balance is invalidated and a deletion event is published.
func (s *ExpenseService) Delete(ctx context.Context, userID, entryID string) error {
	expense, err := s.Get(ctx, userID, entryID)
	if err != nil {
		return err
	}

	if err := s.expenses.Delete(ctx, entryID); err != nil {
		return err
	}

	s.invalidateBalance(ctx, userID)
	s.publishEvent(ctx, expense, events.ActionDeleted)
	return nil
}

type BalanceResult struct {
	Balance     int `json:"balance"`
	BonusPoints int `json:"bonus_points"`
	EntryPoints int `json:"entry_points"`
}

// Balance returns the user's points balance: welcome bonus plus what the
// current ledger earns. The derived total is cached; any ledger mutation
// drops the cache so the next read recomputes it.
func (s *ExpenseService) Balance(ctx context.Context, userID string) (*BalanceResult, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	bonus := 0
	if profile != nil {
		bonus = profile.BonusPoints
	}

	if s.cache != nil {
		if total, found := s.cache.GetInt(ctx, balanceKey(userID)); found {
			return &BalanceResult{Balance: total, BonusPoints: bonus, EntryPoints: total - bonus}, nil
		}
	}

	entries, err := s.expenses.List(ctx, userID, models.ExpenseFilter{})
	if err != nil {
		return nil, err
	}

	total := points.Total(bonus, entries)
	if s.cache != nil {
		if err := s.cache.SetInt(ctx, balanceKey(userID), total); err != nil {
			s.log.Warn("Failed to cache balance for %s: %v", userID, err)
		}
	}

	return &BalanceResult{Balance: total, BonusPoints: bonus, EntryPoints: total - bonus}, nil
}

// Import parses a statement upload and records every usable row. A
// per-user lock rejects concurrent imports so the upload counter and
// balance stay coherent.
func (s *ExpenseService) Import(ctx context.Context, userID, filename string, r io.Reader) (*models.ImportSummary, error) {
	if s.redis != nil {
		importLock := lock.NewDistributedLock(s.redis, importKey(userID), importLockTTL)
		acquired, err := importLock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire import lock: %w", err)
		}
		if !acquired {
			return nil, ErrImportInProgress
		}
		defer func() {
			if err := importLock.Release(ctx); err != nil {
				s.log.Warn("Failed to release import lock for %s: %v", userID, err)
			}
		}()
	}

	result, err := importer.Parse(r, userID, filename)
	if err != nil {
		return nil, err
	}

	if len(result.Expenses) > 0 {
		if err := s.expenses.AddBatch(ctx, userID, result.Expenses); err != nil {
			return nil, err
		}

		batch := make([]*events.LedgerEvent, 0, len(result.Expenses))
		for _, e := range result.Expenses {
			batch = append(batch, ledgerEvent(e, events.ActionAdded))
		}
		if err := s.publisher.PublishBatch(ctx, batch); err != nil {
			s.log.Error("Failed to publish import events for %s: %v", userID, err)
		}

		s.invalidateBalance(ctx, userID)
	}

	s.log.Info("Imported %d entries (%d skipped) for user %s", result.Summary.Imported, result.Summary.Skipped, userID)
	summary := result.Summary
	return &summary, nil
}

func (s *ExpenseService) invalidateBalance(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, balanceKey(userID)); err != nil {
		s.log.Warn("Failed to invalidate balance cache for %s: %v", userID, err)
	}
}

func (s *ExpenseService) publishEvent(ctx context.Context, expense *models.Expense, action string) {
	if err := s.publisher.Publish(ctx, ledgerEvent(expense, action)); err != nil {
		s.log.Error("Failed to publish ledger event for entry %s: %v", expense.ID, err)
	}
}

func ledgerEvent(e *models.Expense, action string) *events.LedgerEvent {
	return &events.LedgerEvent{
		EntryID:     e.ID,
		UserID:      e.UserID,
		Action:      action,
		Category:    e.Category,
		Description: e.Description,
		Debit:       e.Debit,
		Credit:      e.Credit,
		Source:      e.Source,
		OccurredAt:  e.Date.Unix(),
	}
}

func balanceKey(userID string) string {
	return "points:" + userID
}

func importKey(userID string) string {
	return "import:lock:" + userID
}
