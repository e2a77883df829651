package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/himalai/expense-service/internal/cache"
	"github.com/himalai/expense-service/internal/events"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/storage"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	events []*events.LedgerEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event *events.LedgerEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) PublishBatch(ctx context.Context, batch []*events.LedgerEvent) error {
	p.events = append(p.events, batch...)
	return nil
}

func newTestExpenseService(t *testing.T) (*ExpenseService, *storage.MemoryStore, *capturePublisher, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	publisher := &capturePublisher{}
	svc := NewExpenseService(store.Expenses, store.Users, publisher, nil, nil)

	userID := uuid.New().String()
	user := &models.User{ID: userID, Email: "a@b.com", PasswordHash: "x", Verified: true}
	profile := &models.Profile{ID: uuid.New().String(), UserID: userID, BonusPoints: 10}
	if err := store.Users.CreateUser(context.Background(), user, profile); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return svc, store, publisher, userID
}

func TestAddRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, userID := newTestExpenseService(t)
	ctx := context.Background()

	for _, amount := range []float64{0, -10} {
		_, err := svc.Add(ctx, userID, AddExpenseInput{Description: "x", Amount: amount})
		if err != ErrInvalidAmount {
			t.Errorf("Expected ErrInvalidAmount for %v, got %v", amount, err)
		}
	}
}

func TestAddDetectsCategory(t *testing.T) {
	svc, _, publisher, userID := newTestExpenseService(t)
	ctx := context.Background()

	expense, err := svc.Add(ctx, userID, AddExpenseInput{
		Description: "Dinner at pizza place",
		Amount:      42.50,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if expense.Category != "Food & Dining" {
		t.Errorf("Expected Food & Dining, got %q", expense.Category)
	}
	if expense.Source != "manual" {
		t.Errorf("Expected manual source, got %q", expense.Source)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("Expected 1 published event, got %d", len(publisher.events))
	}
	if publisher.events[0].Action != events.ActionAdded {
		t.Errorf("Expected added action, got %q", publisher.events[0].Action)
	}
}

func TestAddKeepsExplicitCategory(t *testing.T) {
	svc, _, _, userID := newTestExpenseService(t)

	expense, err := svc.Add(context.Background(), userID, AddExpenseInput{
		Description: "pizza night",
		Category:    "entertainment",
		Amount:      20,
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if expense.Category != "Entertainment" {
		t.Errorf("Expected explicit category normalized to Entertainment, got %q", expense.Category)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _, _, userID := newTestExpenseService(t)
	ctx := context.Background()

	expense, err := svc.Add(ctx, userID, AddExpenseInput{Description: "coffee", Amount: 5})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if _, err := svc.Get(ctx, "someone-else", expense.ID); err != ErrNotOwner {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.Get(ctx, userID, uuid.New().String()); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBalanceReplaysLedger(t *testing.T) {
	svc, _, _, userID := newTestExpenseService(t)
	ctx := context.Background()

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 10 {
		t.Errorf("Expected empty ledger balance of 10 (welcome bonus), got %d", balance.Balance)
	}

	// 42.50 food spend earns floor(42)*2 = 84 points.
	if _, err := svc.Add(ctx, userID, AddExpenseInput{Description: "swiggy order", Amount: 42.50}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	// 100 shopping spend earns 100 points.
	entry, err := svc.Add(ctx, userID, AddExpenseInput{Description: "amazon order", Amount: 100})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	balance, err = svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 194 {
		t.Errorf("Expected balance 194 (10 + 84 + 100), got %d", balance.Balance)
	}
	if balance.BonusPoints != 10 || balance.EntryPoints != 184 {
		t.Errorf("Expected bonus 10 / entries 184, got %d / %d", balance.BonusPoints, balance.EntryPoints)
	}

	// Deleting the entry takes its points with it.
	if err := svc.Delete(ctx, userID, entry.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	balance, err = svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 94 {
		t.Errorf("Expected balance 94 after deletion, got %d", balance.Balance)
	}
}

func TestBalanceIsIdempotent(t *testing.T) {
	svc, _, _, userID := newTestExpenseService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, userID, AddExpenseInput{Description: "fuel", Amount: 60}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	first, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.Balance(ctx, userID)
		if err != nil {
			t.Fatalf("Balance failed: %v", err)
		}
		if again.Balance != first.Balance {
			t.Fatalf("Balance changed between reads: %d vs %d", first.Balance, again.Balance)
		}
	}
}

func TestListFilters(t *testing.T) {
	svc, _, _, userID := newTestExpenseService(t)
	ctx := context.Background()

	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Add(ctx, userID, AddExpenseInput{Date: jan, Description: "swiggy", Amount: 30}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := svc.Add(ctx, userID, AddExpenseInput{Date: feb, Description: "uber ride", Amount: 15}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	byCategory, err := svc.List(ctx, userID, models.ExpenseFilter{Category: "Food & Dining"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Description != "swiggy" {
		t.Errorf("Expected only the food entry, got %d entries", len(byCategory))
	}

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	byDate, err := svc.List(ctx, userID, models.ExpenseFilter{From: &from})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byDate) != 1 || byDate[0].Description != "uber ride" {
		t.Errorf("Expected only the February entry, got %d entries", len(byDate))
	}
}

func TestImportStatement(t *testing.T) {
	svc, store, publisher, userID := newTestExpenseService(t)
	ctx := context.Background()

	csv := `Date,Narration,Withdrawal Amt,Deposit Amt,Balance
02/01/2025,UPI-SWIGGY BANGALORE,450.00,,12550.00
03/01/2025,SALARY JAN,,50000.00,62550.00
`

	summary, err := svc.Import(ctx, userID, "statement.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Imported != 2 {
		t.Fatalf("Expected 2 imported entries, got %d", summary.Imported)
	}

	entries, err := svc.List(ctx, userID, models.ExpenseFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(entries))
	}

	if len(publisher.events) != 2 {
		t.Errorf("Expected 2 published events, got %d", len(publisher.events))
	}

	profile, err := store.Users.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		t.Fatalf("Failed to load profile: %v", err)
	}
	if profile.TotalUploads != 1 {
		t.Errorf("Expected upload counter 1, got %d", profile.TotalUploads)
	}

	// The salary credit earns no points; the 450 food debit earns 900.
	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 910 {
		t.Errorf("Expected balance 910 (10 + 450*2), got %d", balance.Balance)
	}
}

func TestBalanceCacheInvalidation(t *testing.T) {
	store := storage.NewMemoryStore()
	publisher := &capturePublisher{}
	svc := NewExpenseService(store.Expenses, store.Users, publisher, cache.NewMultiTierCache(16, nil, time.Minute), nil)
	ctx := context.Background()

	userID := uuid.New().String()
	user := &models.User{ID: userID, Email: "a@b.com", PasswordHash: "x", Verified: true}
	profile := &models.Profile{ID: uuid.New().String(), UserID: userID, BonusPoints: 10}
	if err := store.Users.CreateUser(ctx, user, profile); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	balance, err := svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 10 {
		t.Fatalf("Expected balance 10, got %d", balance.Balance)
	}

	// An entry written behind the service's back proves the cached
	// total is being served.
	stale := &models.Expense{
		ID:          uuid.New().String(),
		UserID:      userID,
		Date:        time.Now(),
		Description: "swiggy order",
		Category:    "Food & Dining",
		Debit:       42.50,
	}
	if err := store.Expenses.Add(ctx, stale); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	balance, err = svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 10 {
		t.Errorf("Expected cached balance 10, got %d", balance.Balance)
	}

	// A mutation through the service drops the cache; the next read
	// replays the whole ledger, picking up both entries.
	entry, err := svc.Add(ctx, userID, AddExpenseInput{Description: "amazon order", Amount: 100})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	balance, err = svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 194 {
		t.Errorf("Expected recomputed balance 194 (10 + 84 + 100), got %d", balance.Balance)
	}

	// Delete invalidates too.
	if err := svc.Delete(ctx, userID, entry.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	balance, err = svc.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 94 {
		t.Errorf("Expected balance 94 after delete, got %d", balance.Balance)
	}
}
