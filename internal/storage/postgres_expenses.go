package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/himalai/expense-service/internal/database"
	"github.com/himalai/expense-service/internal/models"
)

type PostgresExpenseStore struct {
	db *database.DBManager
}

func NewPostgresExpenseStore(db *database.DBManager) *PostgresExpenseStore {
	return &PostgresExpenseStore{db: db}
}

const expenseColumns = `id, user_id, date, description, category, debit, credit,
	COALESCE(source, ''), balance, COALESCE(raw_data, ''), created_at`

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var e models.Expense
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Date,
		&e.Description,
		&e.Category,
		&e.Debit,
		&e.Credit,
		&e.Source,
		&e.Balance,
		&e.RawData,
		&e.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}
	return &e, nil
}

func (s *PostgresExpenseStore) Add(ctx context.Context, expense *models.Expense) error {
	now := time.Now()
	_, err := s.db.Write().Exec(ctx, `
		INSERT INTO expenses (id, user_id, date, description, category, debit, credit,
			source, balance, raw_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		expense.ID,
		expense.UserID,
		expense.Date,
		expense.Description,
		expense.Category,
		expense.Debit,
		expense.Credit,
		nullIfEmpty(expense.Source),
		expense.Balance,
		nullIfEmpty(expense.RawData),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to add expense: %w", err)
	}
	expense.CreatedAt = now
	return nil
}

// AddBatch inserts all entries and bumps the owner's upload counter in
// one transaction, so a failed import leaves no partial statement behind.
func (s *PostgresExpenseStore) AddBatch(ctx context.Context, userID string, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	tx, err := s.db.Write().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	batch := &pgx.Batch{}
	for _, e := range expenses {
		batch.Queue(`
			INSERT INTO expenses (id, user_id, date, description, category, debit, credit,
				source, balance, raw_data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			e.ID, e.UserID, e.Date, e.Description, e.Category, e.Debit, e.Credit,
			nullIfEmpty(e.Source), e.Balance, nullIfEmpty(e.RawData), now,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range expenses {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert expense batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close expense batch: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles
		SET total_uploads = total_uploads + 1, updated_at = NOW()
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to bump upload counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit expense batch: %w", err)
	}

	for _, e := range expenses {
		e.CreatedAt = now
	}
	return nil
}

func (s *PostgresExpenseStore) Get(ctx context.Context, id string) (*models.Expense, error) {
	row := s.db.Read().QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	return scanExpense(row)
}

func (s *PostgresExpenseStore) List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]*models.Expense, error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date DESC, created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Read().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

func (s *PostgresExpenseStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Write().Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}
