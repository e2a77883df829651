package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/himalai/expense-service/internal/database"
	"github.com/himalai/expense-service/internal/models"
)

type PostgresVoucherStore struct {
	db *database.DBManager
}

func NewPostgresVoucherStore(db *database.DBManager) *PostgresVoucherStore {
	return &PostgresVoucherStore{db: db}
}

const voucherColumns = `id, code, title, COALESCE(description, ''), amount, type,
	valid_from, valid_until, active, usage_limit, usage_count, min_purchase,
	COALESCE(created_by, ''), created_at, updated_at`

func scanVoucher(row pgx.Row) (*models.Voucher, error) {
	var v models.Voucher
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.Title,
		&v.Description,
		&v.Amount,
		&v.Type,
		&v.ValidFrom,
		&v.ValidUntil,
		&v.Active,
		&v.UsageLimit,
		&v.UsageCount,
		&v.MinPurchase,
		&v.CreatedBy,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan voucher: %w", err)
	}
	return &v, nil
}

func (s *PostgresVoucherStore) Create(ctx context.Context, voucher *models.Voucher) error {
	now := time.Now()
	_, err := s.db.Write().Exec(ctx, `
		INSERT INTO vouchers (id, code, title, description, amount, type,
			valid_from, valid_until, active, usage_limit, usage_count, min_purchase,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		voucher.ID,
		voucher.Code,
		voucher.Title,
		nullIfEmpty(voucher.Description),
		voucher.Amount,
		voucher.Type,
		voucher.ValidFrom,
		voucher.ValidUntil,
		voucher.Active,
		voucher.UsageLimit,
		voucher.UsageCount,
		voucher.MinPurchase,
		nullIfEmpty(voucher.CreatedBy),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	voucher.CreatedAt = now
	voucher.UpdatedAt = now
	return nil
}

func (s *PostgresVoucherStore) GetByID(ctx context.Context, id string) (*models.Voucher, error) {
	row := s.db.Read().QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
	return scanVoucher(row)
}

func (s *PostgresVoucherStore) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	row := s.db.Read().QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code)
	return scanVoucher(row)
}

func (s *PostgresVoucherStore) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.Read().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*models.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}

	return vouchers, rows.Err()
}

func (s *PostgresVoucherStore) Update(ctx context.Context, voucher *models.Voucher) error {
	_, err := s.db.Write().Exec(ctx, `
		UPDATE vouchers
		SET title = $1, description = $2, amount = $3, type = $4, valid_from = $5,
			valid_until = $6, active = $7, usage_limit = $8, min_purchase = $9,
			updated_at = NOW()
		WHERE id = $10
	`,
		voucher.Title,
		nullIfEmpty(voucher.Description),
		voucher.Amount,
		voucher.Type,
		voucher.ValidFrom,
		voucher.ValidUntil,
		voucher.Active,
		voucher.UsageLimit,
		voucher.MinPurchase,
		voucher.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update voucher: %w", err)
	}
	return nil
}

func (s *PostgresVoucherStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Write().Exec(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete voucher: %w", err)
	}
	return nil
}

// IncrementUsage is guarded by the usage limit so two concurrent
// redemptions cannot push usage_count past it.
func (s *PostgresVoucherStore) IncrementUsage(ctx context.Context, id string) error {
	tag, err := s.db.Write().Exec(ctx, `
		UPDATE vouchers
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)
	`, id)
	if err != nil {
		return fmt.Errorf("failed to increment voucher usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("voucher usage limit reached")
	}
	return nil
}
