package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/himalai/expense-service/internal/database"
	"github.com/himalai/expense-service/internal/models"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type PostgresUserStore struct {
	db *database.DBManager
}

func NewPostgresUserStore(db *database.DBManager) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, email, first_name, last_name, password_hash, verified, admin,
	COALESCE(verify_code, ''), code_expires, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.Verified,
		&user.Admin,
		&user.VerifyCode,
		&user.CodeExpires,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, user *models.User, profile *models.Profile) error {
	tx, err := s.db.Write().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, verified, admin,
			verify_code, code_expires, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Verified,
		user.Admin,
		nullIfEmpty(user.VerifyCode),
		user.CodeExpires,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, user_id, bonus_points, total_uploads, total_transactions,
			bio, gender, age, complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		profile.ID,
		profile.UserID,
		profile.BonusPoints,
		profile.TotalUploads,
		profile.TotalTransactions,
		profile.Bio,
		profile.Gender,
		profile.Age,
		profile.Complete,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *PostgresUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.Read().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *PostgresUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.Read().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresUserStore) MarkVerified(ctx context.Context, userID string) error {
	_, err := s.db.Write().Exec(ctx, `
		UPDATE users
		SET verified = TRUE, verify_code = NULL, code_expires = NULL, updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) SetVerificationCode(ctx context.Context, userID, code string, expires time.Time) error {
	_, err := s.db.Write().Exec(ctx, `
		UPDATE users
		SET verify_code = $1, code_expires = $2, updated_at = NOW()
		WHERE id = $3
	`, code, expires, userID)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.Write().Exec(ctx,
		`UPDATE users SET last_login = $1 WHERE id = $2`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.Write().Exec(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, admin = $3, updated_at = NOW()
		WHERE id = $4
	`, user.FirstName, user.LastName, user.Admin, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) ListUsers(ctx context.Context, search string, limit, offset int) ([]*models.User, int, error) {
	where := ""
	args := []interface{}{}
	if search != "" {
		where = `WHERE email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	err := s.db.Read().QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT `+userColumns+` FROM users %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := s.db.Read().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, total, rows.Err()
}

func (s *PostgresUserStore) DeleteUser(ctx context.Context, id string) error {
	_, err := s.db.Write().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// DeleteExpiredUnverified purges accounts that never verified before
// their code expired. Profiles and expenses go with them via FK cascade.
func (s *PostgresUserStore) DeleteExpiredUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Write().Exec(ctx, `
		DELETE FROM users
		WHERE verified = FALSE AND code_expires IS NOT NULL AND code_expires < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired unverified users: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresUserStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.Read().QueryRow(ctx, `
		SELECT id, user_id, bonus_points, total_uploads, total_transactions,
			COALESCE(bio, ''), COALESCE(gender, ''), COALESCE(age, 0), complete,
			created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.BonusPoints,
		&p.TotalUploads,
		&p.TotalTransactions,
		&p.Bio,
		&p.Gender,
		&p.Age,
		&p.Complete,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresUserStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	now := time.Now()
	_, err := s.db.Write().Exec(ctx, `
		INSERT INTO profiles (id, user_id, bonus_points, total_uploads, total_transactions,
			bio, gender, age, complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		profile.ID,
		profile.UserID,
		profile.BonusPoints,
		profile.TotalUploads,
		profile.TotalTransactions,
		profile.Bio,
		profile.Gender,
		profile.Age,
		profile.Complete,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	_, err := s.db.Write().Exec(ctx, `
		UPDATE profiles
		SET bio = $1, gender = $2, age = $3, complete = $4, updated_at = NOW()
		WHERE user_id = $5
	`, profile.Bio, profile.Gender, profile.Age, profile.Complete, profile.UserID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) AdjustTransactionTotals(ctx context.Context, deltas map[string]int) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.db.Write().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for userID, delta := range deltas {
		_, err := tx.Exec(ctx, `
			UPDATE profiles
			SET total_transactions = GREATEST(total_transactions + $1, 0), updated_at = NOW()
			WHERE user_id = $2
		`, delta, userID)
		if err != nil {
			return fmt.Errorf("failed to adjust transaction totals: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
