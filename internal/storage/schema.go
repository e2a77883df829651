package storage

import (
	"context"
	"fmt"

	"github.com/himalai/expense-service/internal/database"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(254) UNIQUE NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		admin BOOLEAN NOT NULL DEFAULT FALSE,
		verify_code VARCHAR(6),
		code_expires TIMESTAMPTZ,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_users_unverified ON users(code_expires) WHERE verified = FALSE`,

	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bonus_points INT NOT NULL DEFAULT 0,
		total_uploads INT NOT NULL DEFAULT 0,
		total_transactions INT NOT NULL DEFAULT 0,
		bio TEXT,
		gender VARCHAR(20),
		age INT,
		complete BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category VARCHAR(50) NOT NULL,
		debit NUMERIC(14,2) NOT NULL DEFAULT 0,
		credit NUMERIC(14,2) NOT NULL DEFAULT 0,
		source VARCHAR(100),
		balance NUMERIC(14,2) NOT NULL DEFAULT 0,
		raw_data TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_user_category ON expenses(user_id, category)`,

	`CREATE TABLE IF NOT EXISTS vouchers (
		id UUID PRIMARY KEY,
		code VARCHAR(50) UNIQUE NOT NULL,
		title VARCHAR(200) NOT NULL,
		description TEXT,
		amount NUMERIC(14,2) NOT NULL,
		type VARCHAR(20) NOT NULL,
		valid_from TIMESTAMPTZ NOT NULL,
		valid_until TIMESTAMPTZ,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		usage_limit INT NOT NULL DEFAULT 0,
		usage_count INT NOT NULL DEFAULT 0,
		min_purchase NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_by UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vouchers_code ON vouchers(code)`,
}

// InitSchema creates all tables and indexes if they do not exist.
// Statements are idempotent so every binary can run this at startup.
func InitSchema(ctx context.Context, db *database.DBManager) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Write().Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
