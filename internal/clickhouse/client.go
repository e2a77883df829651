package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/himalai/expense-service/internal/config"
	"github.com/himalai/expense-service/internal/events"
)

type Client struct {
	conn     driver.Conn
	database string
}

func NewClient(cfg config.ClickHouseConfig) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     cfg.MaxConns,
		MaxIdleConns:     cfg.MaxConns / 2,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &Client{conn: conn, database: cfg.Database}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// InitSchema creates the ledger events table. Deletions are recorded as
// rows with a negative sign so aggregates stay correct without mutating
// history.
func (c *Client) InitSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.ledger_events (
			entry_id String,
			user_id String,
			action LowCardinality(String),
			category LowCardinality(String),
			description String,
			debit Float64,
			credit Float64,
			source String,
			sign Int8,
			occurred_at DateTime,
			occurred_date Date DEFAULT toDate(occurred_at)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(occurred_date)
		ORDER BY (user_id, occurred_date, entry_id)
	`, c.database)

	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create ledger_events table: %w", err)
	}
	return nil
}

// InsertLedgerEvents writes a batch of ledger mutations. Added entries
// carry sign +1, deleted entries sign -1.
func (c *Client) InsertLedgerEvents(ctx context.Context, batch []events.LedgerEvent) error {
	if len(batch) == 0 {
		return nil
	}

	prepared, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s.ledger_events (
		entry_id, user_id, action, category, description,
		debit, credit, source, sign, occurred_at
	)`, c.database))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, event := range batch {
		sign := int8(1)
		if event.Action == events.ActionDeleted {
			sign = -1
		}
		err := prepared.Append(
			event.EntryID,
			event.UserID,
			event.Action,
			event.Category,
			event.Description,
			event.Debit,
			event.Credit,
			event.Source,
			sign,
			time.Unix(event.OccurredAt, 0),
		)
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	if err := prepared.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}

func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.conn.Exec(ctx, query, args...)
}

func (c *Client) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return c.conn.Query(ctx, query, args...)
}
