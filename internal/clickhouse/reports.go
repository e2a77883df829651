package clickhouse

import (
	"context"
	"fmt"
	"time"
)

type CategoryStats struct {
	Category   string  `json:"category"`
	EntryCount uint64  `json:"entry_count"`
	TotalSpent float64 `json:"total_spent"`
	Percentage float64 `json:"percentage"`
}

type MonthlyPoint struct {
	Month        time.Time `json:"month"`
	TotalDebits  float64   `json:"total_debits"`
	TotalCredits float64   `json:"total_credits"`
	EntryCount   uint64    `json:"entry_count"`
}

type SpendingSummary struct {
	TotalDebits   float64    `json:"total_debits"`
	TotalCredits  float64    `json:"total_credits"`
	NetFlow       float64    `json:"net_flow"`
	EntryCount    uint64     `json:"entry_count"`
	TopCategory   string     `json:"top_category"`
	FirstEntryAt  *time.Time `json:"first_entry_at,omitempty"`
	LatestEntryAt *time.Time `json:"latest_entry_at,omitempty"`
}

// GetCategoryBreakdown returns per-category spend inside the window,
// largest first. Signed sums cancel deleted entries against their adds.
func (c *Client) GetCategoryBreakdown(ctx context.Context, userID string, startDate, endDate time.Time) ([]CategoryStats, error) {
	query := fmt.Sprintf(`
		SELECT
			category,
			toUInt64(greatest(sum(sign), 0)) AS entry_count,
			greatest(sum(debit * sign), 0) AS total_spent
		FROM %s.ledger_events
		WHERE user_id = ?
			AND occurred_date BETWEEN ? AND ?
		GROUP BY category
		HAVING total_spent > 0
		ORDER BY total_spent DESC
	`, c.database)

	rows, err := c.conn.Query(ctx, query, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query category breakdown: %w", err)
	}
	defer rows.Close()

	var stats []CategoryStats
	var total float64
	for rows.Next() {
		var s CategoryStats
		if err := rows.Scan(&s.Category, &s.EntryCount, &s.TotalSpent); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		total += s.TotalSpent
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if total > 0 {
		for i := range stats {
			stats[i].Percentage = stats[i].TotalSpent * 100 / total
		}
	}
	return stats, nil
}

// GetMonthlySeries returns one point per calendar month in the window.
func (c *Client) GetMonthlySeries(ctx context.Context, userID string, startDate, endDate time.Time) ([]MonthlyPoint, error) {
	query := fmt.Sprintf(`
		SELECT
			toStartOfMonth(occurred_date) AS month,
			greatest(sum(debit * sign), 0) AS total_debits,
			greatest(sum(credit * sign), 0) AS total_credits,
			toUInt64(greatest(sum(sign), 0)) AS entry_count
		FROM %s.ledger_events
		WHERE user_id = ?
			AND occurred_date BETWEEN ? AND ?
		GROUP BY month
		ORDER BY month ASC
	`, c.database)

	rows, err := c.conn.Query(ctx, query, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly series: %w", err)
	}
	defer rows.Close()

	var points []MonthlyPoint
	for rows.Next() {
		var p MonthlyPoint
		if err := rows.Scan(&p.Month, &p.TotalDebits, &p.TotalCredits, &p.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetSpendingSummary returns whole-history totals for one user.
func (c *Client) GetSpendingSummary(ctx context.Context, userID string) (*SpendingSummary, error) {
	query := fmt.Sprintf(`
		SELECT
			greatest(sum(debit * sign), 0) AS total_debits,
			greatest(sum(credit * sign), 0) AS total_credits,
			toUInt64(greatest(sum(sign), 0)) AS entry_count,
			min(occurred_at) AS first_entry,
			max(occurred_at) AS latest_entry
		FROM %s.ledger_events
		WHERE user_id = ?
	`, c.database)

	row := c.conn.QueryRow(ctx, query, userID)

	var summary SpendingSummary
	var first, latest time.Time
	if err := row.Scan(&summary.TotalDebits, &summary.TotalCredits, &summary.EntryCount, &first, &latest); err != nil {
		return nil, fmt.Errorf("failed to get spending summary: %w", err)
	}
	summary.NetFlow = summary.TotalCredits - summary.TotalDebits
	if summary.EntryCount > 0 {
		summary.FirstEntryAt = &first
		summary.LatestEntryAt = &latest
	}

	topQuery := fmt.Sprintf(`
		SELECT category
		FROM %s.ledger_events
		WHERE user_id = ?
		GROUP BY category
		HAVING sum(debit * sign) > 0
		ORDER BY sum(debit * sign) DESC
		LIMIT 1
	`, c.database)

	topRow := c.conn.QueryRow(ctx, topQuery, userID)
	if err := topRow.Scan(&summary.TopCategory); err != nil {
		// No spend rows yet is not an error.
		summary.TopCategory = ""
	}

	return &summary, nil
}
