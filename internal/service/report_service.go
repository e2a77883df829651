package service

import (
	"context"
	"time"

	"github.com/himalai/expense-service/internal/clickhouse"
)

// ReportsBackend is the analytical store behind spending reports.
// Satisfied by clickhouse.Client.
type ReportsBackend interface {
	GetCategoryBreakdown(ctx context.Context, userID string, startDate, endDate time.Time) ([]clickhouse.CategoryStats, error)
	GetMonthlySeries(ctx context.Context, userID string, startDate, endDate time.Time) ([]clickhouse.MonthlyPoint, error)
	GetSpendingSummary(ctx context.Context, userID string) (*clickhouse.SpendingSummary, error)
}

type ReportService struct {
	backend ReportsBackend
}

func NewReportService(backend ReportsBackend) *ReportService {
	return &ReportService{backend: backend}
}

// defaultWindow is used when the caller gives no date range.
const defaultWindow = 365 * 24 * time.Hour

func (s *ReportService) CategoryBreakdown(ctx context.Context, userID string, from, to *time.Time) ([]clickhouse.CategoryStats, error) {
	start, end := window(from, to)
	return s.backend.GetCategoryBreakdown(ctx, userID, start, end)
}

func (s *ReportService) MonthlySeries(ctx context.Context, userID string, from, to *time.Time) ([]clickhouse.MonthlyPoint, error) {
	start, end := window(from, to)
	return s.backend.GetMonthlySeries(ctx, userID, start, end)
}

func (s *ReportService) Summary(ctx context.Context, userID string) (*clickhouse.SpendingSummary, error) {
	return s.backend.GetSpendingSummary(ctx, userID)
}

func window(from, to *time.Time) (time.Time, time.Time) {
	end := time.Now()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultWindow)
	if from != nil {
		start = *from
	}
	return start, end
}
