package models

import "time"

// Expense is one ledger entry. Debit is money spent, Credit is money
// received; manual entries carry only a debit, imported statement rows
// may carry either.
type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Debit       float64   `json:"debit"`
	Credit      float64   `json:"credit"`
	Source      string    `json:"source"`
	Balance     float64   `json:"balance"`
	RawData     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExpenseFilter narrows a ledger listing. A zero Limit means no limit.
type ExpenseFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// ImportSummary describes the outcome of one statement import.
type ImportSummary struct {
	Imported     int       `json:"imported"`
	Skipped      int       `json:"skipped"`
	TotalDebits  float64   `json:"total_debits"`
	TotalCredits float64   `json:"total_credits"`
	NetFlow      float64   `json:"net_flow"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Source       string    `json:"source"`
}
