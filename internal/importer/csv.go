// Package importer parses bank statement CSV exports into ledger
// entries. Column names vary wildly between banks, so the parser maps
// headers by a set of known aliases rather than fixed positions.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himalai/expense-service/internal/category"
	"github.com/himalai/expense-service/internal/models"
)

var (
	ErrNoHeader    = fmt.Errorf("statement has no recognizable header row")
	ErrNoDateCol   = fmt.Errorf("statement header has no date column")
	ErrNoAmountCol = fmt.Errorf("statement header has no debit or credit column")
)

// Header aliases seen across bank exports. Matching is case-insensitive
// on the normalized header (trimmed, inner spaces collapsed).
var (
	dateAliases        = []string{"date", "txn date", "transaction date", "value date", "posting date"}
	descriptionAliases = []string{"description", "narration", "particulars", "details", "remarks", "transaction details"}
	debitAliases       = []string{"debit", "withdrawal", "withdrawal amt", "withdrawal amount", "dr", "debit amount", "paid out"}
	creditAliases      = []string{"credit", "deposit", "deposit amt", "deposit amount", "cr", "credit amount", "paid in"}
	balanceAliases     = []string{"balance", "closing balance", "running balance", "balance amt"}
	categoryAliases    = []string{"category", "type"}
)

// Date layouts tried in order. Day-first layouts come before US ones
// because the bank exports this service sees are predominantly day-first.
var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"01/02/2006",
}

type columnMap struct {
	date        int
	description int
	debit       int
	credit      int
	balance     int
	category    int
}

// Result carries the parsed entries together with the rows that could
// not be understood.
type Result struct {
	Expenses []*models.Expense
	Skipped  int
	Summary  models.ImportSummary
}

// Parse reads a statement CSV and produces ledger entries owned by
// userID, tagged with the given source label. Rows with an unparsable
// date or with neither a debit nor a credit amount are counted as
// skipped, not errors; a statement with a usable header always parses.
func Parse(r io.Reader, userID, source string) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	headerIdx, cols, err := findHeader(records)
	if err != nil {
		return nil, err
	}

	result := &Result{Summary: models.ImportSummary{Source: source}}
	for _, row := range records[headerIdx+1:] {
		entry, ok := parseRow(row, cols, userID, source)
		if !ok {
			if !emptyRow(row) {
				result.Skipped++
			}
			continue
		}
		result.Expenses = append(result.Expenses, entry)

		result.Summary.TotalDebits += entry.Debit
		result.Summary.TotalCredits += entry.Credit
		if result.Summary.StartDate.IsZero() || entry.Date.Before(result.Summary.StartDate) {
			result.Summary.StartDate = entry.Date
		}
		if entry.Date.After(result.Summary.EndDate) {
			result.Summary.EndDate = entry.Date
		}
	}

	result.Summary.Imported = len(result.Expenses)
	result.Summary.Skipped = result.Skipped
	result.Summary.NetFlow = result.Summary.TotalCredits - result.Summary.TotalDebits
	return result, nil
}

// findHeader scans for the first row containing a date column plus at
// least one amount column. Bank exports often carry preamble lines
// (account holder, statement period) before the real header.
func findHeader(records [][]string) (int, columnMap, error) {
	for i, row := range records {
		cols := mapColumns(row)
		if cols.date < 0 {
			continue
		}
		if cols.debit < 0 && cols.credit < 0 {
			continue
		}
		return i, cols, nil
	}
	if len(records) == 0 {
		return 0, columnMap{}, ErrNoHeader
	}
	if cols := mapColumns(records[0]); cols.date < 0 {
		return 0, columnMap{}, ErrNoDateCol
	}
	return 0, columnMap{}, ErrNoAmountCol
}

func mapColumns(header []string) columnMap {
	cols := columnMap{date: -1, description: -1, debit: -1, credit: -1, balance: -1, category: -1}
	for i, h := range header {
		name := normalizeHeader(h)
		switch {
		case cols.date < 0 && matchesAlias(name, dateAliases):
			cols.date = i
		case cols.description < 0 && matchesAlias(name, descriptionAliases):
			cols.description = i
		case cols.debit < 0 && matchesAlias(name, debitAliases):
			cols.debit = i
		case cols.credit < 0 && matchesAlias(name, creditAliases):
			cols.credit = i
		case cols.balance < 0 && matchesAlias(name, balanceAliases):
			cols.balance = i
		case cols.category < 0 && matchesAlias(name, categoryAliases):
			cols.category = i
		}
	}
	return cols
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), " ")
}

func matchesAlias(name string, aliases []string) bool {
	for _, a := range aliases {
		if name == a {
			return true
		}
	}
	return false
}

func parseRow(row []string, cols columnMap, userID, source string) (*models.Expense, bool) {
	date, ok := parseDate(cell(row, cols.date))
	if !ok {
		return nil, false
	}

	debit := CleanAmount(cell(row, cols.debit))
	credit := CleanAmount(cell(row, cols.credit))
	if debit == 0 && credit == 0 {
		return nil, false
	}

	description := strings.TrimSpace(cell(row, cols.description))

	cat := category.Normalize(cell(row, cols.category))
	if cat == category.Fallback {
		cat = category.Detect(description)
	}

	return &models.Expense{
		ID:          uuid.New().String(),
		UserID:      userID,
		Date:        date,
		Description: description,
		Category:    cat,
		Debit:       debit,
		Credit:      credit,
		Source:      source,
		Balance:     CleanAmount(cell(row, cols.balance)),
		RawData:     strings.Join(row, ","),
	}, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanAmount strips currency symbols, thousands separators, and
// accounting notation before parsing. "(1,234.50)" and "1234.50 DR"
// both come out as 1234.50.
func CleanAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	if negative {
		v = -v
	}
	if v < 0 {
		v = -v
	}
	return v
}
