package importer

import (
	"strings"
	"testing"
)

func TestParseStandardStatement(t *testing.T) {
	csv := `Date,Narration,Withdrawal Amt,Deposit Amt,Balance
02/01/2025,UPI-SWIGGY BANGALORE,450.00,,12550.00
03/01/2025,SALARY JAN,,50000.00,62550.00
04/01/2025,ATM WITHDRAWAL,2000.00,,60550.00
`

	result, err := Parse(strings.NewReader(csv), "user-1", "statement.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(result.Expenses) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(result.Expenses))
	}
	if result.Skipped != 0 {
		t.Errorf("Expected 0 skipped, got %d", result.Skipped)
	}

	first := result.Expenses[0]
	if first.Debit != 450 || first.Credit != 0 {
		t.Errorf("Expected debit 450, got debit %v credit %v", first.Debit, first.Credit)
	}
	if first.Category != "Food & Dining" {
		t.Errorf("Expected swiggy row categorized as Food & Dining, got %q", first.Category)
	}
	if first.Balance != 12550 {
		t.Errorf("Expected balance 12550, got %v", first.Balance)
	}
	if first.UserID != "user-1" {
		t.Errorf("Expected owner user-1, got %q", first.UserID)
	}

	salary := result.Expenses[1]
	if salary.Credit != 50000 || salary.Debit != 0 {
		t.Errorf("Expected credit 50000, got debit %v credit %v", salary.Debit, salary.Credit)
	}
	if salary.Category != "Salary" {
		t.Errorf("Expected Salary category, got %q", salary.Category)
	}
}

func TestParseSkipsPreambleAndJunkRows(t *testing.T) {
	csv := `Account Statement
Mr. Test User,
Txn Date,Particulars,Dr,Cr,Closing Balance
01-02-2025,"AMAZON, ORDER 123","1,299.00",,10000.00
not a date,garbage,,,
02-02-2025,NETFLIX SUBSCRIPTION,649.00,,9351.00
`

	result, err := Parse(strings.NewReader(csv), "user-1", "bank.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(result.Expenses) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result.Expenses))
	}
	if result.Skipped != 1 {
		t.Errorf("Expected 1 skipped row, got %d", result.Skipped)
	}
	if result.Expenses[0].Debit != 1299 {
		t.Errorf("Expected thousands separator stripped, got %v", result.Expenses[0].Debit)
	}
}

func TestParseSummary(t *testing.T) {
	csv := `Date,Description,Debit,Credit
02/01/2025,groceries,500.00,
05/01/2025,refund,,200.00
10/01/2025,rent,15000.00,
`

	result, err := Parse(strings.NewReader(csv), "user-1", "jan.csv")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	s := result.Summary
	if s.Imported != 3 {
		t.Errorf("Expected 3 imported, got %d", s.Imported)
	}
	if s.TotalDebits != 15500 {
		t.Errorf("Expected total debits 15500, got %v", s.TotalDebits)
	}
	if s.TotalCredits != 200 {
		t.Errorf("Expected total credits 200, got %v", s.TotalCredits)
	}
	if s.NetFlow != -15300 {
		t.Errorf("Expected net flow -15300, got %v", s.NetFlow)
	}
	if !s.StartDate.Before(s.EndDate) {
		t.Errorf("Expected start date %v before end date %v", s.StartDate, s.EndDate)
	}
}

func TestParseNoUsableHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("just,some,cells\n1,2,3\n"), "user-1", "x.csv")
	if err == nil {
		t.Fatal("Expected error for statement without header")
	}
}

func TestCleanAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1,234.50", 1234.50},
		{"₹2,000", 2000},
		{"$99.99", 99.99},
		{"(450.00)", 450},
		{"1234.50 DR", 1234.5},
		{"", 0},
		{"-", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := CleanAmount(tt.in); got != tt.want {
			t.Errorf("CleanAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
