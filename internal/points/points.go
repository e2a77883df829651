// Package points implements the reward accrual rule. The rule is a pure
// function of an entry's amount and category so a user's balance can
// always be recomputed by replaying their ledger.
package points

import (
	"math"

	"github.com/himalai/expense-service/internal/models"
)

// WelcomeBonus is granted once at registration.
const WelcomeBonus = 10

// foodMultiplier doubles accrual for everyday food spend.
const foodMultiplier = 2

// nonAccruing categories move money around rather than spend it, so they
// earn nothing.
var nonAccruing = map[string]bool{
	"Salary":     true,
	"Transfer":   true,
	"Withdrawal": true,
	"Investment": true,
}

// PointsFor returns the points earned by a single ledger entry: one
// point per whole currency unit of debit spend, doubled for Food &
// Dining. Credits and non-spend categories earn zero.
func PointsFor(e *models.Expense) int {
	if e.Debit <= 0 {
		return 0
	}
	if nonAccruing[e.Category] {
		return 0
	}

	pts := int(math.Floor(e.Debit))
	if e.Category == "Food & Dining" {
		pts *= foodMultiplier
	}
	return pts
}

// Total replays a ledger and returns the derived balance: the welcome
// bonus baseline plus the sum of PointsFor over every entry.
func Total(bonus int, entries []*models.Expense) int {
	total := bonus
	for _, e := range entries {
		total += PointsFor(e)
	}
	return total
}
