// Package category assigns ledger entries to a fixed taxonomy by keyword
// matching on the entry description.
package category

import "strings"

// Fallback is used when no keyword matches.
const Fallback = "Other"

// Taxonomy is the closed set of categories an entry can carry.
var Taxonomy = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Utilities",
	"Rent",
	"Education",
	"Healthcare",
	"Travel",
	"Salary",
	"Transfer",
	"Withdrawal",
	"Investment",
	"Insurance",
	"Subscription",
	Fallback,
}

// keywords maps lowercase description fragments to a category. Longer,
// more specific fragments are listed under the category they decide;
// matching is first-category-wins in taxonomy order.
var keywords = map[string][]string{
	"Food & Dining":  {"restaurant", "cafe", "coffee", "food", "dining", "pizza", "burger", "swiggy", "zomato", "grocery", "supermarket", "bakery"},
	"Transportation": {"uber", "ola", "taxi", "cab", "metro", "bus", "train ticket", "fuel", "petrol", "diesel", "parking", "toll"},
	"Shopping":       {"amazon", "flipkart", "mall", "store", "shopping", "clothing", "apparel", "electronics"},
	"Entertainment":  {"movie", "cinema", "concert", "theatre", "game", "gaming", "ticket"},
	"Utilities":      {"electricity", "water bill", "gas bill", "internet", "broadband", "mobile recharge", "phone bill", "utility"},
	"Rent":           {"rent", "lease", "landlord"},
	"Education":      {"tuition", "course", "school", "college", "university", "exam fee", "books"},
	"Healthcare":     {"hospital", "clinic", "pharmacy", "doctor", "medical", "medicine", "dental"},
	"Travel":         {"flight", "airline", "hotel", "booking.com", "airbnb", "visa fee", "travel"},
	"Salary":         {"salary", "payroll", "wages", "stipend"},
	"Transfer":       {"transfer", "neft", "imps", "rtgs", "upi", "sent to", "received from"},
	"Withdrawal":     {"atm", "cash withdrawal", "withdrawal"},
	"Investment":     {"mutual fund", "sip", "stock", "brokerage", "dividend", "investment"},
	"Insurance":      {"insurance", "premium", "policy"},
	"Subscription":   {"netflix", "spotify", "prime", "subscription", "membership"},
}

// Detect categorizes a description. The match is deterministic:
// categories are tried in taxonomy order and the first keyword hit wins.
func Detect(description string) string {
	desc := strings.ToLower(description)
	if desc == "" {
		return Fallback
	}

	for _, cat := range Taxonomy {
		for _, kw := range keywords[cat] {
			if strings.Contains(desc, kw) {
				return cat
			}
		}
	}
	return Fallback
}

// Valid reports whether a category belongs to the taxonomy.
func Valid(category string) bool {
	for _, cat := range Taxonomy {
		if cat == category {
			return true
		}
	}
	return false
}

// Normalize maps loose user input ("food", "FOOD & dining") onto the
// canonical taxonomy entry, falling back to keyword detection.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Fallback
	}

	for _, cat := range Taxonomy {
		if strings.EqualFold(cat, trimmed) {
			return cat
		}
	}
	return Detect(trimmed)
}
