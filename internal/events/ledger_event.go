package events

const (
	ActionAdded   = "added"
	ActionDeleted = "deleted"
)

// LedgerEvent describes one mutation of a user's expense ledger. Events
// feed the analytics pipeline; the Postgres ledger stays authoritative.
type LedgerEvent struct {
	EntryID     string
	UserID      string
	Action      string
	Category    string
	Description string
	Debit       float64
	Credit      float64
	Source      string
	OccurredAt  int64
}
