package model

import "time"

// Ledger entry types. Every balance mutation is logged as one of these.
const (
	TxnTypeContactSearch   = "contact_search"
	TxnTypeContactFinder   = "contact_finder"
	TxnTypeAdminAdjustment = "admin_adjustment"
)

// Ledger entry statuses.
const (
	TxnStatusPending   = "pending"
	TxnStatusCompleted = "completed"
)

// CreditTransaction is an append-only ledger entry. Amount is signed:
// negative for debits, positive for grants.
type CreditTransaction struct {
	ID          int64          `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	Amount      int            `db:"amount" json:"amount"`
	Type        string         `db:"type" json:"type"`
	Status      string         `db:"status" json:"status"`
	Description string         `db:"description" json:"description"`
	Metadata    map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
