package storage

import (
	"time"

	"github.com/ledgerlens/engine/internal/domain/ledger"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL,
// etc.) and makes testing with mocks straightforward.
type Repository interface {
	TransactionStore
	OrderStore
	SubscriptionStore
	OverrideStore
	MatchStore

	// Users returns every user ID that has transactions, for batch runs.
	Users() ([]string, error)

	Close() error
}

// TransactionStore handles bank transaction operations
type TransactionStore interface {
	// SaveTransaction inserts or replaces a transaction
	SaveTransaction(tx *ledger.Transaction) error

	// SpendingSince returns outflow transactions (amount > 0) on or
	// after since, ordered by date ascending
	SpendingSince(userID string, since time.Time) ([]ledger.Transaction, error)

	// IncomeSince returns inflow transactions (amount < 0) on or after
	// since, ordered by date ascending. accountPurpose filters to
	// "personal" or "business" accounts; "" means all.
	IncomeSince(userID string, since time.Time, accountPurpose string) ([]ledger.Transaction, error)

	// UnreconciledTransactions returns unmatched transactions, ordered
	// date descending then id ascending. The reconciliation pass
	// depends on this order being stable.
	UnreconciledTransactions(userID string) ([]ledger.Transaction, error)
}

// OrderStore handles external purchase record operations
type OrderStore interface {
	// SaveOrder inserts or replaces an order and its items
	SaveOrder(o *ledger.Order) error

	// UnreconciledOrders returns unmatched orders, ordered date
	// descending then id ascending
	UnreconciledOrders(userID string) ([]ledger.Order, error)
}

// SubscriptionStore handles detected subscription records
type SubscriptionStore interface {
	// UpsertSubscription creates or updates the subscription keyed by
	// (user_id, merchant_key). Repeated upserts with the same key
	// update the existing row; user note and usage signal survive.
	UpsertSubscription(sub *ledger.Subscription) error

	// ListSubscriptions returns all of a user's subscriptions
	ListSubscriptions(userID string) ([]ledger.Subscription, error)

	// SubscriptionsByStatus returns a user's subscriptions in the
	// given lifecycle state
	SubscriptionsByStatus(userID string, status ledger.SubscriptionStatus) ([]ledger.Subscription, error)

	// UpdateSubscriptionStatus sets the lifecycle state of one subscription
	UpdateSubscriptionStatus(id string, status ledger.SubscriptionStatus) error
}

// OverrideStore reads user classification overrides. Writes are owned
// by the preference surface, not this engine; SaveIncomeOverride
// exists for that surface and for tests.
type OverrideStore interface {
	// IncomeOverrides returns the user's "type|label" -> classification map
	IncomeOverrides(userID string) (map[string]string, error)

	// SaveIncomeOverride stores one override
	SaveIncomeOverride(userID, overrideKey, classification string) error
}

// MatchCandidate is a stored medium-confidence reconciliation pair
// awaiting review.
type MatchCandidate struct {
	TransactionID string    `json:"transaction_id"`
	OrderID       string    `json:"order_id"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// MatchStore handles reconciliation links and the review queue
type MatchStore interface {
	// ApplyMatch links a transaction and an order atomically: both
	// link columns and both reconciled flags change in one database
	// transaction, or none do.
	ApplyMatch(transactionID, orderID string) error

	// SaveMatchCandidate upserts a needs-review pair keyed by
	// (transaction_id, order_id)
	SaveMatchCandidate(userID string, c MatchCandidate) error

	// MatchCandidates lists a user's pending review pairs, newest first
	MatchCandidates(userID string) ([]MatchCandidate, error)
}
