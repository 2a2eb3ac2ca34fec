package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ledgerlens/engine/internal/domain/ledger"
)

// Storage provides SQLite database access for the engine's records.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveTransaction inserts or replaces a transaction
func (s *Storage) SaveTransaction(tx *ledger.Transaction) error {
	query := `
	INSERT OR REPLACE INTO transactions
	(id, user_id, merchant_name, merchant_key, description, amount, transaction_date,
	 plaid_category, plaid_detailed_category, ai_category, user_category,
	 account_purpose, is_reconciled, matched_order_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		tx.ID,
		tx.UserID,
		tx.MerchantName,
		tx.MerchantKey,
		tx.Description,
		tx.Amount,
		tx.Date,
		tx.PlaidCategory,
		tx.PlaidDetailedCategory,
		tx.AICategory,
		tx.UserCategory,
		tx.AccountPurpose,
		tx.IsReconciled,
		tx.MatchedOrderID,
	)

	return err
}

const transactionColumns = `id, user_id, merchant_name, merchant_key, description, amount,
	transaction_date, plaid_category, plaid_detailed_category, ai_category,
	user_category, account_purpose, is_reconciled, matched_order_id`

// SpendingSince returns outflow transactions on or after since
func (s *Storage) SpendingSince(userID string, since time.Time) ([]ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
	FROM transactions
	WHERE user_id = ? AND amount > 0 AND transaction_date >= ?
	ORDER BY transaction_date ASC, id ASC`

	return s.queryTransactions(query, userID, since)
}

// IncomeSince returns inflow transactions on or after since
func (s *Storage) IncomeSince(userID string, since time.Time, accountPurpose string) ([]ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
	FROM transactions
	WHERE user_id = ? AND amount < 0 AND transaction_date >= ?`
	args := []interface{}{userID, since}

	if accountPurpose != "" {
		query += ` AND account_purpose = ?`
		args = append(args, accountPurpose)
	}
	query += ` ORDER BY transaction_date ASC, id ASC`

	return s.queryTransactions(query, args...)
}

// UnreconciledTransactions returns unmatched transactions newest first.
// The secondary id sort keeps the greedy reconciliation pass
// deterministic when dates collide.
func (s *Storage) UnreconciledTransactions(userID string) ([]ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
	FROM transactions
	WHERE user_id = ? AND is_reconciled = 0
	ORDER BY transaction_date DESC, id ASC`

	return s.queryTransactions(query, userID)
}

func (s *Storage) queryTransactions(query string, args ...interface{}) ([]ledger.Transaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var txs []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.MerchantName,
			&tx.MerchantKey,
			&tx.Description,
			&tx.Amount,
			&tx.Date,
			&tx.PlaidCategory,
			&tx.PlaidDetailedCategory,
			&tx.AICategory,
			&tx.UserCategory,
			&tx.AccountPurpose,
			&tx.IsReconciled,
			&tx.MatchedOrderID,
		); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// SaveOrder inserts or replaces an order and its items
func (s *Storage) SaveOrder(o *ledger.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}

	query := `
	INSERT OR REPLACE INTO orders
	(id, user_id, merchant, merchant_key, total, order_date, is_reconciled,
	 matched_transaction_id, items_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		o.ID,
		o.UserID,
		o.Merchant,
		o.MerchantKey,
		o.Total,
		o.Date,
		o.IsReconciled,
		o.MatchedTransactionID,
		string(itemsJSON),
	)

	return err
}

// UnreconciledOrders returns unmatched orders newest first
func (s *Storage) UnreconciledOrders(userID string) ([]ledger.Order, error) {
	query := `
	SELECT id, user_id, merchant, merchant_key, total, order_date, is_reconciled,
	       matched_transaction_id, items_json
	FROM orders
	WHERE user_id = ? AND is_reconciled = 0
	ORDER BY order_date DESC, id ASC`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []ledger.Order
	for rows.Next() {
		var o ledger.Order
		var itemsJSON string
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Merchant,
			&o.MerchantKey,
			&o.Total,
			&o.Date,
			&o.IsReconciled,
			&o.MatchedTransactionID,
			&itemsJSON,
		); err != nil {
			return nil, err
		}
		if itemsJSON != "" {
			_ = json.Unmarshal([]byte(itemsJSON), &o.Items)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// UpsertSubscription creates or updates the subscription keyed by
// (user_id, merchant_key). On update the user-owned fields (note) and
// the usage signal survive; everything detection computes is replaced.
func (s *Storage) UpsertSubscription(sub *ledger.Subscription) error {
	historyJSON, err := json.Marshal(sub.ChargeHistory)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO subscriptions
	(id, user_id, merchant_key, merchant_name, description, amount, frequency,
	 category, is_essential, status, last_charge_date, next_expected_date,
	 last_used_at, annual_cost, charge_count, charge_history, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, merchant_key) DO UPDATE SET
		merchant_name = excluded.merchant_name,
		description = excluded.description,
		amount = excluded.amount,
		frequency = excluded.frequency,
		category = excluded.category,
		is_essential = excluded.is_essential,
		status = excluded.status,
		last_charge_date = excluded.last_charge_date,
		next_expected_date = excluded.next_expected_date,
		annual_cost = excluded.annual_cost,
		charge_count = excluded.charge_count,
		charge_history = excluded.charge_history
	`

	_, err = s.db.Exec(query,
		sub.ID,
		sub.UserID,
		sub.MerchantKey,
		sub.MerchantName,
		sub.Description,
		sub.Amount,
		string(sub.Frequency),
		sub.Category,
		sub.IsEssential,
		string(sub.Status),
		nullTime(sub.LastChargeDate),
		nullTime(sub.NextExpectedDate),
		nullTimePtr(sub.LastUsedAt),
		sub.AnnualCost,
		sub.ChargeCount,
		string(historyJSON),
		sub.Note,
	)

	return err
}

// ListSubscriptions returns all of a user's subscriptions
func (s *Storage) ListSubscriptions(userID string) ([]ledger.Subscription, error) {
	return s.querySubscriptions(
		`WHERE user_id = ? ORDER BY annual_cost DESC, merchant_key ASC`, userID)
}

// SubscriptionsByStatus returns a user's subscriptions in the given state
func (s *Storage) SubscriptionsByStatus(userID string, status ledger.SubscriptionStatus) ([]ledger.Subscription, error) {
	return s.querySubscriptions(
		`WHERE user_id = ? AND status = ? ORDER BY merchant_key ASC`, userID, string(status))
}

func (s *Storage) querySubscriptions(where string, args ...interface{}) ([]ledger.Subscription, error) {
	query := `
	SELECT id, user_id, merchant_key, merchant_name, description, amount, frequency,
	       category, is_essential, status, last_charge_date, next_expected_date,
	       last_used_at, annual_cost, charge_count, charge_history, note
	FROM subscriptions ` + where

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var subs []ledger.Subscription
	for rows.Next() {
		var sub ledger.Subscription
		var frequency, status, historyJSON string
		var lastCharge, nextExpected, lastUsed sql.NullTime
		if err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.MerchantKey,
			&sub.MerchantName,
			&sub.Description,
			&sub.Amount,
			&frequency,
			&sub.Category,
			&sub.IsEssential,
			&status,
			&lastCharge,
			&nextExpected,
			&lastUsed,
			&sub.AnnualCost,
			&sub.ChargeCount,
			&historyJSON,
			&sub.Note,
		); err != nil {
			return nil, err
		}

		sub.Frequency = ledger.Frequency(frequency)
		sub.Status = ledger.SubscriptionStatus(status)
		if lastCharge.Valid {
			sub.LastChargeDate = lastCharge.Time
		}
		if nextExpected.Valid {
			sub.NextExpectedDate = nextExpected.Time
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			sub.LastUsedAt = &t
		}
		if historyJSON != "" {
			_ = json.Unmarshal([]byte(historyJSON), &sub.ChargeHistory)
		}

		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// UpdateSubscriptionStatus sets the lifecycle state of one subscription
func (s *Storage) UpdateSubscriptionStatus(id string, status ledger.SubscriptionStatus) error {
	res, err := s.db.Exec(`UPDATE subscriptions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("subscription %s not found", id)
	}
	return nil
}

// IncomeOverrides returns the user's "type|label" -> classification map
func (s *Storage) IncomeOverrides(userID string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT override_key, classification FROM income_overrides WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	overrides := make(map[string]string)
	for rows.Next() {
		var key, classification string
		if err := rows.Scan(&key, &classification); err != nil {
			return nil, err
		}
		overrides[key] = classification
	}

	return overrides, rows.Err()
}

// SaveIncomeOverride stores one override
func (s *Storage) SaveIncomeOverride(userID, overrideKey, classification string) error {
	_, err := s.db.Exec(`
	INSERT INTO income_overrides (user_id, override_key, classification)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id, override_key) DO UPDATE SET classification = excluded.classification`,
		userID, overrideKey, classification)
	return err
}

// ApplyMatch links a transaction and an order atomically. Both sides
// must exist and be unreconciled; otherwise nothing changes.
func (s *Storage) ApplyMatch(transactionID, orderID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Exec(`
	UPDATE transactions SET is_reconciled = 1, matched_order_id = ?
	WHERE id = ? AND is_reconciled = 0`, orderID, transactionID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		_ = tx.Rollback()
		return fmt.Errorf("transaction %s is missing or already reconciled", transactionID)
	}

	res, err = tx.Exec(`
	UPDATE orders SET is_reconciled = 1, matched_transaction_id = ?
	WHERE id = ? AND is_reconciled = 0`, transactionID, orderID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		_ = tx.Rollback()
		return fmt.Errorf("order %s is missing or already reconciled", orderID)
	}

	return tx.Commit()
}

// SaveMatchCandidate upserts a needs-review pair
func (s *Storage) SaveMatchCandidate(userID string, c MatchCandidate) error {
	_, err := s.db.Exec(`
	INSERT INTO match_candidates (transaction_id, order_id, user_id, confidence)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(transaction_id, order_id) DO UPDATE SET confidence = excluded.confidence`,
		c.TransactionID, c.OrderID, userID, c.Confidence)
	return err
}

// MatchCandidates lists a user's pending review pairs, newest first
func (s *Storage) MatchCandidates(userID string) ([]MatchCandidate, error) {
	rows, err := s.db.Query(`
	SELECT transaction_id, order_id, confidence, created_at
	FROM match_candidates
	WHERE user_id = ?
	ORDER BY created_at DESC, transaction_id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var candidates []MatchCandidate
	for rows.Next() {
		var c MatchCandidate
		if err := rows.Scan(&c.TransactionID, &c.OrderID, &c.Confidence, &c.CreatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// Users returns every user ID that has transactions
func (s *Storage) Users() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}

	return users, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
