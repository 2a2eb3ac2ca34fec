package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ledgerlens/engine/internal/domain/ledger"
)

// MockRepository is an in-memory Repository for tests.
type MockRepository struct {
	mu sync.Mutex

	Transactions []ledger.Transaction
	Orders       []ledger.Order
	Subs         []ledger.Subscription
	Overrides    map[string]map[string]string // userID -> key -> classification
	Candidates   map[string][]MatchCandidate  // userID -> candidates

	// FailApplyMatch forces ApplyMatch to return an error.
	FailApplyMatch bool
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates an empty in-memory repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		Overrides:  make(map[string]map[string]string),
		Candidates: make(map[string][]MatchCandidate),
	}
}

func (m *MockRepository) Close() error { return nil }

func (m *MockRepository) SaveTransaction(tx *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Transactions {
		if m.Transactions[i].ID == tx.ID {
			m.Transactions[i] = *tx
			return nil
		}
	}
	m.Transactions = append(m.Transactions, *tx)
	return nil
}

func (m *MockRepository) SpendingSince(userID string, since time.Time) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Transaction
	for _, tx := range m.Transactions {
		if tx.UserID == userID && tx.Amount > 0 && !tx.Date.Before(since) {
			out = append(out, tx)
		}
	}
	sortTransactionsAsc(out)
	return out, nil
}

func (m *MockRepository) IncomeSince(userID string, since time.Time, accountPurpose string) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Transaction
	for _, tx := range m.Transactions {
		if tx.UserID != userID || tx.Amount >= 0 || tx.Date.Before(since) {
			continue
		}
		if accountPurpose != "" && tx.AccountPurpose != accountPurpose {
			continue
		}
		out = append(out, tx)
	}
	sortTransactionsAsc(out)
	return out, nil
}

func (m *MockRepository) UnreconciledTransactions(userID string) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Transaction
	for _, tx := range m.Transactions {
		if tx.UserID == userID && !tx.IsReconciled {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) SaveOrder(o *ledger.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Orders {
		if m.Orders[i].ID == o.ID {
			m.Orders[i] = *o
			return nil
		}
	}
	m.Orders = append(m.Orders, *o)
	return nil
}

func (m *MockRepository) UnreconciledOrders(userID string) ([]ledger.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Order
	for _, o := range m.Orders {
		if o.UserID == userID && !o.IsReconciled {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) UpsertSubscription(sub *ledger.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Subs {
		if m.Subs[i].UserID == sub.UserID && m.Subs[i].MerchantKey == sub.MerchantKey {
			// Preserve identity, note and usage signal on update.
			updated := *sub
			updated.ID = m.Subs[i].ID
			updated.Note = m.Subs[i].Note
			updated.LastUsedAt = m.Subs[i].LastUsedAt
			m.Subs[i] = updated
			return nil
		}
	}
	m.Subs = append(m.Subs, *sub)
	return nil
}

func (m *MockRepository) ListSubscriptions(userID string) ([]ledger.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Subscription
	for _, sub := range m.Subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *MockRepository) SubscriptionsByStatus(userID string, status ledger.SubscriptionStatus) ([]ledger.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Subscription
	for _, sub := range m.Subs {
		if sub.UserID == userID && sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *MockRepository) UpdateSubscriptionStatus(id string, status ledger.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Subs {
		if m.Subs[i].ID == id {
			m.Subs[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("subscription %s not found", id)
}

func (m *MockRepository) IncomeOverrides(userID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.Overrides[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *MockRepository) SaveIncomeOverride(userID, overrideKey, classification string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Overrides[userID] == nil {
		m.Overrides[userID] = make(map[string]string)
	}
	m.Overrides[userID][overrideKey] = classification
	return nil
}

func (m *MockRepository) ApplyMatch(transactionID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailApplyMatch {
		return fmt.Errorf("apply match failed")
	}

	txIdx, orderIdx := -1, -1
	for i := range m.Transactions {
		if m.Transactions[i].ID == transactionID && !m.Transactions[i].IsReconciled {
			txIdx = i
			break
		}
	}
	for i := range m.Orders {
		if m.Orders[i].ID == orderID && !m.Orders[i].IsReconciled {
			orderIdx = i
			break
		}
	}
	// All-or-nothing: neither side changes unless both qualify.
	if txIdx < 0 || orderIdx < 0 {
		return fmt.Errorf("match %s/%s not applicable", transactionID, orderID)
	}

	m.Transactions[txIdx].IsReconciled = true
	m.Transactions[txIdx].MatchedOrderID = orderID
	m.Orders[orderIdx].IsReconciled = true
	m.Orders[orderIdx].MatchedTransactionID = transactionID
	return nil
}

func (m *MockRepository) SaveMatchCandidate(userID string, c MatchCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.Candidates[userID] {
		if existing.TransactionID == c.TransactionID && existing.OrderID == c.OrderID {
			m.Candidates[userID][i] = c
			return nil
		}
	}
	m.Candidates[userID] = append(m.Candidates[userID], c)
	return nil
}

func (m *MockRepository) MatchCandidates(userID string) ([]MatchCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MatchCandidate{}, m.Candidates[userID]...), nil
}

func (m *MockRepository) Users() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var users []string
	for _, tx := range m.Transactions {
		if !seen[tx.UserID] {
			seen[tx.UserID] = true
			users = append(users, tx.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

func sortTransactionsAsc(txs []ledger.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}
