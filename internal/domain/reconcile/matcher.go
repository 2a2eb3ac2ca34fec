// Package reconcile links bank transactions to independently-sourced
// purchase orders (parsed email receipts and the like). A vague
// "$127.43 AMZN MKTP US" becomes a fully itemized purchase once the
// matcher pairs it with the right order.
//
// Matching is a weighted score over amount, date and merchant
// similarity. Amount and date dominate on purpose: bank descriptors
// are often garbled, so the merchant term is a bonus signal, never a
// requirement.
package reconcile

import (
	"math"
	"strings"
	"time"

	"github.com/ledgerlens/engine/internal/domain/ledger"
	"github.com/ledgerlens/engine/internal/domain/merchant"
)

const (
	// MatchThreshold is the floor below which a pair is not a
	// candidate at all.
	MatchThreshold = 0.6

	// CommitThreshold is the score at which a candidate is linked
	// automatically, inclusive. Candidates between the two thresholds
	// are queued for review instead.
	CommitThreshold = 0.8
)

// Candidate is a scored transaction/order pair.
type Candidate struct {
	TransactionID string  `json:"transaction_id"`
	OrderID       string  `json:"order_id"`
	Score         float64 `json:"score"`
}

// Result is the outcome of one matching pass.
type Result struct {
	UnmatchedTransactions int         `json:"total_unmatched_transactions"`
	UnmatchedOrders       int         `json:"total_unmatched_orders"`
	MatchesFound          int         `json:"matches_found"`
	AutoMatched           []Candidate `json:"auto_matched"`
	NeedsReview           []Candidate `json:"needs_review"`
}

// Match pairs unreconciled transactions with unreconciled orders.
//
// Both slices must arrive in their fixed newest-first order (date
// descending, id ascending on equal dates); the greedy pass depends on
// it. Each transaction takes the highest-scoring order not yet
// consumed, comparing with strict > so the earlier candidate wins a
// tie. There is no backtracking: once an order is taken it is gone,
// even if a later transaction would have scored higher against it.
func Match(txs []ledger.Transaction, orders []ledger.Order) Result {
	result := Result{
		UnmatchedTransactions: len(txs),
		UnmatchedOrders:       len(orders),
	}

	consumed := make(map[string]bool, len(orders))
	for _, tx := range txs {
		var best *ledger.Order
		bestScore := 0.0

		for i := range orders {
			if consumed[orders[i].ID] {
				continue
			}
			score := Score(tx, orders[i])
			if score > bestScore && score >= MatchThreshold {
				best = &orders[i]
				bestScore = score
			}
		}

		if best == nil {
			continue
		}
		consumed[best.ID] = true

		c := Candidate{TransactionID: tx.ID, OrderID: best.ID, Score: bestScore}
		if bestScore >= CommitThreshold {
			result.AutoMatched = append(result.AutoMatched, c)
		} else {
			result.NeedsReview = append(result.NeedsReview, c)
		}
	}

	result.MatchesFound = len(result.AutoMatched) + len(result.NeedsReview)
	return result
}

// Score rates how likely a transaction and an order describe the same
// purchase, in [0,1].
func Score(tx ledger.Transaction, order ledger.Order) float64 {
	score := 0.0

	amountDiff := math.Abs(tx.Amount - order.Total)
	switch {
	case amountDiff < 0.01:
		score += 0.50
	case amountDiff < 1.00:
		score += 0.30
	case amountDiff < 5.00:
		score += 0.10
	}

	daysApart := daysBetween(tx.Date, order.Date)
	switch {
	case daysApart == 0:
		score += 0.30
	case daysApart == 1:
		score += 0.25
	case daysApart <= 3:
		score += 0.15
	case daysApart <= 7:
		score += 0.05
	}

	score += merchantScore(tx, order)

	return math.Min(score, 1.0)
}

// merchantScore compares the canonicalized merchant strings: exact
// match, one containing the other, then fuzzy similarity.
func merchantScore(tx ledger.Transaction, order ledger.Order) float64 {
	txKey := tx.MerchantKey
	if txKey == "" {
		txKey = merchant.Key(tx.MerchantName)
	}
	orderKey := order.MerchantKey
	if orderKey == "" {
		orderKey = merchant.Key(order.Merchant)
	}
	if txKey == "" || orderKey == "" {
		return 0
	}

	switch {
	case txKey == orderKey:
		return 0.20
	case strings.Contains(txKey, orderKey) || strings.Contains(orderKey, txKey):
		return 0.15
	case similarityRatio(txKey, orderKey) > 0.6:
		return 0.10
	}
	return 0
}

func daysBetween(a, b time.Time) int {
	return int(math.Abs(math.Round(b.Sub(a).Hours() / 24)))
}
