package service

import (
	"log/slog"

	"github.com/ledgerlens/engine/internal/domain/reconcile"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// ReconcileStores is the storage surface reconciliation needs.
type ReconcileStores interface {
	storage.TransactionStore
	storage.OrderStore
	storage.MatchStore
}

// ReconcileService matches a user's bank transactions to stored orders.
type ReconcileService struct {
	store  ReconcileStores
	logger *slog.Logger
}

// NewReconcileService creates a reconciliation service.
func NewReconcileService(store ReconcileStores, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{store: store, logger: logger}
}

// Reconcile runs one matching pass over the user's unreconciled
// transactions and orders. High-confidence pairs are committed
// atomically; medium-confidence pairs land in the review queue.
func (s *ReconcileService) Reconcile(userID string) (*reconcile.Result, error) {
	txs, err := s.store.UnreconciledTransactions(userID)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.UnreconciledOrders(userID)
	if err != nil {
		return nil, err
	}

	result := reconcile.Match(txs, orders)

	committed := result.AutoMatched[:0]
	for _, c := range result.AutoMatched {
		if err := s.store.ApplyMatch(c.TransactionID, c.OrderID); err != nil {
			// A failed commit leaves both sides untouched; surface the
			// pair for review instead of dropping it.
			s.logger.Warn("match commit failed",
				"user", userID,
				"transaction", c.TransactionID,
				"order", c.OrderID,
				"error", err,
			)
			result.NeedsReview = append(result.NeedsReview, c)
			continue
		}
		committed = append(committed, c)
	}
	result.AutoMatched = committed

	for _, c := range result.NeedsReview {
		if err := s.store.SaveMatchCandidate(userID, storage.MatchCandidate{
			TransactionID: c.TransactionID,
			OrderID:       c.OrderID,
			Confidence:    c.Score,
		}); err != nil {
			return nil, err
		}
	}

	s.logger.Info("reconciliation complete",
		"user", userID,
		"transactions", result.UnmatchedTransactions,
		"orders", result.UnmatchedOrders,
		"matches", result.MatchesFound,
		"auto_reconciled", len(result.AutoMatched),
		"needs_review", len(result.NeedsReview),
	)
	return &result, nil
}
