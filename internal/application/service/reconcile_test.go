package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/engine/internal/domain/ledger"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

func TestReconcileService_CommitsHighConfidence(t *testing.T) {
	repo := storage.NewMockRepository()
	d := day(2024, time.May, 10)
	_ = repo.SaveTransaction(&ledger.Transaction{
		ID: "t1", UserID: "u1", Amount: 127.43, Date: d, MerchantKey: "AMAZON",
	})
	_ = repo.SaveOrder(&ledger.Order{
		ID: "o1", UserID: "u1", Total: 127.43, Date: d, MerchantKey: "AMAZON",
	})
	svc := NewReconcileService(repo, nil)

	result, err := svc.Reconcile("u1")

	require.NoError(t, err)
	require.Len(t, result.AutoMatched, 1)
	assert.Empty(t, result.NeedsReview)

	txs, _ := repo.UnreconciledTransactions("u1")
	assert.Empty(t, txs)
	orders, _ := repo.UnreconciledOrders("u1")
	assert.Empty(t, orders)
}

func TestReconcileService_QueuesMediumConfidence(t *testing.T) {
	repo := storage.NewMockRepository()
	d := day(2024, time.May, 10)
	// Exact amount + three days apart, unrelated merchants: 0.65.
	_ = repo.SaveTransaction(&ledger.Transaction{
		ID: "t1", UserID: "u1", Amount: 88.00, Date: d, MerchantKey: "ABCDEFG",
	})
	_ = repo.SaveOrder(&ledger.Order{
		ID: "o1", UserID: "u1", Total: 88.00, Date: d.AddDate(0, 0, 3), MerchantKey: "ZYXWVUT",
	})
	svc := NewReconcileService(repo, nil)

	result, err := svc.Reconcile("u1")

	require.NoError(t, err)
	assert.Empty(t, result.AutoMatched)
	require.Len(t, result.NeedsReview, 1)

	// The pair is stored for review and both sides stay unreconciled.
	candidates, _ := repo.MatchCandidates("u1")
	require.Len(t, candidates, 1)
	assert.Equal(t, "t1", candidates[0].TransactionID)
	assert.InDelta(t, 0.65, candidates[0].Confidence, 1e-9)

	txs, _ := repo.UnreconciledTransactions("u1")
	assert.Len(t, txs, 1)
}

func TestReconcileService_FailedCommitFallsBackToReview(t *testing.T) {
	repo := storage.NewMockRepository()
	d := day(2024, time.May, 10)
	_ = repo.SaveTransaction(&ledger.Transaction{
		ID: "t1", UserID: "u1", Amount: 127.43, Date: d, MerchantKey: "AMAZON",
	})
	_ = repo.SaveOrder(&ledger.Order{
		ID: "o1", UserID: "u1", Total: 127.43, Date: d, MerchantKey: "AMAZON",
	})
	repo.FailApplyMatch = true
	svc := NewReconcileService(repo, nil)

	result, err := svc.Reconcile("u1")

	require.NoError(t, err)
	assert.Empty(t, result.AutoMatched)
	require.Len(t, result.NeedsReview, 1)

	candidates, _ := repo.MatchCandidates("u1")
	require.Len(t, candidates, 1)
	assert.Equal(t, "o1", candidates[0].OrderID)
}

func TestReconcileService_Idempotent(t *testing.T) {
	repo := storage.NewMockRepository()
	d := day(2024, time.May, 10)
	_ = repo.SaveTransaction(&ledger.Transaction{
		ID: "t1", UserID: "u1", Amount: 50.00, Date: d, MerchantKey: "TARGET",
	})
	_ = repo.SaveOrder(&ledger.Order{
		ID: "o1", UserID: "u1", Total: 50.00, Date: d, MerchantKey: "TARGET",
	})
	svc := NewReconcileService(repo, nil)

	first, err := svc.Reconcile("u1")
	require.NoError(t, err)
	require.Len(t, first.AutoMatched, 1)

	// Everything is reconciled; a second pass finds nothing to do.
	second, err := svc.Reconcile("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.MatchesFound)
	assert.Equal(t, 0, second.UnmatchedTransactions)
}

func TestReconcileService_NothingToReconcile(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := NewReconcileService(repo, nil)

	result, err := svc.Reconcile("u1")

	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchesFound)
}
