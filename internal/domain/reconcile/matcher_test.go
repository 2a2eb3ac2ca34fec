package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/engine/internal/domain/ledger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(id string, amount float64, date time.Time, merchantKey string) ledger.Transaction {
	return ledger.Transaction{ID: id, Amount: amount, Date: date, MerchantKey: merchantKey}
}

func order(id string, total float64, date time.Time, merchantKey string) ledger.Order {
	return ledger.Order{ID: id, Total: total, Date: date, MerchantKey: merchantKey}
}

func TestScore_PerfectMatch(t *testing.T) {
	d := day(2024, time.May, 10)

	score := Score(tx("t1", 127.43, d, "AMAZON"), order("o1", 127.43, d, "AMAZON"))

	assert.Equal(t, 1.0, score)
}

func TestScore_AmountBands(t *testing.T) {
	d := day(2024, time.May, 10)
	base := order("o1", 100.00, d.AddDate(0, 0, 10), "") // date and merchant contribute 0

	tests := []struct {
		name   string
		amount float64
		want   float64
	}{
		{"near exact", 100.005, 0.50},
		{"within a dollar", 100.50, 0.30},
		{"within five dollars", 104.00, 0.10},
		{"too far", 106.00, 0.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tx("t1", tt.amount, d, ""), base), 1e-9)
		})
	}
}

func TestScore_DateBands(t *testing.T) {
	d := day(2024, time.May, 10)
	base := order("o1", 500.00, d, "") // amount 100 off, merchant empty

	tests := []struct {
		name string
		date time.Time
		want float64
	}{
		{"same day", d, 0.30},
		{"one day", d.AddDate(0, 0, 1), 0.25},
		{"three days", d.AddDate(0, 0, -3), 0.15},
		{"seven days", d.AddDate(0, 0, 7), 0.05},
		{"eight days", d.AddDate(0, 0, 8), 0.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tx("t1", 100.00, tt.date, ""), base), 1e-9)
		})
	}
}

func TestScore_MerchantBands(t *testing.T) {
	d := day(2024, time.May, 10)
	farDate := d.AddDate(0, 0, 30)

	t.Run("exact key", func(t *testing.T) {
		s := Score(tx("t1", 100.00, farDate, "WALMART"), order("o1", 500.00, d, "WALMART"))
		assert.InDelta(t, 0.20, s, 1e-9)
	})

	t.Run("containment", func(t *testing.T) {
		s := Score(tx("t1", 100.00, farDate, "WALMART STORE"), order("o1", 500.00, d, "WALMART"))
		assert.InDelta(t, 0.15, s, 1e-9)
	})

	t.Run("fuzzy similarity", func(t *testing.T) {
		s := Score(tx("t1", 100.00, farDate, "WALMART"), order("o1", 500.00, d, "WAL-MART"))
		assert.InDelta(t, 0.10, s, 1e-9)
	})

	t.Run("unrelated", func(t *testing.T) {
		s := Score(tx("t1", 100.00, farDate, "WALMART"), order("o1", 500.00, d, "QQ"))
		assert.InDelta(t, 0.00, s, 1e-9)
	})

	t.Run("falls back to raw merchant name", func(t *testing.T) {
		bankTx := ledger.Transaction{ID: "t1", Amount: 100.00, Date: farDate, MerchantName: "WALMART #1234"}
		o := ledger.Order{ID: "o1", Total: 500.00, Date: d, Merchant: "Walmart"}
		assert.InDelta(t, 0.20, Score(bankTx, o), 1e-9)
	})

	t.Run("empty keys score nothing", func(t *testing.T) {
		s := Score(tx("t1", 100.00, farDate, ""), order("o1", 500.00, d, "WALMART"))
		assert.InDelta(t, 0.00, s, 1e-9)
	})
}

func TestMatch_AutoCommitAtThreshold(t *testing.T) {
	// 0.30 (amount within a dollar) + 0.30 (same day) + 0.20 (exact
	// merchant) = 0.80, exactly the auto-commit threshold.
	d := day(2024, time.May, 10)
	txs := []ledger.Transaction{tx("t1", 127.45, d, "AMAZON")}
	orders := []ledger.Order{order("o1", 127.43, d, "AMAZON")}

	result := Match(txs, orders)

	require.Len(t, result.AutoMatched, 1)
	assert.Empty(t, result.NeedsReview)
	assert.Equal(t, "t1", result.AutoMatched[0].TransactionID)
	assert.Equal(t, "o1", result.AutoMatched[0].OrderID)
	assert.InDelta(t, 0.80, result.AutoMatched[0].Score, 1e-9)
	assert.Equal(t, 1, result.MatchesFound)
	assert.Equal(t, 1, result.UnmatchedTransactions)
	assert.Equal(t, 1, result.UnmatchedOrders)
}

func TestMatch_MediumConfidenceNeedsReview(t *testing.T) {
	// 0.50 (exact amount) + 0.15 (three days) = 0.65: candidate, but
	// below auto-commit.
	d := day(2024, time.May, 10)
	txs := []ledger.Transaction{tx("t1", 88.00, d, "ABCDEFG")}
	orders := []ledger.Order{order("o1", 88.00, d.AddDate(0, 0, 3), "ZYXWVUT")}

	result := Match(txs, orders)

	assert.Empty(t, result.AutoMatched)
	require.Len(t, result.NeedsReview, 1)
	assert.InDelta(t, 0.65, result.NeedsReview[0].Score, 1e-9)
}

func TestMatch_BelowThresholdIgnored(t *testing.T) {
	d := day(2024, time.May, 10)

	t.Run("weak signals", func(t *testing.T) {
		// 0.10 (amount within five dollars) + 0.30 (same day) = 0.40.
		txs := []ledger.Transaction{tx("t1", 96.00, d, "ABCDEFG")}
		orders := []ledger.Order{order("o1", 100.00, d, "ZYXWVUT")}

		result := Match(txs, orders)

		assert.Empty(t, result.AutoMatched)
		assert.Empty(t, result.NeedsReview)
		assert.Equal(t, 0, result.MatchesFound)
	})

	t.Run("just under the floor", func(t *testing.T) {
		// 0.50 (exact amount) + 0.05 (seven days) = 0.55: neither
		// committed nor queued.
		txs := []ledger.Transaction{tx("t1", 88.00, d, "ABCDEFG")}
		orders := []ledger.Order{order("o1", 88.00, d.AddDate(0, 0, 7), "ZYXWVUT")}

		result := Match(txs, orders)

		assert.Empty(t, result.AutoMatched)
		assert.Empty(t, result.NeedsReview)
	})
}

func TestMatch_FirstListedOrderWinsTies(t *testing.T) {
	// Two orders score identically; the earlier one in the fixed order
	// must win because comparison is strictly greater-than.
	d := day(2024, time.May, 10)
	txs := []ledger.Transaction{tx("t1", 50.00, d, "TARGET")}
	orders := []ledger.Order{
		order("o1", 50.00, d, "TARGET"),
		order("o2", 50.00, d, "TARGET"),
	}

	result := Match(txs, orders)

	require.Len(t, result.AutoMatched, 1)
	assert.Equal(t, "o1", result.AutoMatched[0].OrderID)
}

func TestMatch_ConsumedOrderNotReused(t *testing.T) {
	d := day(2024, time.May, 10)
	txs := []ledger.Transaction{
		tx("t1", 50.00, d, "TARGET"),
		tx("t2", 50.00, d, "TARGET"),
	}
	orders := []ledger.Order{order("o1", 50.00, d, "TARGET")}

	result := Match(txs, orders)

	require.Len(t, result.AutoMatched, 1)
	assert.Equal(t, "t1", result.AutoMatched[0].TransactionID)
	assert.Equal(t, 1, result.MatchesFound)
}

func TestMatch_NoBacktracking(t *testing.T) {
	// t1 takes o1 greedily even though t2 would have scored higher
	// against it; t2 is left with nothing.
	d := day(2024, time.May, 10)
	txs := []ledger.Transaction{
		tx("t1", 50.40, d, "ABCDEFG"),  // vs o1: 0.30 + 0.30 + 0.20 = 0.80
		tx("t2", 50.00, d, "ABCDEFG"), // vs o1: 0.50 + 0.30 + 0.20 = 1.00
	}
	orders := []ledger.Order{order("o1", 50.00, d, "ABCDEFG")}

	result := Match(txs, orders)

	require.Len(t, result.AutoMatched, 1)
	assert.Equal(t, "t1", result.AutoMatched[0].TransactionID)
}

func TestMatch_EmptyInputs(t *testing.T) {
	result := Match(nil, nil)

	assert.Equal(t, 0, result.UnmatchedTransactions)
	assert.Equal(t, 0, result.UnmatchedOrders)
	assert.Equal(t, 0, result.MatchesFound)
	assert.Empty(t, result.AutoMatched)
	assert.Empty(t, result.NeedsReview)
}

func TestSimilarText(t *testing.T) {
	assert.Equal(t, 0, similarText("", "ABC"))
	assert.Equal(t, 3, similarText("ABC", "ABC"))
	assert.Equal(t, 7, similarText("WALMART", "WAL-MART"))
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("TARGET", "TARGET"))
	assert.InDelta(t, 0.875, similarityRatio("WALMART", "WAL-MART"), 1e-9)
	assert.Equal(t, 0.0, similarityRatio("", ""))
	assert.Less(t, similarityRatio("WALMART", "QQ"), 0.6)
}
