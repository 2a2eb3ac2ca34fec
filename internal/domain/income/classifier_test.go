package income

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/engine/internal/domain/ledger"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func deposit(id, merchant string, amount float64, date time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:           id,
		UserID:       "user1",
		MerchantName: merchant,
		Amount:       -amount, // inflows are negative
		Date:         date,
	}
}

func sourceByLabel(t *testing.T, report Report, label string) Source {
	t.Helper()
	for _, s := range report.Sources {
		if s.Label == label {
			return s
		}
	}
	t.Fatalf("no source with label %q", label)
	return Source{}
}

func TestAnalyze_MonthlySalary(t *testing.T) {
	txs := []ledger.Transaction{
		deposit("t1", "ACME CORP PAYROLL", 100.00, day(2024, time.March, 1)),
		deposit("t2", "ACME CORP PAYROLL", 100.00, day(2024, time.April, 1)),
		deposit("t3", "ACME CORP PAYROLL", 100.00, day(2024, time.May, 1)),
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 1)
	s := report.Sources[0]
	assert.Equal(t, TypeEmployment, s.Type)
	assert.Equal(t, "ACME CORP", s.Label)
	assert.Equal(t, ledger.FrequencyMonthly, s.Frequency)
	assert.True(t, s.IsRegular)
	assert.Equal(t, 100.00, s.AvgAmount)
	assert.Equal(t, 100.00, s.MonthlyEquivalent)
	assert.Equal(t, ClassificationPrimary, s.Classification)
	assert.Equal(t, 100.00, report.ReliableMonthly)
	assert.Equal(t, 100.00, report.PrimaryMonthly)
	assert.Equal(t, 0.00, report.ExtraMonthly)
}

func TestAnalyze_WeeklyEquivalent(t *testing.T) {
	txs := make([]ledger.Transaction, 0, 6)
	start := day(2024, time.April, 5)
	for i := 0; i < 6; i++ {
		txs = append(txs, deposit("t", "SIDE GIG PAYROLL", 50.00, start.AddDate(0, 0, i*7)))
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, ledger.FrequencyWeekly, report.Sources[0].Frequency)
	assert.Equal(t, 216.50, report.Sources[0].MonthlyEquivalent) // 50 * 4.33
}

func TestAnalyze_BiWeeklyEquivalent(t *testing.T) {
	txs := []ledger.Transaction{
		deposit("t1", "ACME CORP DIRECT DEP", 2000.00, day(2024, time.April, 5)),
		deposit("t2", "ACME CORP DIRECT DEP", 2000.00, day(2024, time.April, 19)),
		deposit("t3", "ACME CORP DIRECT DEP", 2000.00, day(2024, time.May, 3)),
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, ledger.FrequencyBiWeekly, report.Sources[0].Frequency)
	assert.Equal(t, 4340.00, report.Sources[0].MonthlyEquivalent) // 2000 * 2.17
}

func TestAnalyze_PayrollVariantsGroupTogether(t *testing.T) {
	// Different payroll suffixes for the same employer land in one group.
	txs := []ledger.Transaction{
		deposit("t1", "ACME CORP DIRECT DEP 123", 1500.00, day(2024, time.April, 1)),
		deposit("t2", "ACME CORP PAYROLL", 1500.00, day(2024, time.May, 1)),
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, "ACME CORP", report.Sources[0].Label)
	assert.Equal(t, 2, report.Sources[0].Occurrences)
}

func TestAnalyze_TransfersListedButExcluded(t *testing.T) {
	txs := []ledger.Transaction{
		deposit("t1", "ACME CORP PAYROLL", 3000.00, day(2024, time.April, 1)),
		deposit("t2", "ACME CORP PAYROLL", 3000.00, day(2024, time.May, 1)),
		deposit("t3", "ZELLE PAYMENT FROM JOHN", 500.00, day(2024, time.April, 10)),
		deposit("t4", "ZELLE PAYMENT FROM ALICE", 250.00, day(2024, time.May, 12)),
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 2)
	transfer := sourceByLabel(t, report, "Peer Transfers (Zelle)")
	assert.Equal(t, TypeTransfer, transfer.Type)
	assert.Equal(t, 2, transfer.Occurrences)

	// Transfers appear in the list but never in the money aggregates.
	assert.Equal(t, 3000.00, report.TotalMonthlyAvg)
	assert.Equal(t, 3000.00, report.PrimaryMonthly)
	assert.Equal(t, 0.00, report.ExtraMonthly)
}

func TestAnalyze_SingleOccurrenceIsExtra(t *testing.T) {
	txs := []ledger.Transaction{
		deposit("t1", "STATE TAX REFUND", 800.00, day(2024, time.April, 20)),
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 1)
	s := report.Sources[0]
	assert.Empty(t, s.Frequency)
	assert.False(t, s.IsRegular)
	assert.Equal(t, ClassificationExtra, s.Classification)
	// Spread over the elapsed window: 800 / 3 months.
	assert.Equal(t, 266.67, s.MonthlyEquivalent)
	assert.Equal(t, 0.00, report.ReliableMonthly)
}

func TestAnalyze_CategoryTablesWin(t *testing.T) {
	tx := deposit("t1", "SOME DEPOSIT", 100.00, day(2024, time.April, 1))
	tx.PlaidDetailedCategory = "INCOME_WAGES"
	tx2 := deposit("t2", "SOME DEPOSIT", 100.00, day(2024, time.May, 1))
	tx2.PlaidDetailedCategory = "INCOME_WAGES"

	report := Analyze([]ledger.Transaction{tx, tx2}, 3, nil, testNow)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, TypeEmployment, report.Sources[0].Type)
}

func TestClassifyType_PriorityChain(t *testing.T) {
	tests := []struct {
		name string
		tx   ledger.Transaction
		want Type
	}{
		{
			"detailed category beats keywords",
			ledger.Transaction{MerchantName: "ZELLE FROM BOSS", PlaidDetailedCategory: "INCOME_WAGES"},
			TypeEmployment,
		},
		{
			"primary category fallback",
			ledger.Transaction{MerchantName: "SOMETHING", PlaidCategory: "TRANSFER_IN"},
			TypeTransfer,
		},
		{
			"user category beats ai category",
			ledger.Transaction{MerchantName: "X", AICategory: "Interest Income", UserCategory: "Contractor Income"},
			TypeContractor,
		},
		{
			"payroll keyword",
			ledger.Transaction{MerchantName: "GLOBEX PAYROLL 992"},
			TypeEmployment,
		},
		{
			"peer app keyword",
			ledger.Transaction{MerchantName: "VENMO CASHOUT"},
			TypeTransfer,
		},
		{
			"interest keyword",
			ledger.Transaction{MerchantName: "MONTHLY INTEREST PAID"},
			TypeInterest,
		},
		{
			"nothing matches",
			ledger.Transaction{MerchantName: "GARAGE SALE"},
			TypeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyType(tt.tx))
		})
	}
}

func TestAnalyze_OverrideWinsOverAutoRule(t *testing.T) {
	txs := []ledger.Transaction{
		deposit("t1", "ETSY SHOP PAYOUT", 400.00, day(2024, time.April, 3)),
		deposit("t2", "ETSY SHOP PAYOUT", 400.00, day(2024, time.May, 3)),
	}
	overrides := map[string]Classification{
		OverrideKey(TypeOther, "ETSY SHOP PAYOUT"): ClassificationPrimary,
	}

	report := Analyze(txs, 3, overrides, testNow)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, ClassificationPrimary, report.Sources[0].Classification)
	assert.Equal(t, report.Sources[0].MonthlyEquivalent, report.PrimaryMonthly)
}

func TestAnalyze_RegularContractorIsPrimary(t *testing.T) {
	var txs []ledger.Transaction
	start := day(2024, time.March, 15)
	for i := 0; i < 3; i++ {
		tx := deposit("t", "CLIENT LLC", 2500.00, start.AddDate(0, i, 0))
		tx.UserCategory = "Contractor Income"
		txs = append(txs, tx)
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 1)
	assert.Equal(t, TypeContractor, report.Sources[0].Type)
	assert.Equal(t, ClassificationPrimary, report.Sources[0].Classification)
	// Regular contractor income is dependable but not ReliableMonthly,
	// which counts employment only.
	assert.Equal(t, 0.00, report.ReliableMonthly)
}

func TestAnalyze_SortedByMonthlyEquivalentDesc(t *testing.T) {
	txs := []ledger.Transaction{
		deposit("t1", "SMALL GIG", 100.00, day(2024, time.April, 1)),
		deposit("t2", "SMALL GIG", 100.00, day(2024, time.May, 1)),
		deposit("t3", "BIG JOB PAYROLL", 5000.00, day(2024, time.April, 1)),
		deposit("t4", "BIG JOB PAYROLL", 5000.00, day(2024, time.May, 1)),
	}

	report := Analyze(txs, 3, nil, testNow)

	require.Len(t, report.Sources, 2)
	assert.Equal(t, "BIG JOB", report.Sources[0].Label)
	assert.Equal(t, "SMALL GIG", report.Sources[1].Label)
}

func TestAnalyze_SkipsOutflows(t *testing.T) {
	txs := []ledger.Transaction{
		{ID: "t1", MerchantName: "RENT", Amount: 1200.00, Date: day(2024, time.April, 1)},
	}

	report := Analyze(txs, 3, nil, testNow)

	assert.Empty(t, report.Sources)
	assert.Equal(t, 3, report.MonthsAnalyzed)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	report := Analyze(nil, 3, nil, testNow)

	assert.Empty(t, report.Sources)
	assert.Equal(t, 3, report.MonthsAnalyzed)
	assert.Equal(t, 0.00, report.TotalMonthlyAvg)
}

func TestWindowStart(t *testing.T) {
	assert.Equal(t, day(2024, time.March, 1), WindowStart(testNow, 3))
	assert.Equal(t, day(2023, time.December, 1), WindowStart(testNow, 6))
}

func TestOverrideKey(t *testing.T) {
	assert.Equal(t, "employment|ACME CORP", OverrideKey(TypeEmployment, "ACME CORP"))
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		typ  Type
		want string
	}{
		{"payroll suffix", "ACME CORP PAYROLL", TypeEmployment, "ACME CORP"},
		{"direct deposit suffix", "ACME CORP DIRECT DEP 123", TypeEmployment, "ACME CORP"},
		{"dir deposit variant", "ACME CORP DIR DEPOSIT", TypeEmployment, "ACME CORP"},
		{"reference suffix", "GLOBEX #991", TypeOther, "GLOBEX"},
		{"zelle collapses", "ZELLE PAYMENT FROM JOHN", TypeTransfer, "Peer Transfers (Zelle)"},
		{"empty falls back", "", TypeOther, "Other Income"},
		{"reduces to nothing", "#123", TypeInterest, "Interest Income"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLabel(tt.raw, tt.typ))
		})
	}
}
