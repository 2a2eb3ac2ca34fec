package service

import (
	"log/slog"
	"time"

	"github.com/ledgerlens/engine/internal/domain/income"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// ViewMode selects which accounts an income analysis covers.
type ViewMode string

const (
	ViewAll      ViewMode = "all"
	ViewPersonal ViewMode = "personal"
	ViewBusiness ViewMode = "business"
)

// IncomeStores is the storage surface income analysis needs.
type IncomeStores interface {
	storage.TransactionStore
	storage.OverrideStore
}

// IncomeService classifies a user's income sources.
type IncomeService struct {
	store             IncomeStores
	logger            *slog.Logger
	defaultMonthsBack int
	now               func() time.Time
}

// NewIncomeService creates an income analysis service. defaultMonthsBack
// is the window used when a caller passes zero.
func NewIncomeService(store IncomeStores, logger *slog.Logger, defaultMonthsBack int) *IncomeService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultMonthsBack <= 0 {
		defaultMonthsBack = 3
	}
	return &IncomeService{store: store, logger: logger, defaultMonthsBack: defaultMonthsBack, now: time.Now}
}

// WithClock replaces the service's reference clock. For tests.
func (s *IncomeService) WithClock(now func() time.Time) *IncomeService {
	s.now = now
	return s
}

// Analyze recomputes the user's income sources over the trailing
// window. Results are derived, not persisted: the live transaction set
// plus the override map fully determine the report.
func (s *IncomeService) Analyze(userID string, view ViewMode, monthsBack int) (*income.Report, error) {
	if monthsBack <= 0 {
		monthsBack = s.defaultMonthsBack
	}
	now := s.now()

	txs, err := s.store.IncomeSince(userID, income.WindowStart(now, monthsBack), accountPurpose(view))
	if err != nil {
		return nil, err
	}

	stored, err := s.store.IncomeOverrides(userID)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]income.Classification, len(stored))
	for k, v := range stored {
		overrides[k] = income.Classification(v)
	}

	report := income.Analyze(txs, monthsBack, overrides, now)

	s.logger.Info("income analysis complete",
		"user", userID,
		"sources", len(report.Sources),
		"reliable_monthly", report.ReliableMonthly,
		"months_analyzed", report.MonthsAnalyzed,
	)
	return &report, nil
}

func accountPurpose(view ViewMode) string {
	switch view {
	case ViewPersonal:
		return "personal"
	case ViewBusiness:
		return "business"
	default:
		return ""
	}
}
