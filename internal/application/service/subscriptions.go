// Package service wires the detection engines to storage and runs
// them as per-user batch jobs. Each user's run is independent and
// idempotent, so overlapping schedules and retries are safe.
package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlens/engine/internal/domain/ledger"
	"github.com/ledgerlens/engine/internal/domain/subscription"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// SubscriptionStores is the storage surface subscription detection needs.
type SubscriptionStores interface {
	storage.TransactionStore
	storage.SubscriptionStore
}

// SubscriptionService runs subscription detection for one user at a time.
type SubscriptionService struct {
	store          SubscriptionStores
	registry       *subscription.Registry
	logger         *slog.Logger
	lookbackMonths int

	// now is replaceable in tests so unused detection is deterministic.
	now func() time.Time
}

// NewSubscriptionService creates a subscription detection service.
func NewSubscriptionService(store SubscriptionStores, logger *slog.Logger, lookbackMonths int) *SubscriptionService {
	if logger == nil {
		logger = slog.Default()
	}
	if lookbackMonths <= 0 {
		lookbackMonths = 6
	}
	return &SubscriptionService{
		store:          store,
		registry:       subscription.DefaultRegistry(),
		logger:         logger,
		lookbackMonths: lookbackMonths,
		now:            time.Now,
	}
}

// WithClock replaces the service's reference clock. For tests.
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	s.now = now
	return s
}

// DetectSubscriptions scans the user's recent spending, upserts one
// subscription per recurring merchant, and then sweeps active
// non-essential subscriptions for unused ones.
func (s *SubscriptionService) DetectSubscriptions(userID string) (*subscription.Summary, error) {
	now := s.now()
	since := now.AddDate(0, -s.lookbackMonths, 0)

	txs, err := s.store.SpendingSince(userID, since)
	if err != nil {
		return nil, err
	}

	detections := subscription.Detect(txs, s.registry)

	for _, d := range detections {
		sub := &ledger.Subscription{
			ID:               uuid.NewString(), // ignored on conflict; the existing row keeps its id
			UserID:           userID,
			MerchantKey:      d.MerchantKey,
			MerchantName:     d.MerchantName,
			Description:      d.Description,
			Amount:           d.Amount,
			Frequency:        d.Frequency,
			Category:         d.Category,
			IsEssential:      d.Essential,
			Status:           ledger.StatusActive,
			LastChargeDate:   d.LastCharge,
			NextExpectedDate: d.NextExpected,
			AnnualCost:       d.AnnualCost,
			ChargeCount:      d.ChargeCount,
			ChargeHistory:    d.History,
		}
		if err := s.store.UpsertSubscription(sub); err != nil {
			return nil, err
		}
	}

	if err := s.sweepUnused(userID, now); err != nil {
		return nil, err
	}

	summary := subscription.Summarize(detections)
	s.logger.Info("subscription detection complete",
		"user", userID,
		"detected", summary.Detected,
		"monthly_total", summary.MonthlyTotal,
	)
	return &summary, nil
}

// sweepUnused flags active non-essential subscriptions whose charges
// and usage signals have both gone quiet.
func (s *SubscriptionService) sweepUnused(userID string, now time.Time) error {
	active, err := s.store.SubscriptionsByStatus(userID, ledger.StatusActive)
	if err != nil {
		return err
	}

	for _, sub := range active {
		if !subscription.IsUnused(sub, now) {
			continue
		}
		if err := s.store.UpdateSubscriptionStatus(sub.ID, ledger.StatusUnused); err != nil {
			return err
		}
		s.logger.Info("subscription marked unused",
			"user", userID,
			"merchant", sub.MerchantName,
			"last_charge", sub.LastChargeDate.Format("2006-01-02"),
		)
	}
	return nil
}
