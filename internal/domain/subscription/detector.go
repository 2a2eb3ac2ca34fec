// Package subscription detects recurring charges in a user's spending
// and maintains their lifecycle, including flagging paid-but-unused
// subscriptions.
package subscription

import (
	"math"
	"sort"
	"time"

	"github.com/ledgerlens/engine/internal/domain/ledger"
	"github.com/ledgerlens/engine/internal/domain/merchant"
	"github.com/ledgerlens/engine/internal/domain/recurrence"
)

const (
	// A merchant needs at least two charges before a pattern exists.
	minCharges = 2

	// Amount gate: every charge must sit within 20% of the group mean,
	// unless the merchant has charged at least this many times. The
	// occurrence override lets price-drift subscriptions (tier change,
	// annual increase) through.
	amountTolerance      = 0.20
	toleranceOverrideMin = 3

	// Charge history kept per subscription.
	maxHistory = 24

	// A non-essential subscription with no charge and no usage signal
	// for this long is flagged unused.
	unusedAfterDays = 30
)

// Fallback category when neither the registry nor the transaction
// carries one.
const defaultCategory = "Subscriptions"

// Detection is one recurring-charge group found in a user's spending.
type Detection struct {
	MerchantKey  string
	MerchantName string
	Description  string
	Amount       float64 // mean charge amount
	Frequency    ledger.Frequency
	Category     string
	Essential    bool
	LastCharge   time.Time
	NextExpected time.Time
	AnnualCost   float64
	ChargeCount  int
	History      []ledger.Charge
}

// MonthlyAmount is the detection's cost normalized to a month.
func (d Detection) MonthlyAmount() float64 {
	return round2(d.AnnualCost / 12)
}

// Summary reports the outcome of a detection pass.
type Summary struct {
	Detected     int     `json:"detected"`
	MonthlyTotal float64 `json:"total_monthly"`
}

// Detect finds recurring charge groups in outflow transactions
// (positive amounts, typically the trailing six months). Transactions
// may arrive in any order; groups keep first-seen ordering so repeated
// runs over the same input produce the same result.
func Detect(txs []ledger.Transaction, reg *Registry) []Detection {
	type group struct {
		key string
		txs []ledger.Transaction
	}

	byKey := make(map[string]int)
	var groups []*group
	for _, tx := range txs {
		if tx.Amount <= 0 {
			continue
		}
		key := merchant.Key(tx.MerchantName)
		if key == "" {
			continue
		}
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, &group{key: key})
		}
		groups[idx].txs = append(groups[idx].txs, tx)
	}

	var detections []Detection
	for _, g := range groups {
		if len(g.txs) < minCharges {
			continue
		}

		sort.Slice(g.txs, func(i, j int) bool {
			return g.txs[i].Date.Before(g.txs[j].Date)
		})

		mean := meanAmount(g.txs)
		if !amountsConsistent(g.txs, mean) && len(g.txs) < toleranceOverrideMin {
			continue
		}

		dates := make([]time.Time, len(g.txs))
		for i, tx := range g.txs {
			dates[i] = tx.Date
		}
		freq, ok := recurrence.BillingFrequency(dates)
		if !ok {
			continue
		}

		last := g.txs[len(g.txs)-1]

		d := Detection{
			MerchantKey:  g.key,
			MerchantName: last.MerchantName,
			Description:  last.Description,
			Amount:       round2(mean),
			Frequency:    freq,
			Category:     defaultCategory,
			LastCharge:   last.Date,
			NextExpected: nextCharge(last.Date, freq),
			AnnualCost:   round2(mean * periodsPerYear(freq)),
			ChargeCount:  len(g.txs),
			History:      history(g.txs),
		}

		if known, ok := reg.Lookup(g.key); ok {
			d.MerchantName = known.Name
			d.Category = known.Category
			d.Essential = known.Essential
		} else if c := last.ResolvedCategory(); c != "" {
			d.Category = c
		}
		if d.Description == "" {
			d.Description = last.MerchantName
		}

		detections = append(detections, d)
	}

	return detections
}

// Summarize totals a detection pass: how many subscriptions were found
// and what they cost per month.
func Summarize(detections []Detection) Summary {
	s := Summary{Detected: len(detections)}
	for _, d := range detections {
		s.MonthlyTotal += d.MonthlyAmount()
	}
	s.MonthlyTotal = round2(s.MonthlyTotal)
	return s
}

// IsUnused reports whether an active, non-essential subscription has
// gone quiet: no charge for over 30 days and either no usage signal or
// a usage signal that is just as stale. Essential subscriptions and
// user-set statuses (paused, cancelled) are never touched.
func IsUnused(sub ledger.Subscription, now time.Time) bool {
	if sub.Status != ledger.StatusActive || sub.IsEssential {
		return false
	}
	if sub.LastChargeDate.IsZero() {
		return false
	}

	cutoff := now.AddDate(0, 0, -unusedAfterDays)
	if !sub.LastChargeDate.Before(cutoff) {
		return false
	}
	if sub.LastUsedAt != nil && !sub.LastUsedAt.Before(cutoff) {
		return false
	}
	return true
}

func meanAmount(txs []ledger.Transaction) float64 {
	sum := 0.0
	for _, tx := range txs {
		sum += tx.Amount
	}
	return sum / float64(len(txs))
}

func amountsConsistent(txs []ledger.Transaction, mean float64) bool {
	if mean <= 0 {
		return false
	}
	for _, tx := range txs {
		if math.Abs(tx.Amount-mean)/mean > amountTolerance {
			return false
		}
	}
	return true
}

func periodsPerYear(freq ledger.Frequency) float64 {
	switch freq {
	case ledger.FrequencyWeekly:
		return 52
	case ledger.FrequencyMonthly:
		return 12
	case ledger.FrequencyQuarterly:
		return 4
	case ledger.FrequencyAnnual:
		return 1
	default:
		return 12
	}
}

func nextCharge(last time.Time, freq ledger.Frequency) time.Time {
	switch freq {
	case ledger.FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case ledger.FrequencyMonthly:
		return last.AddDate(0, 1, 0)
	case ledger.FrequencyQuarterly:
		return last.AddDate(0, 3, 0)
	case ledger.FrequencyAnnual:
		return last.AddDate(1, 0, 0)
	default:
		return last.AddDate(0, 1, 0)
	}
}

// history returns the chronological (date, amount) list, bounded to
// the most recent maxHistory charges.
func history(txs []ledger.Transaction) []ledger.Charge {
	start := 0
	if len(txs) > maxHistory {
		start = len(txs) - maxHistory
	}
	charges := make([]ledger.Charge, 0, len(txs)-start)
	for _, tx := range txs[start:] {
		charges = append(charges, ledger.Charge{Date: tx.Date, Amount: tx.Amount})
	}
	return charges
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
