// Package recurrence measures how regularly a series of dated events
// repeats. It is shared by subscription detection (billing cycles) and
// income classification (pay cycles).
//
// The two callers bucket intervals differently on purpose:
// subscriptions are billed on fixed cycles, so the mean interval is
// representative and anything unbucketable disqualifies the group;
// income deposits can carry trailing anomalies (bonus, correction), so
// the median interval is used and unbucketable cadences are still
// labeled irregular.
package recurrence

import (
	"math"
	"sort"
	"time"

	"github.com/ledgerlens/engine/internal/domain/ledger"
)

// Regularity gate: population coefficient of variation of the gaps.
const regularCVLimit = 0.25

// With only one gap there is no spread to measure; a gap inside a
// paycheck-like cycle of 5-35 days counts as regular.
const (
	singleGapRegularMin = 5
	singleGapRegularMax = 35
)

// Result describes the cadence of a date series.
type Result struct {
	// Frequency is empty when the series has fewer than two dates.
	// Otherwise it is one of the ledger frequencies, including
	// FrequencyIrregular for cadences outside every bucket.
	Frequency          ledger.Frequency
	IsRegular          bool
	MedianIntervalDays int
}

// Analyze computes the cadence of a sorted-ascending date series.
// A single date yields no frequency and is never regular.
func Analyze(dates []time.Time) Result {
	gaps := Intervals(dates)
	if len(gaps) == 0 {
		return Result{}
	}

	median := medianLowerMiddle(gaps)

	regular := false
	if len(gaps) >= 2 {
		regular = coefficientOfVariation(gaps) < regularCVLimit
	} else {
		regular = gaps[0] >= singleGapRegularMin && gaps[0] <= singleGapRegularMax
	}

	return Result{
		Frequency:          bucketMedian(median),
		IsRegular:          regular,
		MedianIntervalDays: median,
	}
}

// BillingFrequency buckets the mean interval of a date series into the
// strict billing cadences a subscription can have. ok is false when
// there are no intervals or the mean falls outside every bucket; the
// caller treats that as "not recurring".
func BillingFrequency(dates []time.Time) (ledger.Frequency, bool) {
	gaps := Intervals(dates)
	if len(gaps) == 0 {
		return "", false
	}

	sum := 0
	for _, g := range gaps {
		sum += g
	}
	mean := float64(sum) / float64(len(gaps))

	switch {
	case mean <= 10:
		return ledger.FrequencyWeekly, true
	case mean >= 18 && mean <= 35:
		return ledger.FrequencyMonthly, true
	case mean >= 80 && mean <= 100:
		return ledger.FrequencyQuarterly, true
	case mean >= 340 && mean <= 380:
		return ledger.FrequencyAnnual, true
	default:
		return "", false
	}
}

// Intervals returns the consecutive day gaps of a sorted-ascending
// date series.
func Intervals(dates []time.Time) []int {
	if len(dates) < 2 {
		return nil
	}
	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, daysBetween(dates[i-1], dates[i]))
	}
	return gaps
}

func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// medianLowerMiddle returns the lower-middle element on even counts,
// so a trailing anomaly cannot drag the bucket upward.
func medianLowerMiddle(gaps []int) int {
	sorted := make([]int, len(gaps))
	copy(sorted, gaps)
	sort.Ints(sorted)
	return sorted[(len(sorted)-1)/2]
}

func coefficientOfVariation(gaps []int) float64 {
	sum := 0
	for _, g := range gaps {
		sum += g
	}
	mean := float64(sum) / float64(len(gaps))
	if mean <= 0 {
		return 1
	}

	variance := 0.0
	for _, g := range gaps {
		d := float64(g) - mean
		variance += d * d
	}
	variance /= float64(len(gaps))

	return math.Sqrt(variance) / mean
}

func bucketMedian(median int) ledger.Frequency {
	switch {
	case median <= 10:
		return ledger.FrequencyWeekly
	case median <= 17:
		return ledger.FrequencyBiWeekly
	case median <= 35:
		return ledger.FrequencyMonthly
	case median >= 80 && median <= 100:
		return ledger.FrequencyQuarterly
	case median >= 340 && median <= 380:
		return ledger.FrequencyAnnual
	default:
		return ledger.FrequencyIrregular
	}
}
