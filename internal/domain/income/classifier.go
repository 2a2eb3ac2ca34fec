// Package income classifies inflow transactions into income sources:
// who pays the user, how often, how reliably, and whether each source
// is primary income or extra money.
package income

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ledgerlens/engine/internal/domain/ledger"
	"github.com/ledgerlens/engine/internal/domain/merchant"
	"github.com/ledgerlens/engine/internal/domain/recurrence"
)

// Type is the kind of income a transaction represents.
type Type string

const (
	TypeEmployment Type = "employment"
	TypeContractor Type = "contractor"
	TypeInterest   Type = "interest"
	TypeTransfer   Type = "transfer"
	TypeOther      Type = "other"
)

// Classification is whether a source is income the user can depend on.
type Classification string

const (
	ClassificationPrimary Classification = "primary"
	ClassificationExtra   Classification = "extra"
)

// Source is one grouped income stream.
type Source struct {
	Type              Type             `json:"type"`
	Label             string           `json:"label"`
	MerchantName      string           `json:"merchant_name"`
	AvgAmount         float64          `json:"avg_amount"`
	MonthlyEquivalent float64          `json:"monthly_equivalent"`
	Frequency         ledger.Frequency `json:"frequency,omitempty"`
	IsRegular         bool             `json:"is_regular"`
	Occurrences       int              `json:"occurrences"`
	Classification    Classification   `json:"classification"`
}

// Report is the result of one analysis run.
type Report struct {
	Sources []Source `json:"sources"`

	// ReliableMonthly sums regular employment income only.
	ReliableMonthly float64 `json:"reliable_monthly"`

	// The remaining aggregates exclude transfer-type sources, which
	// are listed but are not income.
	TotalMonthlyAvg float64 `json:"total_monthly_avg"`
	PrimaryMonthly  float64 `json:"primary_monthly"`
	ExtraMonthly    float64 `json:"extra_monthly"`

	MonthsAnalyzed int `json:"months_analyzed"`
}

// OverrideKey builds the key used in the user-override map.
func OverrideKey(t Type, label string) string {
	return string(t) + "|" + label
}

// WindowStart returns the start of the analysis window: the first day
// of the month monthsBack months before the reference time.
func WindowStart(now time.Time, monthsBack int) time.Time {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return firstOfMonth.AddDate(0, -monthsBack, 0)
}

// Analyze classifies inflow transactions (negative amounts) into
// income sources. overrides maps "type|label" to a classification and
// always wins over the auto-rule; pass nil when the user has none.
// now is the reference time the window math is anchored to.
func Analyze(txs []ledger.Transaction, monthsBack int, overrides map[string]Classification, now time.Time) Report {
	monthsElapsed := monthsBetween(WindowStart(now, monthsBack), now)
	if monthsElapsed < 1 {
		monthsElapsed = 1
	}

	report := Report{MonthsAnalyzed: monthsElapsed}
	if len(txs) == 0 {
		return report
	}

	type classified struct {
		merchantName string
		amount       float64
		date         time.Time
	}
	type group struct {
		typ   Type
		label string
		txs   []classified
	}

	// Group by (type, label), first-seen order.
	byKey := make(map[string]int)
	var groups []*group
	for _, tx := range txs {
		if tx.Amount >= 0 {
			continue
		}
		typ := classifyType(tx)
		label := normalizeLabel(tx.MerchantName, typ)

		key := OverrideKey(typ, label)
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, &group{typ: typ, label: label})
		}
		groups[idx].txs = append(groups[idx].txs, classified{
			merchantName: tx.MerchantName,
			amount:       -tx.Amount,
			date:         tx.Date,
		})
	}

	for _, g := range groups {
		sort.Slice(g.txs, func(i, j int) bool { return g.txs[i].date.Before(g.txs[j].date) })

		total := 0.0
		for _, tx := range g.txs {
			total += tx.amount
		}
		occurrences := len(g.txs)
		avg := total / float64(occurrences)

		var freq ledger.Frequency
		regular := false
		if occurrences >= 2 {
			dates := make([]time.Time, occurrences)
			for i, tx := range g.txs {
				dates[i] = tx.date
			}
			res := recurrence.Analyze(dates)
			freq = res.Frequency
			regular = res.IsRegular
		}

		classification, ok := overrides[OverrideKey(g.typ, g.label)]
		if !ok {
			classification = autoClassify(g.typ, regular, freq)
		}

		report.Sources = append(report.Sources, Source{
			Type:              g.typ,
			Label:             g.label,
			MerchantName:      g.txs[0].merchantName,
			AvgAmount:         round2(avg),
			MonthlyEquivalent: round2(monthlyEquivalent(total, occurrences, freq, monthsElapsed)),
			Frequency:         freq,
			IsRegular:         regular,
			Occurrences:       occurrences,
			Classification:    classification,
		})
	}

	sort.SliceStable(report.Sources, func(i, j int) bool {
		return report.Sources[i].MonthlyEquivalent > report.Sources[j].MonthlyEquivalent
	})

	for _, s := range report.Sources {
		if s.Type == TypeEmployment && s.IsRegular {
			report.ReliableMonthly += s.MonthlyEquivalent
		}
		if s.Type == TypeTransfer {
			continue
		}
		report.TotalMonthlyAvg += s.MonthlyEquivalent
		switch s.Classification {
		case ClassificationPrimary:
			report.PrimaryMonthly += s.MonthlyEquivalent
		case ClassificationExtra:
			report.ExtraMonthly += s.MonthlyEquivalent
		}
	}
	report.ReliableMonthly = round2(report.ReliableMonthly)
	report.TotalMonthlyAvg = round2(report.TotalMonthlyAvg)
	report.PrimaryMonthly = round2(report.PrimaryMonthly)
	report.ExtraMonthly = round2(report.ExtraMonthly)

	return report
}

// autoClassify applies the default primary/extra rule when the user
// has no override for the source.
func autoClassify(t Type, regular bool, freq ledger.Frequency) Classification {
	if t == TypeEmployment && regular {
		return ClassificationPrimary
	}
	if t == TypeContractor && regular {
		switch freq {
		case ledger.FrequencyWeekly, ledger.FrequencyBiWeekly, ledger.FrequencyMonthly:
			return ClassificationPrimary
		}
	}
	return ClassificationExtra
}

// classifyType resolves a transaction's income type through the
// priority chain: detailed category table, primary category table,
// resolved user/AI category table, merchant keywords, then "other".
func classifyType(tx ledger.Transaction) Type {
	if t, ok := detailedCategoryTypes[tx.PlaidDetailedCategory]; ok && tx.PlaidDetailedCategory != "" {
		return t
	}
	if t, ok := primaryCategoryTypes[tx.PlaidCategory]; ok && tx.PlaidCategory != "" {
		return t
	}
	if resolved := tx.ResolvedCategory(); resolved != "" {
		if t, ok := resolvedCategoryTypes[resolved]; ok {
			return t
		}
	}

	upper := strings.ToUpper(tx.MerchantName)
	switch {
	case strings.Contains(upper, "PAYROLL"),
		strings.Contains(upper, "DIRECT DEP"),
		strings.Contains(upper, "SALARY"),
		strings.Contains(upper, "PAYCHECK"):
		return TypeEmployment
	}
	if _, ok := merchant.Lookup(tx.MerchantName); ok {
		return TypeTransfer
	}
	if strings.Contains(upper, "INTEREST") {
		return TypeInterest
	}

	return TypeOther
}

var (
	trailingRefRe   = regexp.MustCompile(`[#*]+\d*\s*$`)
	trailingDigitRe = regexp.MustCompile(`\s+\d{3,}\s*$`)
	directDepRe     = regexp.MustCompile(`\s+(DIRECT|DIR)\s*(DEP|DEPOSIT).*$`)
	payrollRe       = regexp.MustCompile(`\s+PAYROLL.*$`)
)

// normalizeLabel builds the display label an income source groups
// under. Peer-payment apps collapse to one fixed label per app;
// payroll and direct-deposit suffixes are stripped so "ACME CORP
// DIRECT DEP 123" and "ACME CORP PAYROLL" land in the same group.
func normalizeLabel(name string, t Type) string {
	if strings.TrimSpace(name) == "" {
		return fallbackLabels[t]
	}

	if app, ok := merchant.Lookup(name); ok {
		return "Peer Transfers (" + app.Name + ")"
	}

	clean := strings.ToUpper(strings.TrimSpace(name))
	clean = trailingRefRe.ReplaceAllString(clean, "")
	clean = trailingDigitRe.ReplaceAllString(clean, "")
	clean = directDepRe.ReplaceAllString(clean, "")
	clean = payrollRe.ReplaceAllString(clean, "")

	if clean = strings.TrimSpace(clean); clean != "" {
		return clean
	}
	return fallbackLabels[t]
}

// monthlyEquivalent converts a source's take to a per-month figure.
// Frequency-less and irregular sources are spread over the elapsed
// window instead.
func monthlyEquivalent(total float64, occurrences int, freq ledger.Frequency, monthsElapsed int) float64 {
	perOccurrence := total / float64(occurrences)
	switch freq {
	case ledger.FrequencyWeekly:
		return perOccurrence * 4.33
	case ledger.FrequencyBiWeekly:
		return perOccurrence * 2.17
	case ledger.FrequencyMonthly:
		return perOccurrence
	case ledger.FrequencyQuarterly:
		return perOccurrence / 3
	case ledger.FrequencyAnnual:
		return perOccurrence / 12
	default:
		return total / float64(monthsElapsed)
	}
}

func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
