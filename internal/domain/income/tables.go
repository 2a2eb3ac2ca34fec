package income

// Lookup tables for the type-classification priority chain. All three
// are immutable after startup; a miss in one table falls through to
// the next rule, never errors.

// detailedCategoryTypes maps externally-supplied detailed categories
// (bank-aggregator taxonomy) to an income type.
var detailedCategoryTypes = map[string]Type{
	"INCOME_WAGES":              TypeEmployment,
	"INCOME_SALARY":             TypeEmployment,
	"INCOME_DIVIDENDS":          TypeInterest,
	"INCOME_INTEREST_EARNED":    TypeInterest,
	"INCOME_RETIREMENT_PENSION": TypeEmployment,
	"INCOME_TAX_REFUND":         TypeOther,
	"INCOME_UNEMPLOYMENT":       TypeEmployment,
	"INCOME_OTHER_INCOME":       TypeOther,

	"TRANSFER_IN_ACCOUNT_TRANSFER":                TypeTransfer,
	"TRANSFER_IN_CASH_ADVANCES_AND_LOANS":         TypeOther,
	"TRANSFER_IN_DEPOSIT":                         TypeOther,
	"TRANSFER_IN_INVESTMENT_AND_RETIREMENT_FUNDS": TypeOther,
	"TRANSFER_IN_SAVINGS":                         TypeTransfer,
	"TRANSFER_IN_TRANSFER_IN_FROM_APPS":           TypeTransfer,
}

// primaryCategoryTypes is the coarser fallback for the aggregator's
// primary category.
var primaryCategoryTypes = map[string]Type{
	"INCOME":      TypeEmployment,
	"TRANSFER_IN": TypeTransfer,
}

// resolvedCategoryTypes maps user/AI-assigned category names to an
// income type.
var resolvedCategoryTypes = map[string]Type{
	"Salary & Wages":    TypeEmployment,
	"Payroll":           TypeEmployment,
	"Direct Deposit":    TypeEmployment,
	"Contractor Income": TypeContractor,
	"Freelance Income":  TypeContractor,
	"Interest Income":   TypeInterest,
	"Dividends":         TypeInterest,
	"Investment Income": TypeInterest,
	"Rental Income":     TypeOther,
	"Refund":            TypeOther,
	"Tax Refund":        TypeOther,
}

// fallbackLabels is the per-type label used when a transaction has no
// merchant text at all.
var fallbackLabels = map[Type]string{
	TypeEmployment: "Employment Income",
	TypeContractor: "Contractor Income",
	TypeInterest:   "Interest Income",
	TypeTransfer:   "Peer Transfers",
	TypeOther:      "Other Income",
}
