// Package ledger defines the core entities shared by the detection
// engines: bank transactions, external purchase orders, and detected
// subscriptions.
//
// Sign convention: a positive Transaction.Amount is money out (spend),
// a negative amount is money in (income). The convention is established
// upstream when transactions are imported; nothing in this module
// re-interprets it.
package ledger

import "time"

// Frequency is a recurrence cadence detected from charge intervals.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiWeekly  Frequency = "bi-weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
	FrequencyIrregular Frequency = "irregular"
)

// SubscriptionStatus is the lifecycle state of a detected subscription.
// Detection only ever moves a subscription between active and unused;
// paused and cancelled are set by explicit user action.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusUnused    SubscriptionStatus = "unused"
	StatusPaused    SubscriptionStatus = "paused"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Transaction is a single bank transaction.
type Transaction struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	MerchantName          string    `json:"merchant_name"`
	MerchantKey           string    `json:"merchant_key"`
	Description           string    `json:"description"`
	Amount                float64   `json:"amount"` // positive = outflow, negative = inflow
	Date                  time.Time `json:"transaction_date"`
	PlaidCategory         string    `json:"plaid_category,omitempty"`
	PlaidDetailedCategory string    `json:"plaid_detailed_category,omitempty"`
	AICategory            string    `json:"ai_category,omitempty"`
	UserCategory          string    `json:"user_category,omitempty"`
	AccountPurpose        string    `json:"account_purpose,omitempty"` // "personal" or "business"
	IsReconciled          bool      `json:"is_reconciled"`
	MatchedOrderID        string    `json:"matched_order_id,omitempty"`
}

// ResolvedCategory returns the user-confirmed category when present,
// otherwise the AI-assigned one.
func (t Transaction) ResolvedCategory() string {
	if t.UserCategory != "" {
		return t.UserCategory
	}
	return t.AICategory
}

// Order is an independently-sourced purchase record (e.g. a parsed
// email receipt) that reconciliation links back to a bank transaction.
type Order struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"user_id"`
	Merchant             string      `json:"merchant"`
	MerchantKey          string      `json:"merchant_key"`
	Total                float64     `json:"total"`
	Date                 time.Time   `json:"order_date"`
	IsReconciled         bool        `json:"is_reconciled"`
	MatchedTransactionID string      `json:"matched_transaction_id,omitempty"`
	Items                []OrderItem `json:"items,omitempty"`
}

// OrderItem is a line item on an order.
type OrderItem struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// Charge is one entry in a subscription's charge history.
type Charge struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Subscription is a detected recurring charge, keyed by
// (UserID, MerchantKey). Detection upserts by that key; it never
// creates a second row for the same merchant.
type Subscription struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	MerchantKey      string             `json:"merchant_key"`
	MerchantName     string             `json:"merchant_name"`
	Description      string             `json:"description,omitempty"`
	Amount           float64            `json:"amount"`
	Frequency        Frequency          `json:"frequency"`
	Category         string             `json:"category"`
	IsEssential      bool               `json:"is_essential"`
	Status           SubscriptionStatus `json:"status"`
	LastChargeDate   time.Time          `json:"last_charge_date"`
	NextExpectedDate time.Time          `json:"next_expected_date"`
	LastUsedAt       *time.Time         `json:"last_used_at,omitempty"`
	AnnualCost       float64            `json:"annual_cost"`
	ChargeCount      int                `json:"charge_count"`
	ChargeHistory    []Charge           `json:"charge_history,omitempty"`
	Note             string             `json:"note,omitempty"`
}
