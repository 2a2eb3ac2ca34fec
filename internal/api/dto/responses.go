package dto

import (
	"time"

	"github.com/ledgerlens/engine/internal/domain/income"
	"github.com/ledgerlens/engine/internal/domain/reconcile"
	"github.com/ledgerlens/engine/internal/domain/subscription"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// NewHealthResponse creates a healthy response with the current time.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
}

// DetectResponse is the result of a subscription detection run.
type DetectResponse struct {
	Detected     int     `json:"detected"`
	MonthlyTotal float64 `json:"total_monthly"`
}

// NewDetectResponse converts a detection summary.
func NewDetectResponse(s *subscription.Summary) DetectResponse {
	return DetectResponse{Detected: s.Detected, MonthlyTotal: s.MonthlyTotal}
}

// IncomeResponse wraps an income analysis report.
type IncomeResponse struct {
	income.Report
}

// ReconcileResponse is the result of a reconciliation run.
type ReconcileResponse struct {
	reconcile.Result
}

// CandidatesResponse lists pending review pairs.
type CandidatesResponse struct {
	Candidates []storage.MatchCandidate `json:"candidates"`
	Count      int                      `json:"count"`
}
