package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ledgerlens/engine/internal/api/dto"
	"github.com/ledgerlens/engine/internal/application/service"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// AnalysisHandler exposes the three batch engines over HTTP. It is a
// thin shell: parameter parsing and JSON shaping only, no detection
// logic.
type AnalysisHandler struct {
	subscriptions *service.SubscriptionService
	incomes       *service.IncomeService
	reconciler    *service.ReconcileService
	matches       storage.MatchStore
}

// NewAnalysisHandler creates a handler over the batch services.
func NewAnalysisHandler(
	subscriptions *service.SubscriptionService,
	incomes *service.IncomeService,
	reconciler *service.ReconcileService,
	matches storage.MatchStore,
) *AnalysisHandler {
	return &AnalysisHandler{
		subscriptions: subscriptions,
		incomes:       incomes,
		reconciler:    reconciler,
		matches:       matches,
	}
}

// DetectSubscriptions runs subscription detection for a user.
// POST /api/v1/users/:userID/subscriptions/detect
func (h *AnalysisHandler) DetectSubscriptions(c *gin.Context) {
	userID := c.Param("userID")

	summary, err := h.subscriptions.DetectSubscriptions(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.NewDetectResponse(summary))
}

// AnalyzeIncome runs income classification for a user.
// GET /api/v1/users/:userID/income?months_back=3&view=all
func (h *AnalysisHandler) AnalyzeIncome(c *gin.Context) {
	userID := c.Param("userID")

	monthsBack := 0 // zero defers to the service's configured window
	if raw := c.Query("months_back"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("months_back must be a positive integer"))
			return
		}
		monthsBack = parsed
	}

	view := service.ViewMode(c.DefaultQuery("view", string(service.ViewAll)))
	switch view {
	case service.ViewAll, service.ViewPersonal, service.ViewBusiness:
	default:
		c.JSON(http.StatusBadRequest, dto.BadRequestError("view must be all, personal or business"))
		return
	}

	report, err := h.incomes.Analyze(userID, view, monthsBack)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.IncomeResponse{Report: *report})
}

// Reconcile runs a reconciliation pass for a user.
// POST /api/v1/users/:userID/reconcile
func (h *AnalysisHandler) Reconcile(c *gin.Context) {
	userID := c.Param("userID")

	result, err := h.reconciler.Reconcile(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.ReconcileResponse{Result: *result})
}

// ReviewCandidates lists a user's pending reconciliation candidates.
// GET /api/v1/users/:userID/reconcile/candidates
func (h *AnalysisHandler) ReviewCandidates(c *gin.Context) {
	userID := c.Param("userID")

	candidates, err := h.matches.MatchCandidates(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.CandidatesResponse{Candidates: candidates, Count: len(candidates)})
}
