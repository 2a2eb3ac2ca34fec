// Package api assembles the HTTP surface: router, middleware and
// handlers over the application services.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ledgerlens/engine/internal/api/handlers"
	"github.com/ledgerlens/engine/internal/api/middleware"
	"github.com/ledgerlens/engine/internal/application/service"
	"github.com/ledgerlens/engine/internal/infrastructure/config"
	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// Server hosts the analysis API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the router, middleware and handlers.
func NewServer(
	cfg *config.Config,
	repo storage.Repository,
	subscriptions *service.SubscriptionService,
	incomes *service.IncomeService,
	reconciler *service.ReconcileService,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	analysis := handlers.NewAnalysisHandler(subscriptions, incomes, reconciler, repo)

	router.GET("/health", handlers.Health)

	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users/:userID")
		users.POST("/subscriptions/detect", analysis.DetectSubscriptions)
		users.GET("/income", analysis.AnalyzeIncome)
		users.POST("/reconcile", analysis.Reconcile)
		users.GET("/reconcile/candidates", analysis.ReviewCandidates)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server shutting down")
	return s.httpServer.Shutdown(ctx)
}
