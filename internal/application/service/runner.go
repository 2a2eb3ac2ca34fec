package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ledgerlens/engine/internal/infrastructure/storage"
)

// Runner executes the full analysis pipeline for many users. Users
// are independent, so they run concurrently on a bounded worker pool;
// within one user the steps stay strictly sequential.
type Runner struct {
	repo          storage.Repository
	subscriptions *SubscriptionService
	incomes       *IncomeService
	reconciler    *ReconcileService
	logger        *slog.Logger
	workers       int
}

// NewRunner creates a batch runner over the given services.
func NewRunner(
	repo storage.Repository,
	subscriptions *SubscriptionService,
	incomes *IncomeService,
	reconciler *ReconcileService,
	logger *slog.Logger,
	workers int,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		repo:          repo,
		subscriptions: subscriptions,
		incomes:       incomes,
		reconciler:    reconciler,
		logger:        logger,
		workers:       workers,
	}
}

// RunAll runs the pipeline for every known user. A user's failure is
// logged and counted but does not stop other users; each user's writes
// commit independently, so aborting via ctx between users leaves no
// partial state.
func (r *Runner) RunAll(ctx context.Context) (processed int, failed int, err error) {
	users, err := r.repo.Users()
	if err != nil {
		return 0, 0, err
	}

	userCh := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range userCh {
				runErr := r.runUser(userID)
				mu.Lock()
				if runErr != nil {
					failed++
					r.logger.Error("user analysis failed", "user", userID, "error", runErr)
				} else {
					processed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, userID := range users {
		select {
		case <-ctx.Done():
			close(userCh)
			wg.Wait()
			return processed, failed, ctx.Err()
		case userCh <- userID:
		}
	}
	close(userCh)
	wg.Wait()

	r.logger.Info("batch run complete", "users", len(users), "processed", processed, "failed", failed)
	return processed, failed, nil
}

// runUser executes detection, classification and reconciliation for
// one user, in that order.
func (r *Runner) runUser(userID string) error {
	if _, err := r.subscriptions.DetectSubscriptions(userID); err != nil {
		return err
	}
	if _, err := r.incomes.Analyze(userID, ViewAll, 0); err != nil {
		return err
	}
	if _, err := r.reconciler.Reconcile(userID); err != nil {
		return err
	}
	return nil
}
