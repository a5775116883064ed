package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expense_api/internal/ledger/repository"
	"expense_api/internal/logger"

	"golang.org/x/sync/errgroup"
)

// reconcileConcurrency bounds how many users a sweep repairs in parallel.
const reconcileConcurrency = 4

// Reconciler periodically recomputes every user's expense sum and repairs a
// drifted total_spent cache. Drift can only appear when a compensating
// correction failed mid-mutation, so sweeps are expected to be no-ops.
type Reconciler struct {
	users    repository.UserRepository
	budget   *BudgetTracker
	interval time.Duration
	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReconciler creates a reconciliation sweep. An interval of zero disables
// Start entirely; RunOnce stays available for on-demand repair.
func NewReconciler(users repository.UserRepository, budget *BudgetTracker, interval time.Duration) *Reconciler {
	return &Reconciler{
		users:    users,
		budget:   budget,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (r *Reconciler) Start() {
	if r.interval <= 0 {
		logger.L().Info("Reconciliation sweep disabled")
		return
	}
	r.started = true

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		logger.L().Infof("Reconciliation sweep started: interval=%s", r.interval)

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), r.interval/2)
				if err := r.RunOnce(ctx); err != nil {
					logger.L().Errorf("Reconciliation sweep failed: %v", err)
				}
				cancel()
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit. Safe to call more
// than once, and a no-op when the loop was never started.
func (r *Reconciler) Stop() {
	if !r.started {
		return
	}
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}

// RunOnce reconciles every user's total_spent cache, a bounded number of
// users at a time.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	ids, err := r.users.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users for reconcile: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, repaired, err := r.budget.Reconcile(ctx, id)
			if err != nil {
				return fmt.Errorf("reconcile user %s: %w", id.Hex(), err)
			}
			if repaired {
				logger.L().Infof("Reconciliation repaired cache: user_id=%s", id.Hex())
			}
			return nil
		})
	}

	return g.Wait()
}
