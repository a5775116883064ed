package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"expense_api/internal/ledger/repository"
	"expense_api/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// driftTolerance is the float comparison slack when checking the cached
// total_spent against the live expense sum.
const driftTolerance = 1e-9

// BudgetTracker owns the total_spent cache on user documents. Every write to
// the cache goes through Apply (a single atomic $inc per call) or Reconcile;
// no other code path touches the field.
type BudgetTracker struct {
	users    repository.UserRepository
	expenses repository.ExpenseRepository
}

// NewBudgetTracker creates a budget tracker over the given repositories.
func NewBudgetTracker(users repository.UserRepository, expenses repository.ExpenseRepository) *BudgetTracker {
	return &BudgetTracker{
		users:    users,
		expenses: expenses,
	}
}

// Apply atomically adds delta to the user's total_spent: positive on expense
// creation, negative on deletion.
func (t *BudgetTracker) Apply(ctx context.Context, userID primitive.ObjectID, delta float64) error {
	err := t.users.ApplyTotalSpent(ctx, userID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "user", ID: userID.Hex()}
		}
		return fmt.Errorf("apply budget delta: %w", err)
	}
	return nil
}

// IsOverBudget reports whether the user's cached spend exceeds their budget
// ceiling. Reads the current user document; mutates nothing.
func (t *BudgetTracker) IsOverBudget(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, &NotFoundError{Resource: "user", ID: userID.Hex()}
		}
		return false, fmt.Errorf("load user for budget check: %w", err)
	}
	return user.IsOverBudget(), nil
}

// Reconcile recomputes the live expense sum for the user and repairs the
// cache when it has drifted, e.g. after a failed compensation. Returns the
// observed drift and whether a repair was written.
func (t *BudgetTracker) Reconcile(ctx context.Context, userID primitive.ObjectID) (float64, bool, error) {
	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, false, &NotFoundError{Resource: "user", ID: userID.Hex()}
		}
		return 0, false, fmt.Errorf("load user for reconcile: %w", err)
	}

	liveSum, err := t.expenses.SumAmounts(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("sum expenses for reconcile: %w", err)
	}

	drift := user.TotalSpent - liveSum
	if math.Abs(drift) <= driftTolerance {
		return drift, false, nil
	}

	if err := t.users.SetTotalSpent(ctx, userID, liveSum); err != nil {
		return drift, false, fmt.Errorf("repair total_spent: %w", err)
	}

	logger.L().Warnf("Repaired total_spent drift: user_id=%s cached=%.2f live=%.2f",
		userID.Hex(), user.TotalSpent, liveSum)
	return drift, true, nil
}
