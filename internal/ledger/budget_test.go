package ledger

import (
	"context"
	"testing"
	"time"

	"expense_api/internal/ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestApplyUnknownUser(t *testing.T) {
	f := newFixture(t)

	err := f.service.Budget().Apply(context.Background(), primitive.NewObjectID(), 10)
	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestIsOverBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No ceiling set: never over budget, whatever was spent.
	_, err := f.service.CreateExpense(ctx, f.userID, ExpenseInput{
		Title: "Rent", Category: "Utilities", Amount: 1200,
	})
	require.NoError(t, err)

	over, err := f.service.Budget().IsOverBudget(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, over)

	ceiling := 1000.0
	require.NoError(t, f.service.SetBudget(ctx, f.userID, &ceiling))

	over, err = f.service.Budget().IsOverBudget(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, over)

	// Exactly at the ceiling is not over.
	exact := 1200.0
	require.NoError(t, f.service.SetBudget(ctx, f.userID, &exact))
	over, err = f.service.Budget().IsOverBudget(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, over)
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateExpense(ctx, f.userID, ExpenseInput{
		Title: "Lunch", Category: "Food", Amount: 30,
	})
	require.NoError(t, err)

	// Force the cache away from the live sum, as a failed compensation would.
	require.NoError(t, f.users.SetTotalSpent(ctx, f.userID, 75))

	drift, repaired, err := f.service.Budget().Reconcile(ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, repaired)
	assert.Equal(t, 45.0, drift)
	assert.Equal(t, 30.0, f.totalSpent(t))

	// A clean cache is left alone.
	drift, repaired, err = f.service.Budget().Reconcile(ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, repaired)
	assert.Equal(t, 0.0, drift)
}

func TestReconcilerRunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &models.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, f.users.Create(ctx, other))

	_, err := f.service.CreateExpense(ctx, f.userID, ExpenseInput{
		Title: "Lunch", Category: "Food", Amount: 30,
	})
	require.NoError(t, err)
	require.NoError(t, f.users.SetTotalSpent(ctx, f.userID, 99))

	reconciler := NewReconciler(f.users, f.service.Budget(), time.Hour)
	require.NoError(t, reconciler.RunOnce(ctx))

	assert.Equal(t, 30.0, f.totalSpent(t))

	untouched, err := f.users.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, untouched.TotalSpent)
}

func TestReconcilerStopWithoutStart(t *testing.T) {
	f := newFixture(t)

	reconciler := NewReconciler(f.users, f.service.Budget(), 0)
	reconciler.Start()
	reconciler.Stop() // must not block
}

func TestReconcilerStopTwice(t *testing.T) {
	f := newFixture(t)

	reconciler := NewReconciler(f.users, f.service.Budget(), time.Hour)
	reconciler.Start()
	reconciler.Stop()
	reconciler.Stop() // repeated shutdown must not panic
}
