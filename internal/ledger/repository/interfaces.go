package repository

import (
	"context"
	"errors"
	"time"

	"expense_api/internal/ledger/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a document does not exist or is not visible
// under the given owner filter. The service layer maps it to its own typed
// not-found error.
var ErrNotFound = errors.New("document not found")

// CategorySum is the per-category aggregate produced by the expense pipeline.
type CategorySum struct {
	Category string  `bson:"_id"`
	Total    float64 `bson:"total"`
	Count    int64   `bson:"count"`
}

// MonthlyTotal is the per-month aggregate produced by the expense pipeline.
type MonthlyTotal struct {
	Year  int     `bson:"year"`
	Month int     `bson:"month"`
	Total float64 `bson:"total"`
	Count int64   `bson:"count"`
}

// UserRepository is the users collection access layer.
type UserRepository interface {
	// Create inserts a new user. Email and username are unique.
	Create(ctx context.Context, user *models.User) error

	// GetByID returns a user by id, ErrNotFound when absent.
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	// GetByEmail returns a user by email, ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateBudget sets or clears the budget ceiling.
	UpdateBudget(ctx context.Context, id primitive.ObjectID, budget *float64) error

	// ApplyTotalSpent atomically adds delta to total_spent. This is the only
	// mutation path for the cache besides SetTotalSpent.
	ApplyTotalSpent(ctx context.Context, id primitive.ObjectID, delta float64) error

	// SetTotalSpent overwrites total_spent. Reserved for reconciliation.
	SetTotalSpent(ctx context.Context, id primitive.ObjectID, value float64) error

	// DeleteByID removes a user document, ErrNotFound when absent.
	DeleteByID(ctx context.Context, id primitive.ObjectID) error

	// ListIDs returns the ids of all users, for the reconciliation sweep.
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)

	// EnsureIndexes creates the collection indexes.
	EnsureIndexes(ctx context.Context) error
}

// ExpenseRepository is the expenses collection access layer. Every read and
// mutation is scoped to an owning user.
type ExpenseRepository interface {
	// Insert persists a new expense and fills in its id.
	Insert(ctx context.Context, expense *models.Expense) error

	// GetOwned returns an expense only when it belongs to userID.
	GetOwned(ctx context.Context, userID, id primitive.ObjectID) (*models.Expense, error)

	// DeleteOwned removes an expense only when it belongs to userID,
	// ErrNotFound otherwise.
	DeleteOwned(ctx context.Context, userID, id primitive.ObjectID) error

	// ListByUser returns the user's expenses, newest first.
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit, skip int64) ([]*models.Expense, error)

	// SumAmounts returns the live sum of the user's expense amounts.
	SumAmounts(ctx context.Context, userID primitive.ObjectID) (float64, error)

	// CategorySums groups the user's expenses by category, largest total first.
	CategorySums(ctx context.Context, userID primitive.ObjectID) ([]CategorySum, error)

	// MonthlyTotals groups the user's expenses created since the given time
	// by calendar month, chronological ascending.
	MonthlyTotals(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]MonthlyTotal, error)

	// EnsureIndexes creates the collection indexes.
	EnsureIndexes(ctx context.Context) error
}

// TransactionRepository is the transactions collection access layer.
type TransactionRepository interface {
	// Insert persists a new transaction and fills in its id.
	Insert(ctx context.Context, tx *models.Transaction) error

	// ListByUser returns the user's transactions, newest first.
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit, skip int64) ([]*models.Transaction, error)

	// CountByUser returns the number of transactions the user owns.
	CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)

	// DistinctCategories returns the user's distinct transaction categories.
	DistinctCategories(ctx context.Context, userID primitive.ObjectID) ([]string, error)

	// EnsureIndexes creates the collection indexes.
	EnsureIndexes(ctx context.Context) error
}
