package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense_api/internal/ledger/models"
	"expense_api/internal/ledger/repository"
	"expense_api/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// List bounds enforced server-side on every paged read.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ExpenseInput carries the fields for a new expense.
type ExpenseInput struct {
	Title       string
	Category    string
	Amount      float64
	Description string
	Merchant    string
	Source      string // manual | receipt; defaults to manual
}

// TransactionInput carries the fields for a new audit transaction.
type TransactionInput struct {
	ExpenseID   primitive.ObjectID // optional weak link, zero value for none
	Category    string
	Amount      float64
	Description string
}

// Service is the ledger store: the authoritative write path for expenses and
// transactions. Expense mutations and their budget-cache adjustment are
// applied as one logical unit, with a compensating correction when the second
// half fails.
type Service struct {
	users        repository.UserRepository
	expenses     repository.ExpenseRepository
	transactions repository.TransactionRepository
	budget       *BudgetTracker
}

// NewService creates the ledger service.
func NewService(
	users repository.UserRepository,
	expenses repository.ExpenseRepository,
	transactions repository.TransactionRepository,
	budget *BudgetTracker,
) *Service {
	return &Service{
		users:        users,
		expenses:     expenses,
		transactions: transactions,
		budget:       budget,
	}
}

// Budget exposes the tracker for read-only collaborators.
func (s *Service) Budget() *BudgetTracker { return s.budget }

// CreateExpense validates and persists a new expense, then applies its amount
// to the owner's total_spent cache.
func (s *Service) CreateExpense(ctx context.Context, userID primitive.ObjectID, input ExpenseInput) (*models.Expense, error) {
	if input.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, &ValidationError{Field: "category", Reason: "must not be empty"}
	}

	source := input.Source
	if source == "" {
		source = models.SourceManual
	}

	expense := &models.Expense{
		UserID:      userID,
		Title:       input.Title,
		Category:    strings.TrimSpace(input.Category),
		Amount:      input.Amount,
		Description: input.Description,
		Merchant:    input.Merchant,
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.expenses.Insert(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	if err := s.budget.Apply(ctx, userID, expense.Amount); err != nil {
		// The expense row exists but the cache was not adjusted. Undo the
		// insert so the two stay in step; if that also fails the sweep will
		// repair the drift.
		if delErr := s.expenses.DeleteOwned(ctx, userID, expense.ID); delErr != nil && !errors.Is(delErr, repository.ErrNotFound) {
			logger.L().Errorf("Compensation failed, total_spent drift until reconcile: user_id=%s expense_id=%s err=%v",
				userID.Hex(), expense.ID.Hex(), delErr)
		}
		return nil, &InconsistencyError{Op: "create expense", Err: err}
	}

	logger.L().Infof("Expense created: user_id=%s expense_id=%s amount=%.2f category=%s source=%s",
		userID.Hex(), expense.ID.Hex(), expense.Amount, expense.Category, expense.Source)
	return expense, nil
}

// DeleteExpense removes an owned expense and reverses its effect on
// total_spent. Historical transactions referencing the expense are kept for
// audit. Cross-user deletes surface as not-found.
func (s *Service) DeleteExpense(ctx context.Context, userID, expenseID primitive.ObjectID) error {
	expense, err := s.expenses.GetOwned(ctx, userID, expenseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "expense", ID: expenseID.Hex()}
		}
		return fmt.Errorf("load expense for delete: %w", err)
	}

	if err := s.expenses.DeleteOwned(ctx, userID, expenseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Raced with another delete of the same expense.
			return &NotFoundError{Resource: "expense", ID: expenseID.Hex()}
		}
		return fmt.Errorf("delete expense: %w", err)
	}

	if err := s.budget.Apply(ctx, userID, -expense.Amount); err != nil {
		// Put the document back so ledger and cache stay consistent.
		if insErr := s.expenses.Insert(ctx, expense); insErr != nil {
			logger.L().Errorf("Compensation failed, total_spent drift until reconcile: user_id=%s expense_id=%s err=%v",
				userID.Hex(), expenseID.Hex(), insErr)
		}
		return &InconsistencyError{Op: "delete expense", Err: err}
	}

	logger.L().Infof("Expense deleted: user_id=%s expense_id=%s amount=%.2f",
		userID.Hex(), expenseID.Hex(), expense.Amount)
	return nil
}

// CreateTransaction persists an audit transaction. Transactions never touch
// total_spent; only expenses move the budget cache.
func (s *Service) CreateTransaction(ctx context.Context, userID primitive.ObjectID, input TransactionInput) (*models.Transaction, error) {
	if input.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, &ValidationError{Field: "category", Reason: "must not be empty"}
	}

	tx := &models.Transaction{
		UserID:      userID,
		ExpenseID:   input.ExpenseID,
		Category:    strings.TrimSpace(input.Category),
		Amount:      input.Amount,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.transactions.Insert(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	logger.L().Infof("Transaction created: user_id=%s transaction_id=%s amount=%.2f",
		userID.Hex(), tx.ID.Hex(), tx.Amount)
	return tx, nil
}

// ListExpenses returns the user's expenses newest first, with limit and skip
// clamped server-side.
func (s *Service) ListExpenses(ctx context.Context, userID primitive.ObjectID, limit, skip int64) ([]*models.Expense, error) {
	limit, skip = clampListBounds(limit, skip)
	expenses, err := s.expenses.ListByUser(ctx, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// ListTransactions returns the user's transactions newest first, with limit
// and skip clamped server-side.
func (s *Service) ListTransactions(ctx context.Context, userID primitive.ObjectID, limit, skip int64) ([]*models.Transaction, error) {
	limit, skip = clampListBounds(limit, skip)
	transactions, err := s.transactions.ListByUser(ctx, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "user", ID: userID.Hex()}
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// DeleteAccount removes the user document. Their expenses and transactions
// stay behind as orphaned history; without the user no token resolves to them.
func (s *Service) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "user", ID: userID.Hex()}
		}
		return fmt.Errorf("delete account: %w", err)
	}

	logger.L().Infof("Account deleted: user_id=%s", userID.Hex())
	return nil
}

// SetBudget sets or clears the user's budget ceiling. The budget itself may
// be any non-negative value; nil clears it.
func (s *Service) SetBudget(ctx context.Context, userID primitive.ObjectID, budget *float64) error {
	if budget != nil && *budget < 0 {
		return &ValidationError{Field: "budget", Reason: "must not be negative"}
	}

	if err := s.users.UpdateBudget(ctx, userID, budget); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "user", ID: userID.Hex()}
		}
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// clampListBounds enforces server-side pagination limits: limit falls back to
// the default when non-positive and is capped at the maximum, skip is floored
// at zero.
func clampListBounds(limit, skip int64) (int64, int64) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
