package analytics

import (
	"context"
	"fmt"
	"time"

	"expense_api/internal/ledger/models"
	"expense_api/internal/ledger/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Defaults for the composite dashboard view.
const (
	DefaultTrendMonths  = 6
	MaxTrendMonths      = 24
	DefaultTopN         = 10
	DefaultRecentLimit  = 10
	dashboardTopN       = 5
	dashboardRecentSize = 10
)

// CategorySpending is one row of the category breakdown.
type CategorySpending struct {
	Category          string  `json:"category"`
	TotalAmount       float64 `json:"total_amount"`
	TransactionCount  int64   `json:"transaction_count"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
}

// MonthlySpending is one month of the spending trend. Months with no
// expenses appear with zero totals so charts have no gaps.
type MonthlySpending struct {
	Month            string  `json:"month"`
	Year             int     `json:"year"`
	TotalAmount      float64 `json:"total_amount"`
	TransactionCount int64   `json:"transaction_count"`
}

// SpendingSummary mirrors the external summary contract.
type SpendingSummary struct {
	TotalSpent                  float64            `json:"total_spent"`
	Budget                      float64            `json:"budget"`
	RemainingBudget             float64            `json:"remaining_budget"`
	BudgetUtilizationPercentage float64            `json:"budget_utilization_percentage"`
	OverBudget                  bool               `json:"over_budget"`
	Categories                  []CategorySpending `json:"categories"`
}

// UserInfo is the user slice of the dashboard composite.
type UserInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Dashboard is the composite view: a pure composition of the other reads.
type Dashboard struct {
	UserInfo           UserInfo              `json:"user_info"`
	SpendingSummary    SpendingSummary       `json:"spending_summary"`
	RecentTransactions []*models.Transaction `json:"recent_transactions"`
	TopCategories      []CategorySpending    `json:"top_categories"`
	MonthlyTrends      []MonthlySpending     `json:"monthly_trends"`
	TotalTransactions  int64                 `json:"total_transactions"`
}

// Engine computes read-side aggregates over a user's ledger. Every call
// reads current state fresh; there is no cache to go stale.
type Engine struct {
	users        repository.UserRepository
	expenses     repository.ExpenseRepository
	transactions repository.TransactionRepository
}

// NewEngine creates the aggregation engine.
func NewEngine(
	users repository.UserRepository,
	expenses repository.ExpenseRepository,
	transactions repository.TransactionRepository,
) *Engine {
	return &Engine{
		users:        users,
		expenses:     expenses,
		transactions: transactions,
	}
}

// CategoryBreakdown groups the user's expenses by category, descending by
// total, truncated to topN when topN > 0. Percentages are of the overall
// total and defined as 0 when the total is 0.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID primitive.ObjectID, topN int) ([]CategorySpending, error) {
	sums, err := e.expenses.CategorySums(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return buildBreakdown(sums, topN), nil
}

// buildBreakdown converts raw category sums into percentage rows. Split out
// so the arithmetic is testable without a store.
func buildBreakdown(sums []repository.CategorySum, topN int) []CategorySpending {
	var total float64
	for _, s := range sums {
		total += s.Total
	}

	if topN > 0 && len(sums) > topN {
		sums = sums[:topN]
	}

	breakdown := make([]CategorySpending, len(sums))
	for i, s := range sums {
		var pct float64
		if total > 0 {
			pct = s.Total / total * 100
		}
		breakdown[i] = CategorySpending{
			Category:          s.Category,
			TotalAmount:       s.Total,
			TransactionCount:  s.Count,
			PercentageOfTotal: pct,
		}
	}
	return breakdown
}

// MonthlyTrend returns exactly `months` trailing calendar months in
// chronological order, current month last, zero-filled where no expenses
// exist.
func (e *Engine) MonthlyTrend(ctx context.Context, userID primitive.ObjectID, months int) ([]MonthlySpending, error) {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	if months > MaxTrendMonths {
		months = MaxTrendMonths
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	totals, err := e.expenses.MonthlyTotals(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}

	return fillTrend(totals, start, months), nil
}

// fillTrend walks the month window and merges in the aggregated totals.
func fillTrend(totals []repository.MonthlyTotal, start time.Time, months int) []MonthlySpending {
	byMonth := make(map[[2]int]repository.MonthlyTotal, len(totals))
	for _, t := range totals {
		byMonth[[2]int{t.Year, t.Month}] = t
	}

	trend := make([]MonthlySpending, 0, months)
	cursor := start
	for i := 0; i < months; i++ {
		entry := MonthlySpending{
			Month: cursor.Month().String()[:3],
			Year:  cursor.Year(),
		}
		if t, ok := byMonth[[2]int{cursor.Year(), int(cursor.Month())}]; ok {
			entry.TotalAmount = t.Total
			entry.TransactionCount = t.Count
		}
		trend = append(trend, entry)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return trend
}

// Summary builds the spending summary for a user: cached total, budget
// metrics, and the full category breakdown.
func (e *Engine) Summary(ctx context.Context, user *models.User) (SpendingSummary, error) {
	categories, err := e.CategoryBreakdown(ctx, user.ID, 0)
	if err != nil {
		return SpendingSummary{}, err
	}
	return buildSummary(user, categories), nil
}

func buildSummary(user *models.User, categories []CategorySpending) SpendingSummary {
	summary := SpendingSummary{
		TotalSpent: user.TotalSpent,
		OverBudget: user.IsOverBudget(),
		Categories: categories,
	}

	if user.Budget != nil {
		summary.Budget = *user.Budget
		summary.RemainingBudget = user.RemainingBudget()
		if *user.Budget > 0 {
			utilization := user.TotalSpent / *user.Budget * 100
			if utilization > 100 {
				utilization = 100
			}
			summary.BudgetUtilizationPercentage = utilization
		}
	}
	return summary
}

// Dashboard assembles the composite view. No new aggregation logic lives
// here; it composes the reads above plus the most recent transactions.
func (e *Engine) Dashboard(ctx context.Context, user *models.User) (*Dashboard, error) {
	summary, err := e.Summary(ctx, user)
	if err != nil {
		return nil, err
	}

	topCategories := summary.Categories
	if len(topCategories) > dashboardTopN {
		topCategories = topCategories[:dashboardTopN]
	}

	trends, err := e.MonthlyTrend(ctx, user.ID, DefaultTrendMonths)
	if err != nil {
		return nil, err
	}

	recent, err := e.transactions.ListByUser(ctx, user.ID, dashboardRecentSize, 0)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}

	txCount, err := e.transactions.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("transaction count: %w", err)
	}

	return &Dashboard{
		UserInfo: UserInfo{
			ID:        user.ID.Hex(),
			Username:  user.Username,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		},
		SpendingSummary:    summary,
		RecentTransactions: recent,
		TopCategories:      topCategories,
		MonthlyTrends:      trends,
		TotalTransactions:  txCount,
	}, nil
}

// TransactionCategories returns the user's distinct transaction categories.
func (e *Engine) TransactionCategories(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	categories, err := e.transactions.DistinctCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("transaction categories: %w", err)
	}
	return categories, nil
}

// RecentTransactions returns the most recent transactions for a user.
func (e *Engine) RecentTransactions(ctx context.Context, userID primitive.ObjectID, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	transactions, err := e.transactions.ListByUser(ctx, userID, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return transactions, nil
}
