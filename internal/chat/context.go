package chat

import (
	"context"
	"fmt"
	"strings"

	"expense_api/internal/analytics"
	"expense_api/internal/ledger/models"
)

// Digest bounds: how much ledger detail one chat turn is grounded with.
const (
	contextTopCategories      = 3
	contextRecentTransactions = 5
)

// ContextBuilder assembles a bounded financial digest for one user. It only
// reads from the aggregation engine; it never writes to the ledger, and it
// never sees another user's data because every read is keyed by the user.
type ContextBuilder struct {
	engine *analytics.Engine
}

// NewContextBuilder creates a context builder over the aggregation engine.
func NewContextBuilder(engine *analytics.Engine) *ContextBuilder {
	return &ContextBuilder{engine: engine}
}

// BuildContext produces the compact digest handed to the model alongside the
// conversation history.
func (b *ContextBuilder) BuildContext(ctx context.Context, user *models.User) (string, error) {
	var sb strings.Builder

	sb.WriteString("You are a helpful financial assistant for an expense management application.\n")
	sb.WriteString("Answer using the user's own financial context below. Be specific with amounts and percentages.\n\n")
	fmt.Fprintf(&sb, "User: %s\n", user.Username)
	fmt.Fprintf(&sb, "Total spent: $%.2f\n", user.TotalSpent)

	if user.Budget != nil {
		fmt.Fprintf(&sb, "Budget: $%.2f\n", *user.Budget)
		fmt.Fprintf(&sb, "Remaining budget: $%.2f\n", user.RemainingBudget())
		if user.IsOverBudget() {
			sb.WriteString("The user is currently OVER budget.\n")
		}
	} else {
		sb.WriteString("No budget is set.\n")
	}

	categories, err := b.engine.CategoryBreakdown(ctx, user.ID, contextTopCategories)
	if err != nil {
		return "", fmt.Errorf("build chat context: %w", err)
	}
	if len(categories) > 0 {
		sb.WriteString("\nTop spending categories:\n")
		for _, c := range categories {
			fmt.Fprintf(&sb, "- %s: $%.2f (%.1f%%)\n", c.Category, c.TotalAmount, c.PercentageOfTotal)
		}
	}

	known, err := b.engine.TransactionCategories(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("build chat context: %w", err)
	}
	if len(known) > 0 {
		fmt.Fprintf(&sb, "\nCategories used so far: %s\n", strings.Join(known, ", "))
	}

	recent, err := b.engine.RecentTransactions(ctx, user.ID, contextRecentTransactions)
	if err != nil {
		return "", fmt.Errorf("build chat context: %w", err)
	}
	if len(recent) > 0 {
		sb.WriteString("\nRecent transactions:\n")
		for _, t := range recent {
			fmt.Fprintf(&sb, "- %s: $%.2f (%s)\n", t.Category, t.Amount, t.Description)
		}
	}

	return sb.String(), nil
}
