package analytics

import (
	"math"
	"testing"
	"time"

	"expense_api/internal/ledger/models"
	"expense_api/internal/ledger/repository"
)

func TestBuildBreakdownPercentagesSumToTotal(t *testing.T) {
	sums := []repository.CategorySum{
		{Category: "Food", Total: 300, Count: 6},
		{Category: "Travel", Total: 150, Count: 2},
		{Category: "Utilities", Total: 50, Count: 1},
	}

	breakdown := buildBreakdown(sums, 0)
	if len(breakdown) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(breakdown))
	}

	var totalAmount, totalPct float64
	for _, row := range breakdown {
		totalAmount += row.TotalAmount
		totalPct += row.PercentageOfTotal
	}
	if totalAmount != 500 {
		t.Errorf("amounts sum to %.2f, want 500", totalAmount)
	}
	if math.Abs(totalPct-100) > 1e-9 {
		t.Errorf("percentages sum to %.4f, want 100", totalPct)
	}
	if breakdown[0].PercentageOfTotal != 60 {
		t.Errorf("Food percentage = %.2f, want 60", breakdown[0].PercentageOfTotal)
	}
}

func TestBuildBreakdownZeroTotal(t *testing.T) {
	breakdown := buildBreakdown([]repository.CategorySum{
		{Category: "Food", Total: 0, Count: 0},
	}, 0)

	if len(breakdown) != 1 {
		t.Fatalf("expected 1 row, got %d", len(breakdown))
	}
	if breakdown[0].PercentageOfTotal != 0 {
		t.Errorf("percentage = %.2f, want 0 when total is 0", breakdown[0].PercentageOfTotal)
	}
}

func TestBuildBreakdownTopN(t *testing.T) {
	sums := []repository.CategorySum{
		{Category: "Food", Total: 300},
		{Category: "Travel", Total: 150},
		{Category: "Utilities", Total: 50},
	}

	breakdown := buildBreakdown(sums, 2)
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(breakdown))
	}
	// Percentages stay relative to the full total, not the truncated slice.
	if breakdown[0].PercentageOfTotal != 60 {
		t.Errorf("Food percentage = %.2f, want 60", breakdown[0].PercentageOfTotal)
	}
}

func TestFillTrendCompleteWindow(t *testing.T) {
	// Window: Jan 2026 .. Jun 2026, with data only in Feb and May.
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	totals := []repository.MonthlyTotal{
		{Year: 2026, Month: 2, Total: 80, Count: 3},
		{Year: 2026, Month: 5, Total: 20, Count: 1},
	}

	trend := fillTrend(totals, start, 6)
	if len(trend) != 6 {
		t.Fatalf("expected exactly 6 entries, got %d", len(trend))
	}

	wantMonths := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}
	for i, want := range wantMonths {
		if trend[i].Month != want || trend[i].Year != 2026 {
			t.Errorf("entry %d = %s %d, want %s 2026", i, trend[i].Month, trend[i].Year, want)
		}
	}

	if trend[1].TotalAmount != 80 || trend[1].TransactionCount != 3 {
		t.Errorf("Feb entry = %+v, want total 80 count 3", trend[1])
	}
	if trend[4].TotalAmount != 20 {
		t.Errorf("May entry = %+v, want total 20", trend[4])
	}
	for _, i := range []int{0, 2, 3, 5} {
		if trend[i].TotalAmount != 0 || trend[i].TransactionCount != 0 {
			t.Errorf("entry %d = %+v, want zero-filled", i, trend[i])
		}
	}
}

func TestFillTrendSpansYearBoundary(t *testing.T) {
	start := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)

	trend := fillTrend(nil, start, 4)
	if len(trend) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(trend))
	}
	if trend[0].Month != "Nov" || trend[0].Year != 2025 {
		t.Errorf("first entry = %s %d, want Nov 2025", trend[0].Month, trend[0].Year)
	}
	if trend[3].Month != "Feb" || trend[3].Year != 2026 {
		t.Errorf("last entry = %s %d, want Feb 2026", trend[3].Month, trend[3].Year)
	}
}

func TestBuildSummary(t *testing.T) {
	budget := 200.0
	over := 100.0

	tests := []struct {
		name            string
		user            *models.User
		wantUtilization float64
		wantRemaining   float64
		wantOver        bool
	}{
		{
			name:            "half used",
			user:            &models.User{Budget: &budget, TotalSpent: 100},
			wantUtilization: 50,
			wantRemaining:   100,
		},
		{
			name:            "over budget caps utilization",
			user:            &models.User{Budget: &over, TotalSpent: 250},
			wantUtilization: 100,
			wantRemaining:   -150,
			wantOver:        true,
		},
		{
			name: "no budget set",
			user: &models.User{TotalSpent: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := buildSummary(tt.user, nil)
			if summary.BudgetUtilizationPercentage != tt.wantUtilization {
				t.Errorf("utilization = %.2f, want %.2f", summary.BudgetUtilizationPercentage, tt.wantUtilization)
			}
			if summary.RemainingBudget != tt.wantRemaining {
				t.Errorf("remaining = %.2f, want %.2f", summary.RemainingBudget, tt.wantRemaining)
			}
			if summary.OverBudget != tt.wantOver {
				t.Errorf("over = %v, want %v", summary.OverBudget, tt.wantOver)
			}
			if summary.TotalSpent != tt.user.TotalSpent {
				t.Errorf("total_spent = %.2f, want %.2f", summary.TotalSpent, tt.user.TotalSpent)
			}
		})
	}
}
