package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"expense_api/internal/ledger/models"
	"expense_api/internal/ledger/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. They hold the same contracts as the Mongo
// implementations (ErrNotFound semantics, owner-scoped filters, atomic
// total_spent increments) so the service can be exercised without a database.

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*models.User
	applyErr error // injected ApplyTotalSpent failure
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateBudget(_ context.Context, id primitive.ObjectID, budget *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Budget = budget
	return nil
}

func (r *fakeUserRepo) ApplyTotalSpent(_ context.Context, id primitive.ObjectID, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.TotalSpent += delta
	return nil
}

func (r *fakeUserRepo) SetTotalSpent(_ context.Context, id primitive.ObjectID, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.TotalSpent = value
	return nil
}

func (r *fakeUserRepo) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) ListIDs(_ context.Context) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]primitive.ObjectID, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeUserRepo) EnsureIndexes(context.Context) error { return nil }

type fakeExpenseRepo struct {
	mu        sync.Mutex
	expenses  map[primitive.ObjectID]*models.Expense
	insertErr error // injected Insert failure
	deleteErr error // injected DeleteOwned failure
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: make(map[primitive.ObjectID]*models.Expense)}
}

func (r *fakeExpenseRepo) Insert(_ context.Context, expense *models.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if expense.ID.IsZero() {
		expense.ID = primitive.NewObjectID()
	}
	clone := *expense
	r.expenses[expense.ID] = &clone
	return nil
}

func (r *fakeExpenseRepo) GetOwned(_ context.Context, userID, id primitive.ObjectID) (*models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expense, ok := r.expenses[id]
	if !ok || expense.UserID != userID {
		return nil, repository.ErrNotFound
	}
	clone := *expense
	return &clone, nil
}

func (r *fakeExpenseRepo) DeleteOwned(_ context.Context, userID, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	expense, ok := r.expenses[id]
	if !ok || expense.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.expenses, id)
	return nil
}

func (r *fakeExpenseRepo) ListByUser(_ context.Context, userID primitive.ObjectID, limit, skip int64) ([]*models.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var owned []*models.Expense
	for _, expense := range r.expenses {
		if expense.UserID == userID {
			clone := *expense
			owned = append(owned, &clone)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	return page(owned, limit, skip), nil
}

func (r *fakeExpenseRepo) SumAmounts(_ context.Context, userID primitive.ObjectID) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, expense := range r.expenses {
		if expense.UserID == userID {
			sum += expense.Amount
		}
	}
	return sum, nil
}

func (r *fakeExpenseRepo) CategorySums(_ context.Context, userID primitive.ObjectID) ([]repository.CategorySum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCategory := make(map[string]*repository.CategorySum)
	for _, expense := range r.expenses {
		if expense.UserID != userID {
			continue
		}
		sum, ok := byCategory[expense.Category]
		if !ok {
			sum = &repository.CategorySum{Category: expense.Category}
			byCategory[expense.Category] = sum
		}
		sum.Total += expense.Amount
		sum.Count++
	}
	sums := make([]repository.CategorySum, 0, len(byCategory))
	for _, sum := range byCategory {
		sums = append(sums, *sum)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].Total > sums[j].Total })
	return sums, nil
}

func (r *fakeExpenseRepo) MonthlyTotals(_ context.Context, userID primitive.ObjectID, since time.Time) ([]repository.MonthlyTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byMonth := make(map[[2]int]*repository.MonthlyTotal)
	for _, expense := range r.expenses {
		if expense.UserID != userID || expense.CreatedAt.Before(since) {
			continue
		}
		key := [2]int{expense.CreatedAt.Year(), int(expense.CreatedAt.Month())}
		total, ok := byMonth[key]
		if !ok {
			total = &repository.MonthlyTotal{Year: key[0], Month: key[1]}
			byMonth[key] = total
		}
		total.Total += expense.Amount
		total.Count++
	}
	totals := make([]repository.MonthlyTotal, 0, len(byMonth))
	for _, total := range byMonth {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Year != totals[j].Year {
			return totals[i].Year < totals[j].Year
		}
		return totals[i].Month < totals[j].Month
	})
	return totals, nil
}

func (r *fakeExpenseRepo) EnsureIndexes(context.Context) error { return nil }

type fakeTransactionRepo struct {
	mu           sync.Mutex
	transactions []*models.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{}
}

func (r *fakeTransactionRepo) Insert(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	clone := *tx
	r.transactions = append(r.transactions, &clone)
	return nil
}

func (r *fakeTransactionRepo) ListByUser(_ context.Context, userID primitive.ObjectID, limit, skip int64) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var owned []*models.Transaction
	for _, tx := range r.transactions {
		if tx.UserID == userID {
			clone := *tx
			owned = append(owned, &clone)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	return page(owned, limit, skip), nil
}

func (r *fakeTransactionRepo) CountByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, tx := range r.transactions {
		if tx.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTransactionRepo) DistinctCategories(_ context.Context, userID primitive.ObjectID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var categories []string
	for _, tx := range r.transactions {
		if tx.UserID == userID && !seen[tx.Category] {
			seen[tx.Category] = true
			categories = append(categories, tx.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (r *fakeTransactionRepo) EnsureIndexes(context.Context) error { return nil }

func page[T any](items []T, limit, skip int64) []T {
	if skip >= int64(len(items)) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && int64(len(items)) > limit {
		items = items[:limit]
	}
	return items
}
