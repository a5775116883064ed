package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense_api/internal/ledger/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoExpenseRepository is the MongoDB implementation of ExpenseRepository.
type MongoExpenseRepository struct {
	collection *mongo.Collection
}

// NewMongoExpenseRepository creates an expenses repository.
func NewMongoExpenseRepository(db *mongo.Database) ExpenseRepository {
	return &MongoExpenseRepository{
		collection: db.Collection("expenses"),
	}
}

// Insert persists an expense. When the expense already carries an id (the
// compensation path re-inserting a deleted document) that id is kept.
func (r *MongoExpenseRepository) Insert(ctx context.Context, expense *models.Expense) error {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, expense)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		expense.ID = oid
	}
	return nil
}

// GetOwned returns the expense only when userID owns it.
func (r *MongoExpenseRepository) GetOwned(ctx context.Context, userID, id primitive.ObjectID) (*models.Expense, error) {
	var expense models.Expense
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&expense)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &expense, nil
}

// DeleteOwned removes the expense only when userID owns it. The ownership
// check lives in the delete filter itself so a cross-user delete can never
// race past it.
func (r *MongoExpenseRepository) DeleteOwned(ctx context.Context, userID, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns the user's expenses sorted by created_at descending.
func (r *MongoExpenseRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, limit, skip int64) ([]*models.Expense, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var expenses []*models.Expense
	if err = cursor.All(ctx, &expenses); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	return expenses, nil
}

// SumAmounts computes the live sum of the user's expense amounts.
func (r *MongoExpenseRepository) SumAmounts(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expense amounts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode expense sum: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// CategorySums groups the user's expenses by category, largest total first.
func (r *MongoExpenseRepository) CategorySums(ctx context.Context, userID primitive.ObjectID) ([]CategorySum, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category",
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total", Value: -1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category sums: %w", err)
	}
	defer cursor.Close(ctx)

	var sums []CategorySum
	if err = cursor.All(ctx, &sums); err != nil {
		return nil, fmt.Errorf("failed to decode category sums: %w", err)
	}
	return sums, nil
}

// MonthlyTotals groups the user's expenses created since the given time by
// calendar month, chronological ascending. Months with no expenses are absent
// from the result; the analytics engine zero-fills them.
func (r *MongoExpenseRepository) MonthlyTotals(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]MonthlyTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":    userID,
			"created_at": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$created_at"},
				"month": bson.M{"$month": "$created_at"},
			},
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.year", Value: 1},
			{Key: "_id.month", Value: 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":   0,
			"year":  "$_id.year",
			"month": "$_id.month",
			"total": 1,
			"count": 1,
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly totals: %w", err)
	}
	defer cursor.Close(ctx)

	var totals []MonthlyTotal
	if err = cursor.All(ctx, &totals); err != nil {
		return nil, fmt.Errorf("failed to decode monthly totals: %w", err)
	}
	return totals, nil
}

// EnsureIndexes creates the owner/listing indexes.
func (r *MongoExpenseRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "category", Value: 1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create expense indexes: %w", err)
	}
	return nil
}
