package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction is a secondary audit record. ExpenseID is a weak link: the
// referenced expense may be deleted while the transaction remains, so the
// field can point at a document that no longer exists. Transactions never
// change the owner's total_spent; only expenses do.
type Transaction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	ExpenseID   primitive.ObjectID `bson:"expense_id,omitempty" json:"expense_id,omitempty"`
	Category    string             `bson:"category" json:"category"`
	Amount      float64            `bson:"amount" json:"amount"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
