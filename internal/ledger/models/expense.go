package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense provenance values.
const (
	SourceManual  = "manual"
	SourceReceipt = "receipt"
)

// Expense is a single spend record. Expenses count toward the owner's
// total_spent cache and are immutable once created, except for deletion.
type Expense struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title       string             `bson:"title" json:"title"`
	Category    string             `bson:"category" json:"category"`
	Amount      float64            `bson:"amount" json:"amount"`
	Description string             `bson:"description" json:"description"`
	Merchant    string             `bson:"merchant,omitempty" json:"merchant,omitempty"`
	Source      string             `bson:"source" json:"source"` // manual | receipt
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
