package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account holder. TotalSpent is a derived cache of the sum of the
// user's expense amounts; it is only ever written through the budget tracker's
// atomic update path or the reconciliation sweep.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Budget       *float64           `bson:"budget,omitempty" json:"budget,omitempty"` // nil means no ceiling set
	TotalSpent   float64            `bson:"total_spent" json:"total_spent"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// IsOverBudget reports whether the cached spend exceeds the budget ceiling.
// Always false when no budget is set.
func (u *User) IsOverBudget() bool {
	return u.Budget != nil && u.TotalSpent > *u.Budget
}

// RemainingBudget returns max(0, budget-total_spent), or 0 when no budget is set.
func (u *User) RemainingBudget() float64 {
	if u.Budget == nil {
		return 0
	}
	if remaining := *u.Budget - u.TotalSpent; remaining > 0 {
		return remaining
	}
	return 0
}
