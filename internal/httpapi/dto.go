package httpapi

import (
	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// RegisterRequest is the user registration payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// BudgetRequest sets or clears the budget ceiling; null clears it.
type BudgetRequest struct {
	Budget *float64 `json:"budget" validate:"omitempty,gte=0"`
}

// ExpenseRequest is the manual expense creation payload.
type ExpenseRequest struct {
	Title       string  `json:"title" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
	Merchant    string  `json:"merchant"`
}

// TransactionRequest is the manual transaction creation payload. ExpenseID is
// an optional weak link to an expense.
type TransactionRequest struct {
	ExpenseID   string  `json:"expense_id"`
	Category    string  `json:"category" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
}

// ChatRequest is one chat message for the assistant.
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// parseBody binds and validates a JSON request body. A bind failure is a 400,
// a validation failure a 422; in both cases the response has already been
// written and the returned request is nil.
func parseBody[T any](c *fiber.Ctx) (*T, error) {
	var req T
	if err := c.BodyParser(&req); err != nil {
		return nil, errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return nil, errorJSON(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	return &req, nil
}
