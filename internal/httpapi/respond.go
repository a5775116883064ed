package httpapi

import (
	"errors"

	"expense_api/internal/ledger"
	"expense_api/internal/receipt"

	"github.com/gofiber/fiber/v2"
)

// errorJSON writes the error envelope the original API exposed.
func errorJSON(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}

// domainErrorJSON maps typed core failures onto distinguishable HTTP
// outcomes so clients can decide whether to retry, prompt, or give up.
func domainErrorJSON(c *fiber.Ctx, err error) error {
	var (
		validationErr    *ledger.ValidationError
		notFoundErr      *ledger.NotFoundError
		inconsistencyErr *ledger.InconsistencyError
		unparseableErr   *receipt.UnparseableAmountError
		extractionErr    *receipt.ExtractionError
	)

	switch {
	case errors.As(err, &validationErr):
		return errorJSON(c, fiber.StatusUnprocessableEntity, validationErr.Error())
	case errors.As(err, &notFoundErr):
		return errorJSON(c, fiber.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &unparseableErr):
		return errorJSON(c, fiber.StatusBadRequest, unparseableErr.Error())
	case errors.As(err, &extractionErr):
		return errorJSON(c, fiber.StatusBadGateway, extractionErr.Error())
	case errors.As(err, &inconsistencyErr):
		return errorJSON(c, fiber.StatusInternalServerError, inconsistencyErr.Error())
	default:
		return errorJSON(c, fiber.StatusInternalServerError, "internal server error")
	}
}
