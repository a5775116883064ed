package httpapi

import (
	"io"
	"path/filepath"
	"strings"

	"expense_api/internal/ledger"
	"expense_api/internal/ledger/models"
	"expense_api/internal/logger"
	"expense_api/internal/receipt"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// allowedMimeByExt gates receipt uploads to the formats the oracle handles.
var allowedMimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
}

func (s *Server) handleCreateExpense(c *fiber.Ctx) error {
	req, err := parseBody[ExpenseRequest](c)
	if req == nil {
		return err
	}

	user := currentUser(c)
	expense, err := s.ledger.CreateExpense(c.Context(), user.ID, ledger.ExpenseInput{
		Title:       req.Title,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Merchant:    req.Merchant,
		Source:      models.SourceManual,
	})
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(expense)
}

func (s *Server) handleListExpenses(c *fiber.Ctx) error {
	user := currentUser(c)
	limit := int64(c.QueryInt("limit", ledger.DefaultListLimit))
	skip := int64(c.QueryInt("skip", 0))

	expenses, err := s.ledger.ListExpenses(c.Context(), user.ID, limit, skip)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(expenses)
}

func (s *Server) handleDeleteExpense(c *fiber.Ctx) error {
	expenseID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid expense id")
	}

	user := currentUser(c)
	if err := s.ledger.DeleteExpense(c.Context(), user.ID, expenseID); err != nil {
		return domainErrorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleCreateTransaction(c *fiber.Ctx) error {
	req, err := parseBody[TransactionRequest](c)
	if req == nil {
		return err
	}

	input := ledger.TransactionInput{
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.ExpenseID != "" {
		expenseID, err := primitive.ObjectIDFromHex(req.ExpenseID)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid expense id")
		}
		input.ExpenseID = expenseID
	}

	user := currentUser(c)
	tx, err := s.ledger.CreateTransaction(c.Context(), user.ID, input)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

func (s *Server) handleListTransactions(c *fiber.Ctx) error {
	user := currentUser(c)
	limit := int64(c.QueryInt("limit", ledger.DefaultListLimit))
	skip := int64(c.QueryInt("skip", 0))

	transactions, err := s.ledger.ListTransactions(c.Context(), user.ID, limit, skip)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(transactions)
}

// handleUploadReceipt runs the receipt ingestion flow: gate the file type,
// hand the bytes to the extraction oracle, normalize the loose result into a
// validated candidate, then store the expense plus a linked audit
// transaction. An oracle failure is recoverable: the client is told to fall
// back to manual entry, nothing crashes.
func (s *Server) handleUploadReceipt(c *fiber.Ctx) error {
	if s.extractor == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "receipt processing is not configured")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "missing file upload")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	mimeType, ok := allowedMimeByExt[ext]
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "unsupported file type: "+ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "unreadable file upload")
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "unreadable file upload")
	}

	fields, err := s.extractor.ExtractReceipt(c.Context(), document, mimeType)
	if err != nil {
		return domainErrorJSON(c, &receipt.ExtractionError{Err: err})
	}

	candidate, err := receipt.Normalize(receipt.Extraction{
		Title:       fields.Title,
		Category:    fields.Category,
		Amount:      fields.Amount,
		Description: fields.Description,
		Merchant:    fields.Merchant,
		Text:        textDocument(document, mimeType),
	})
	if err != nil {
		return domainErrorJSON(c, err)
	}

	user := currentUser(c)
	expense, err := s.ledger.CreateExpense(c.Context(), user.ID, ledger.ExpenseInput{
		Title:       candidate.Title,
		Category:    candidate.Category,
		Amount:      candidate.Amount,
		Description: candidate.Description,
		Merchant:    candidate.Merchant,
		Source:      models.SourceReceipt,
	})
	if err != nil {
		return domainErrorJSON(c, err)
	}

	// Linked audit transaction. Failure here does not undo the expense; the
	// transaction ledger is secondary.
	if _, err := s.ledger.CreateTransaction(c.Context(), user.ID, ledger.TransactionInput{
		ExpenseID:   expense.ID,
		Category:    expense.Category,
		Amount:      expense.Amount,
		Description: expense.Description,
	}); err != nil {
		logger.L().Warnf("Audit transaction for receipt expense failed: expense_id=%s err=%v", expense.ID.Hex(), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "expense created from receipt",
		"expense": expense,
	})
}

// textDocument exposes plain-text uploads to the normalizer's free-text
// amount scan; binary formats contribute nothing there.
func textDocument(document []byte, mimeType string) string {
	if mimeType == "text/plain" {
		return string(document)
	}
	return ""
}
