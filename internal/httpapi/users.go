package httpapi

import (
	"errors"

	"expense_api/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleRegister(c *fiber.Ctx) error {
	req, err := parseBody[RegisterRequest](c)
	if req == nil {
		return err
	}

	user, err := s.auth.Register(c.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return domainErrorJSON(c, err)
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return domainErrorJSON(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	req, err := parseBody[LoginRequest](c)
	if req == nil {
		return err
	}

	user, token, err := s.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errorJSON(c, fiber.StatusUnauthorized, "invalid email or password")
		}
		return domainErrorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

func (s *Server) handleDeleteMe(c *fiber.Ctx) error {
	user := currentUser(c)
	if err := s.ledger.DeleteAccount(c.Context(), user.ID); err != nil {
		return domainErrorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSetBudget(c *fiber.Ctx) error {
	req, err := parseBody[BudgetRequest](c)
	if req == nil {
		return err
	}

	user := currentUser(c)
	if err := s.ledger.SetBudget(c.Context(), user.ID, req.Budget); err != nil {
		return domainErrorJSON(c, err)
	}

	updated, err := s.ledger.GetUser(c.Context(), user.ID)
	if err != nil {
		return domainErrorJSON(c, err)
	}
	return c.JSON(updated)
}
