package chat

import (
	"context"
	"fmt"

	"expense_api/internal/ai/gemini"
	"expense_api/internal/ledger/models"
	"expense_api/internal/logger"
)

// Replier generates a grounded assistant reply. Satisfied by the gemini
// client; tests substitute a fake.
type Replier interface {
	ChatReply(ctx context.Context, systemPrompt string, history []gemini.Message, userMessage string) (string, error)
}

// ContextSource produces the financial digest a reply is grounded with.
// Satisfied by ContextBuilder.
type ContextSource interface {
	BuildContext(ctx context.Context, user *models.User) (string, error)
}

// Agent runs one conversational turn: it grounds the model with the user's
// financial digest and bounded history, then records both sides of the
// exchange.
type Agent struct {
	ai      Replier
	builder ContextSource
	history *History
}

// NewAgent creates a chat agent.
func NewAgent(ai Replier, builder ContextSource, history *History) *Agent {
	return &Agent{
		ai:      ai,
		builder: builder,
		history: history,
	}
}

// Ask answers one user message grounded in that user's own ledger data.
func (a *Agent) Ask(ctx context.Context, user *models.User, message string) (string, error) {
	digest, err := a.builder.BuildContext(ctx, user)
	if err != nil {
		// A missing digest degrades the answer but should not kill the turn.
		logger.L().Warnf("Chat digest unavailable, answering without it: user_id=%s err=%v", user.ID.Hex(), err)
		digest = "You are a helpful financial assistant for an expense management application.\n"
	}

	userID := user.ID.Hex()
	turns := a.history.Turns(userID)
	history := make([]gemini.Message, len(turns))
	for i, t := range turns {
		history[i] = gemini.Message{Role: t.Role, Content: t.Text}
	}

	reply, err := a.ai.ChatReply(ctx, digest, history, message)
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}

	a.history.Append(userID, Turn{Role: RoleUser, Text: message})
	a.history.Append(userID, Turn{Role: RoleAssistant, Text: reply})

	return reply, nil
}

// ClearHistory empties the user's conversation. Idempotent.
func (a *Agent) ClearHistory(userID string) {
	a.history.Clear(userID)
}
