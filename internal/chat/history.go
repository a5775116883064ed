package chat

import (
	"sync"
	"time"
)

// Chat turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a user's conversation with the assistant.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// History keeps a bounded, per-user conversation window in memory. Once the
// window is full the oldest turn is dropped. All access goes through the
// mutex, so a concurrent read never observes a partially-cleared sequence.
type History struct {
	mu    sync.RWMutex
	limit int
	turns map[string][]Turn
}

// NewHistory creates a history store retaining at most limit turns per user.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{
		limit: limit,
		turns: make(map[string][]Turn),
	}
}

// Append records a turn for the user, evicting the oldest when the window
// is full.
func (h *History) Append(userID string, turn Turn) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	turns := append(h.turns[userID], turn)
	if len(turns) > h.limit {
		turns = turns[len(turns)-h.limit:]
	}
	h.turns[userID] = turns
}

// Turns returns a copy of the user's conversation window, oldest first.
func (h *History) Turns(userID string) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	turns := h.turns[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Len returns the number of retained turns for the user.
func (h *History) Len(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns[userID])
}

// Clear empties the user's conversation wholesale. Clearing an already-empty
// history is a no-op success.
func (h *History) Clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.turns, userID)
}
