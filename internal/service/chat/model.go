package chat

import "time"

// ModelSpec describes one entry of the injected model catalog.
type ModelSpec struct {
	ContextTokens        int
	ReservedOutputTokens int
	CreditKind           string
	Premium              bool
}

type TurnMessage struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// estimateTokens approximates the token count as one token per four
// characters.
func estimateTokens(text string) int {
	return len(text)/4 + 1
}

// trimToBudget selects messages most-recent-first until the token budget is
// exhausted, then drops any leading assistant-only prefix so the window
// starts at a user message.
func trimToBudget(msgs []TurnMessage, budget int) []TurnMessage {
	start := len(msgs)
	remaining := budget

	for i := len(msgs) - 1; i >= 0; i-- {
		cost := estimateTokens(msgs[i].Content)
		if cost > remaining {
			break
		}
		remaining -= cost
		start = i
	}

	// always keep the latest message, even when it alone busts the budget
	if start == len(msgs) && len(msgs) > 0 {
		start = len(msgs) - 1
	}

	trimmed := msgs[start:]

	for len(trimmed) > 0 && trimmed[0].Role != "user" {
		trimmed = trimmed[1:]
	}

	return trimmed
}
