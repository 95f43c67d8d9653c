package model

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ConversationMessage is a single turn of caller-supplied history. History
// lives entirely on the caller side; the service never persists it.
type ConversationMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"` // epoch millis
}

// LastUserMessage returns the most recent user turn, scanning backward.
// Returns false when the history holds no user turns.
func LastUserMessage(history []ConversationMessage) (ConversationMessage, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i], true
		}
	}
	return ConversationMessage{}, false
}

// TruncateHistory keeps the most recent max turns.
func TruncateHistory(history []ConversationMessage, max int) []ConversationMessage {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
