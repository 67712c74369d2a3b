package interfaces

import "context"

// Message represents a single chat message in a conversation
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMService provides chat completions for the planner
type LLMService interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
