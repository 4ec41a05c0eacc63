package llm

import "context"

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Provider produces one completion for an ordered list of chat messages.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}
