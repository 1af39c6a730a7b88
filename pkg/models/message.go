package models

import "time"

// Sender identifies the author of a message
type Sender string

const (
	SenderBrand    Sender = "brand"
	SenderSupplier Sender = "supplier"
	SenderUser     Sender = "user" // out-of-band human intervention
)

// TokenUsage is reported by the agent for the turn that produced a message
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// MessageMetadata carries optional agent details. ToolCalls holds JSON-encoded tool call records.
type MessageMetadata struct {
	Model      string      `json:"model,omitempty"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	ToolCalls  []string    `json:"tool_calls,omitempty"`
}

// Message is an immutable entry in a negotiation transcript
type Message struct {
	ID            string           `json:"id" db:"id"`
	NegotiationID string           `json:"negotiation_id" db:"negotiation_id"`
	Sender        Sender           `json:"sender" db:"sender"`
	Content       string           `json:"content" db:"content"`
	Timestamp     time.Time        `json:"timestamp" db:"timestamp"`
	Metadata      *MessageMetadata `json:"metadata,omitempty" db:"-"`
}
