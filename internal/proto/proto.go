// Package proto defines the provider-agnostic request and message types
// exchanged with text-generation backends.
package proto

// Role is the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single prompt entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a text-generation request.
type Request struct {
	Messages    []Message
	API         string
	Model       string
	User        string
	Temperature *float64
	MaxTokens   *int64
}

// Chunk is an incremental piece of generated text.
type Chunk struct {
	Content string
}
