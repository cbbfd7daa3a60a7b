package model

// Chat roles accepted by the LLM gateway for conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn of conversation history passed to the LLM
// gateway. Role must be RoleUser or RoleAssistant; the system prompt travels
// separately.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Scope identifies the conversation a request belongs to.
type Scope struct {
	ChatID string
	UserID string
}
