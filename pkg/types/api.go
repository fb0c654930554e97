package types

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	// Prompt text forwarded to the backend. Must not be blank.
	// example: Why is the sky blue?
	Content string `json:"content" example:"Why is the sky blue?"`
}

// StreamChunk is one NDJSON line of a chat stream. Exactly one of the fields is set:
// Response for a generated fragment, Error for the terminal failure line.
type StreamChunk struct {
	// Generated text fragment.
	// example: The sky
	Response *string `json:"response,omitempty" example:"The sky"`
	// Terminal error message; no further lines follow.
	// example: backend unavailable
	Error string `json:"error,omitempty" example:"backend unavailable"`
}

// ResponseChunk builds a fragment chunk.
func ResponseChunk(s string) StreamChunk { return StreamChunk{Response: &s} }

// ErrorChunk builds a terminal error chunk.
func ErrorChunk(msg string) StreamChunk { return StreamChunk{Error: msg} }

// IsError reports whether the chunk terminates the stream with an error.
func (c StreamChunk) IsError() bool { return c.Response == nil }

// MessageResponse is returned by the backend lifecycle and config update endpoints.
type MessageResponse struct {
	// example: Ollama service started
	Message string `json:"message" example:"Ollama service started"`
}

// StatusResponse is returned by GET /api/ollama/status.
type StatusResponse struct {
	// Either "running" or "stopped".
	// example: running
	Status string `json:"status" example:"running"`
}

// Backend status values.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// ConfigResponse is returned by GET /api/config.
type ConfigResponse struct {
	// example: deepseek-r1:8b
	Model string `json:"model" example:"deepseek-r1:8b"`
	// example: 0.7
	Temperature float64 `json:"temperature" example:"0.7"`
	// example: 2048
	MaxTokens int `json:"max_tokens" example:"2048"`
	// example: 0.9
	TopP float64 `json:"top_p" example:"0.9"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: content must not be empty
	Detail string `json:"detail" example:"content must not be empty"`
}
