package backend

// GenerateRequest is the payload for POST /api/generate.
type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

// GenerateOptions carries the sampling parameters. Zero values are sent as-is.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

// GenerateChunk is one NDJSON line of a streaming generate response.
// Response is nil when the line carries no "response" field or an explicit
// null; both are treated as carrying no text.
type GenerateChunk struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}
