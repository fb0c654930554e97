package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Settings holds the model parameters and connection endpoints shared by the
// relay and the HTTP layer. Values are treated as immutable; use Store.Update
// to change them.
type Settings struct {
	ModelName      string  `json:"model_name"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	TopP           float64 `json:"top_p"`
	SystemPrompt   string  `json:"system_prompt"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	Host           string  `json:"host"`
	Port           int     `json:"port"`
	BackendURL     string  `json:"backend_url"`
}

// Timeout returns the per-request backend timeout.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Addr returns the HTTP listen address built from Host and Port.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks field ranges.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.ModelName) == "" {
		return fmt.Errorf("model_name must not be empty")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", s.Temperature)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("top_p must be within [0, 1], got %v", s.TopP)
	}
	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", s.TimeoutSeconds)
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port out of range: %d", s.Port)
	}
	u, err := url.Parse(s.BackendURL)
	if err != nil {
		return fmt.Errorf("backend_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend_url must be an absolute http(s) URL: %q", s.BackendURL)
	}
	return nil
}

// NormalizeBackendURL trims trailing slashes and a trailing /api/generate so
// both a base URL and a full generate endpoint are accepted.
func NormalizeBackendURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	u = strings.TrimSuffix(u, "/api/generate")
	return strings.TrimRight(u, "/")
}
