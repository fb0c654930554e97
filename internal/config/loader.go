package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service, grouped by concern.
// Load layers a file over Default, so fields absent from the file keep their defaults.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server" toml:"server"`
	Backend BackendConfig `json:"backend" yaml:"backend" toml:"backend"`
	Model   ModelConfig   `json:"model" yaml:"model" toml:"model"`
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string   `json:"host" yaml:"host" toml:"host"`
	Port         int      `json:"port" yaml:"port" toml:"port"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods  []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders  []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// BackendConfig describes the inference backend and how to launch it.
type BackendConfig struct {
	URL                 string   `json:"url" yaml:"url" toml:"url"`
	Bin                 string   `json:"bin" yaml:"bin" toml:"bin"`
	Args                []string `json:"args" yaml:"args" toml:"args"`
	StartGraceSeconds   int      `json:"start_grace_seconds" yaml:"start_grace_seconds" toml:"start_grace_seconds"`
	StopTimeoutSeconds  int      `json:"stop_timeout_seconds" yaml:"stop_timeout_seconds" toml:"stop_timeout_seconds"`
	ProbeTimeoutSeconds int      `json:"probe_timeout_seconds" yaml:"probe_timeout_seconds" toml:"probe_timeout_seconds"`
}

// ModelConfig holds the sampling parameters sent with every prompt.
type ModelConfig struct {
	Name           string  `json:"name" yaml:"name" toml:"name"`
	Temperature    float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	TopP           float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	SystemPrompt   string  `json:"system_prompt" yaml:"system_prompt" toml:"system_prompt"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// LogConfig selects the log level (debug|info|warn|error) and format (console|json).
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8000,
			MaxBodyBytes: 1 << 20,
			CORSOrigins:  []string{"*"},
			CORSMethods:  []string{"*"},
			CORSHeaders:  []string{"*"},
		},
		Backend: BackendConfig{
			URL:                 "http://localhost:11434",
			Bin:                 "ollama",
			StartGraceSeconds:   5,
			StopTimeoutSeconds:  5,
			ProbeTimeoutSeconds: 2,
		},
		Model: ModelConfig{
			Name:           "deepseek-r1:8b",
			Temperature:    0.7,
			MaxTokens:      2048,
			TopP:           0.9,
			SystemPrompt:   "You are a helpful AI assistant.",
			TimeoutSeconds: 30,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a configuration file based on its extension on top of Default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Settings projects the configuration onto the shared Settings record.
func (c Config) Settings() Settings {
	return Settings{
		ModelName:      c.Model.Name,
		Temperature:    c.Model.Temperature,
		MaxTokens:      c.Model.MaxTokens,
		TopP:           c.Model.TopP,
		SystemPrompt:   c.Model.SystemPrompt,
		TimeoutSeconds: c.Model.TimeoutSeconds,
		Host:           c.Server.Host,
		Port:           c.Server.Port,
		BackendURL:     NormalizeBackendURL(c.Backend.URL),
	}
}

// StartGrace is the blind delay after launching the backend.
func (b BackendConfig) StartGrace() time.Duration {
	return time.Duration(b.StartGraceSeconds) * time.Second
}

// StopTimeout bounds how long Stop waits after SIGTERM before killing.
func (b BackendConfig) StopTimeout() time.Duration {
	return time.Duration(b.StopTimeoutSeconds) * time.Second
}

// ProbeTimeout bounds a single reachability check.
func (b BackendConfig) ProbeTimeout() time.Duration {
	return time.Duration(b.ProbeTimeoutSeconds) * time.Second
}
