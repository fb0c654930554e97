package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Store owns the process-wide Settings. Readers get lock-free snapshots;
// writers build a full copy, validate it and swap it in, so a reader never
// observes a partially applied update.
type Store struct {
	mu  sync.Mutex // serializes writers
	cur atomic.Pointer[Settings]
}

// NewStore returns a Store holding s.
func NewStore(s Settings) *Store {
	st := &Store{}
	st.cur.Store(&s)
	return st
}

// Snapshot returns a copy of the current settings.
func (st *Store) Snapshot() Settings {
	return *st.cur.Load()
}

// Update overwrites the fields named in fields. Keys that do not name a
// settings field are ignored. If any value fails to decode into its field or
// the result is out of range, nothing is applied and the error is returned.
func (st *Store) Update(fields map[string]json.RawMessage) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := *st.cur.Load()
	for key, raw := range fields {
		if err := assign(&next, key, raw); err != nil {
			return err
		}
	}
	next.BackendURL = NormalizeBackendURL(next.BackendURL)
	if err := next.Validate(); err != nil {
		return err
	}
	st.cur.Store(&next)
	return nil
}

// assign decodes raw into the field named key. Unrecognized keys are a no-op.
func assign(s *Settings, key string, raw json.RawMessage) error {
	var dst any
	switch key {
	case "model_name":
		dst = &s.ModelName
	case "temperature":
		dst = &s.Temperature
	case "max_tokens":
		dst = &s.MaxTokens
	case "top_p":
		dst = &s.TopP
	case "system_prompt":
		dst = &s.SystemPrompt
	case "timeout_seconds", "timeout":
		dst = &s.TimeoutSeconds
	case "host":
		dst = &s.Host
	case "port":
		dst = &s.Port
	case "backend_url":
		dst = &s.BackendURL
	default:
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%s: value must not be null", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
