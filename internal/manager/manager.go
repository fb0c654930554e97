package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"ollamachat/internal/backend"
	"ollamachat/internal/config"
	"ollamachat/pkg/types"
)

// BackendSupervisor is the lifecycle surface the Manager needs from the
// subprocess owner. *Supervisor implements it.
type BackendSupervisor interface {
	Start(ctx context.Context, model string) error
	Stop(ctx context.Context) error
	Running() bool
}

// Manager ties settings, the backend client and the supervisor together and
// implements the HTTP service surface.
type Manager struct {
	store  *config.Store
	client *backend.Client
	sup    BackendSupervisor
	log    zerolog.Logger
	closed atomic.Bool
}

// Settings returns a snapshot of the current settings.
func (m *Manager) Settings() config.Settings { return m.store.Snapshot() }

// UpdateSettings applies an allow-listed field update. See config.Store.Update.
func (m *Manager) UpdateSettings(fields map[string]json.RawMessage) error {
	if err := m.store.Update(fields); err != nil {
		m.log.Warn().Err(err).Msg("settings update rejected")
		return err
	}
	s := m.store.Snapshot()
	m.log.Info().Str("model", s.ModelName).Float64("temperature", s.Temperature).
		Int("max_tokens", s.MaxTokens).Float64("top_p", s.TopP).Msg("settings updated")
	return nil
}

// Check probes the backend. Failures are logged and reported as false.
func (m *Manager) Check(ctx context.Context) bool {
	url := m.store.Snapshot().BackendURL
	if err := m.client.Check(ctx, url); err != nil {
		m.log.Warn().Err(err).Str("url", url).Msg("backend connection check failed")
		return false
	}
	return true
}

// BackendStatus reports "running" when the probe succeeds, else "stopped".
func (m *Manager) BackendStatus(ctx context.Context) string {
	if m.Check(ctx) {
		return types.StatusRunning
	}
	return types.StatusStopped
}

// StartBackend launches the backend process for the configured model.
func (m *Manager) StartBackend(ctx context.Context) error {
	if err := m.sup.Start(ctx, m.store.Snapshot().ModelName); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// StopBackend terminates the backend process if one was launched.
func (m *Manager) StopBackend(ctx context.Context) error {
	return m.sup.Stop(ctx)
}

// Close rejects new chats and stops the supervised backend.
func (m *Manager) Close(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.sup.Stop(ctx)
}
