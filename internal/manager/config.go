package manager

import (
	"github.com/rs/zerolog"

	"ollamachat/internal/backend"
	"ollamachat/internal/config"
)

// ManagerConfig encapsulates all inputs for Manager construction.
type ManagerConfig struct {
	// Store holds the shared settings. Nil means config.Default().Settings().
	Store *config.Store
	// Backend describes how to launch and probe the backend. A zero value
	// means config.Default().Backend; set fields are used as given.
	Backend config.BackendConfig
	// Client overrides the backend HTTP client (tests).
	Client *backend.Client
	// Supervisor overrides the subprocess supervisor (tests).
	Supervisor BackendSupervisor
	Logger     *zerolog.Logger
	Publisher  EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig, applying defaults.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{store: cfg.Store, client: cfg.Client, sup: cfg.Supervisor, log: zerolog.Nop()}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	if m.store == nil {
		m.store = config.NewStore(config.Default().Settings())
	}
	if cfg.Backend.URL == "" && cfg.Backend.Bin == "" {
		cfg.Backend = config.Default().Backend
	}
	if m.client == nil {
		m.client = backend.New(cfg.Backend.ProbeTimeout())
	}
	if m.sup == nil {
		m.sup = NewSupervisor(SupervisorConfig{
			Bin:         cfg.Backend.Bin,
			Args:        cfg.Backend.Args,
			StartGrace:  cfg.Backend.StartGrace(),
			StopTimeout: cfg.Backend.StopTimeout(),
			Logger:      cfg.Logger,
			Publisher:   cfg.Publisher,
		})
	}
	return m
}
