// Package manager supervises the local inference backend and relays chat
// prompts to it. It is structured into small files by concern:
//
//   - manager.go: Manager type, settings access, probe and lifecycle entry points.
//   - config.go: ManagerConfig and defaults; NewWithConfig wires collaborators.
//   - supervisor.go: Supervisor owning the single backend subprocess.
//   - relay.go: Chat, the probe / auto-start / stream pipeline.
//   - events.go, eventpub_memory.go: lifecycle events and an in-memory sink.
//   - errors.go: sentinel errors (ErrBackendUnavailable, ErrClosed).
//   - metrics.go: Prometheus counters for starts, stops and streams.
//
// External packages should use the public methods only (NewWithConfig,
// Chat, Check, StartBackend, StopBackend, Settings, UpdateSettings, Close).
package manager
