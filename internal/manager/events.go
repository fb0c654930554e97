package manager

// Event represents a backend lifecycle event.
// Minimal and stable: name, model and pid plus optional fields.
type Event struct {
	Name   string
	Model  string
	PID    int
	Fields map[string]any
}

// Event names published by the Supervisor.
const (
	EventSpawnStart = "spawn_start"
	EventSpawnReady = "spawn_ready"
	EventSpawnExit  = "spawn_exit"
	EventSpawnStop  = "spawn_stop"
	EventSpawnError = "spawn_error"
)

// EventPublisher receives supervisor events. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
