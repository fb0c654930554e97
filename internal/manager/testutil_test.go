package manager

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ollamachat/internal/backend"
	"ollamachat/internal/config"
	"ollamachat/pkg/types"
)

// buildFakeBackend builds the fake backend executable used for subprocess tests and returns its path.
func buildFakeBackend(t *testing.T) string {
	t.Helper()
	tdir := t.TempDir()
	bin := filepath.Join(tdir, "fake_ollama")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_ollama.go")
	cmd.Dir = "." // package dir internal/manager
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake backend: %v: %s", err, string(out))
	}
	return bin
}

// fakeSupervisor records Start/Stop calls without spawning anything.
type fakeSupervisor struct {
	mu       sync.Mutex
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
	models   []string
}

func (f *fakeSupervisor) Start(ctx context.Context, model string) error {
	f.starts.Add(1)
	f.mu.Lock()
	f.models = append(f.models, model)
	f.mu.Unlock()
	return f.startErr
}

func (f *fakeSupervisor) Stop(ctx context.Context) error {
	f.stops.Add(1)
	return nil
}

func (f *fakeSupervisor) Running() bool { return f.starts.Load() > f.stops.Load() }

// newTestManager wires a Manager against backendURL with a fake supervisor.
func newTestManager(t *testing.T, backendURL string, sup BackendSupervisor) *Manager {
	t.Helper()
	s := config.Default().Settings()
	s.BackendURL = backendURL
	s.TimeoutSeconds = 5
	return NewWithConfig(ManagerConfig{
		Store:      config.NewStore(s),
		Client:     backend.New(500 * time.Millisecond),
		Supervisor: sup,
	})
}

// collect drains a chat stream, failing the test if it does not close in time.
func collect(t *testing.T, ch <-chan types.StreamChunk) []types.StreamChunk {
	t.Helper()
	var out []types.StreamChunk
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		case <-timeout:
			t.Fatalf("stream did not finish; got %d chunks so far", len(out))
			return out
		}
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
