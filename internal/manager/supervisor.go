package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Defaults applied when SupervisorConfig fields are unset.
const (
	defaultBackendBin  = "ollama"
	defaultStopTimeout = 5 * time.Second

	stderrTailBytes = 4096
)

// SupervisorConfig configures the backend subprocess.
type SupervisorConfig struct {
	// Bin is the backend executable, resolved through PATH.
	Bin string
	// Args are the invocation arguments; "{model}" is replaced by the model
	// name. Empty means "run <model>".
	Args []string
	// StartGrace is the blind delay after launch before Start returns.
	StartGrace time.Duration
	// StopTimeout bounds the wait after SIGTERM before the process is killed.
	StopTimeout time.Duration
	Logger      *zerolog.Logger
	Publisher   EventPublisher
}

// Supervisor owns the single backend subprocess. At most one process is
// live at a time; Start while running is a no-op.
type Supervisor struct {
	cfg       SupervisorConfig
	log       zerolog.Logger
	publisher EventPublisher

	starts singleflight.Group

	mu   sync.Mutex
	proc *procInfo
}

type procInfo struct {
	cmd      *exec.Cmd
	pid      int
	model    string
	stderr   *tailBuffer
	exited   chan struct{} // closed once Wait returns
	waitErr  error         // valid after exited is closed
	stopping bool          // guarded by Supervisor.mu
}

func (p *procInfo) done() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// NewSupervisor applies defaults to cfg and returns an idle Supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if strings.TrimSpace(cfg.Bin) == "" {
		cfg.Bin = defaultBackendBin
	}
	if cfg.StartGrace < 0 {
		cfg.StartGrace = 0
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	s := &Supervisor{cfg: cfg, log: zerolog.Nop(), publisher: noopPublisher{}}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "supervisor").Logger()
	}
	if cfg.Publisher != nil {
		s.publisher = cfg.Publisher
	}
	return s
}

// Running reports whether a launched backend process is still alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil && !s.proc.done()
}

// Start launches the backend for model unless one is already running, then
// waits the start grace period. Concurrent calls share a single launch.
// If ctx ends during the grace period Start returns ctx.Err() and the
// process stays supervised. Nothing is launched when ctx is already done.
func (s *Supervisor) Start(ctx context.Context, model string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := s.starts.DoChan("start", func() (any, error) {
		return nil, s.launch(model)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) launch(model string) error {
	s.mu.Lock()
	if s.proc != nil && !s.proc.done() {
		pid := s.proc.pid
		s.mu.Unlock()
		s.log.Debug().Int("pid", pid).Msg("backend already running")
		backendStartsTotal.WithLabelValues("running").Inc()
		return nil
	}
	args := s.args(model)
	cmd := exec.Command(s.cfg.Bin, args...)
	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Str("bin", s.cfg.Bin).Strs("args", args).Msg("backend launch failed")
		s.publisher.Publish(Event{Name: EventSpawnError, Model: model, Fields: map[string]any{"error": err.Error()}})
		backendStartsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("start backend: %w", err)
	}
	p := &procInfo{cmd: cmd, pid: cmd.Process.Pid, model: model, stderr: stderr, exited: make(chan struct{})}
	s.proc = p
	s.mu.Unlock()

	go s.wait(p)
	s.log.Info().Int("pid", p.pid).Str("bin", s.cfg.Bin).Strs("args", args).Msg("backend launched")
	s.publisher.Publish(Event{Name: EventSpawnStart, Model: model, PID: p.pid, Fields: map[string]any{"args": args}})

	// No readiness polling: the backend gets a fixed grace period.
	timer := time.NewTimer(s.cfg.StartGrace)
	defer timer.Stop()
	select {
	case <-timer.C:
		s.log.Info().Int("pid", p.pid).Dur("grace", s.cfg.StartGrace).Msg("backend start grace elapsed")
		s.publisher.Publish(Event{Name: EventSpawnReady, Model: model, PID: p.pid})
		backendStartsTotal.WithLabelValues("launched").Inc()
		return nil
	case <-p.exited:
	}

	s.mu.Lock()
	stopping := p.stopping
	s.mu.Unlock()
	switch {
	case stopping:
		backendStartsTotal.WithLabelValues("exited").Inc()
		return fmt.Errorf("backend stopped during startup (pid %d)", p.pid)
	case p.waitErr != nil:
		s.log.Error().Err(p.waitErr).Int("pid", p.pid).Str("stderr", p.stderr.String()).Msg("backend exited during startup")
		backendStartsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("backend exited during startup: %v; stderr tail: %s", p.waitErr, p.stderr.String())
	default:
		// A clean exit is not a launch failure; the handle is already cleared.
		backendStartsTotal.WithLabelValues("exited").Inc()
		return nil
	}
}

// wait reaps the process and clears the handle if it is still current.
// exited is closed only after the exit event is published.
func (s *Supervisor) wait(p *procInfo) {
	p.waitErr = p.cmd.Wait()
	defer close(p.exited)
	s.mu.Lock()
	if s.proc == p {
		s.proc = nil
	}
	stopping := p.stopping
	s.mu.Unlock()
	fields := map[string]any{"stopping": stopping}
	if p.waitErr != nil {
		fields["error"] = p.waitErr.Error()
	}
	s.log.Info().Int("pid", p.pid).AnErr("exit", p.waitErr).Bool("stopping", stopping).Msg("backend exited")
	s.publisher.Publish(Event{Name: EventSpawnExit, Model: p.model, PID: p.pid, Fields: fields})
}

// Stop terminates the backend: SIGTERM, then Kill after StopTimeout or when
// ctx ends. Stopping with nothing running succeeds.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	p := s.proc
	if p != nil {
		p.stopping = true
	}
	s.mu.Unlock()
	if p == nil || p.done() {
		backendStopsTotal.WithLabelValues("noop").Inc()
		return nil
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.log.Error().Err(err).Int("pid", p.pid).Msg("backend terminate failed")
		s.publisher.Publish(Event{Name: EventSpawnError, Model: p.model, PID: p.pid, Fields: map[string]any{"error": err.Error()}})
		backendStopsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("terminate backend pid %d: %w", p.pid, err)
	}
	result := "stopped"
	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-p.exited:
	case <-timer.C:
		result = "killed"
	case <-ctx.Done():
		result = "killed"
	}
	if result == "killed" {
		s.log.Warn().Int("pid", p.pid).Msg("backend did not exit after SIGTERM, killing")
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.Error().Err(err).Int("pid", p.pid).Msg("backend kill failed")
			backendStopsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("kill backend pid %d: %w", p.pid, err)
		}
		<-p.exited
	}

	s.mu.Lock()
	if s.proc == p {
		s.proc = nil
	}
	s.mu.Unlock()
	s.log.Info().Int("pid", p.pid).Str("result", result).Msg("backend stopped")
	s.publisher.Publish(Event{Name: EventSpawnStop, Model: p.model, PID: p.pid, Fields: map[string]any{"result": result}})
	backendStopsTotal.WithLabelValues(result).Inc()
	return nil
}

func (s *Supervisor) args(model string) []string {
	if len(s.cfg.Args) == 0 {
		return []string{"run", model}
	}
	out := make([]string, len(s.cfg.Args))
	for i, a := range s.cfg.Args {
		out[i] = strings.ReplaceAll(a, "{model}", model)
	}
	return out
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
