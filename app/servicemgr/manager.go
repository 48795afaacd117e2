// Package servicemgr normalizes process control across host service managers.
package servicemgr

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Status is the normalized service state.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
	StatusUnknown Status = "unknown"
)

// ErrNotImplemented is returned by backends that cannot perform an
// operation (e.g. the manual backend). Callers treat it as a soft failure.
var ErrNotImplemented = errors.New("operation not implemented by this backend")

const commandTimeout = 10 * time.Second

// runFunc shells out to the platform tool and returns combined output and
// the process exit code. Replaced in tests.
type runFunc func(ctx context.Context, name string, args ...string) (string, int, error)

// Backend is one host service manager implementation.
type Backend interface {
	Name() string
	Start(ctx context.Context, service string) error
	Stop(ctx context.Context, service string) error
	Restart(ctx context.Context, service string) error
	Status(ctx context.Context, service string) Status
}

// Manager dispatches uniform service operations to a backend selected once
// at construction time.
type Manager struct {
	backend Backend
	log     zerolog.Logger
}

// Detect selects the native backend for the host OS and returns a Manager
// over it. Linux prefers systemd, then supervisor, then the manual no-op
// backend; macOS uses launchd; anything else is manual.
func Detect(log zerolog.Logger) *Manager {
	return &Manager{backend: detectBackend(), log: log}
}

// NewManager wraps an explicit backend, used by tests and special setups.
func NewManager(backend Backend, log zerolog.Logger) *Manager {
	return &Manager{backend: backend, log: log}
}

// BackendName names the selected backend.
func (m *Manager) BackendName() string {
	return m.backend.Name()
}

// Start starts a service. Failures are logged and returned, never panicked.
func (m *Manager) Start(service string) error {
	return m.run("start", service, m.backend.Start)
}

// Stop stops a service.
func (m *Manager) Stop(service string) error {
	return m.run("stop", service, m.backend.Stop)
}

// Restart restarts a service.
func (m *Manager) Restart(service string) error {
	return m.run("restart", service, m.backend.Restart)
}

// Status reports the normalized state of a service. A nonexistent service
// yields StatusUnknown, never an error.
func (m *Manager) Status(service string) Status {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return m.backend.Status(ctx, service)
}

func (m *Manager) run(op, service string, fn func(context.Context, string) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := fn(ctx, service); err != nil {
		m.log.Warn().Err(err).Str("backend", m.backend.Name()).
			Str("service", service).Str("op", op).Msg("service command failed")
		return err
	}
	return nil
}

func detectBackend() Backend {
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("systemctl"); err == nil {
			return newSystemdBackend()
		}
		if _, err := exec.LookPath("supervisorctl"); err == nil {
			return newSupervisorBackend()
		}
		return manualBackend{}
	case "darwin":
		return newLaunchdBackend()
	default:
		return manualBackend{}
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, int, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, exitErr.ExitCode(), err
		}
		return output, -1, err
	}
	return output, 0, nil
}
