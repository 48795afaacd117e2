package servicemgr

import (
	"context"
	"fmt"
	"strings"
)

type supervisorBackend struct {
	run runFunc
}

func newSupervisorBackend() *supervisorBackend {
	return &supervisorBackend{run: runCommand}
}

func (b *supervisorBackend) Name() string { return "supervisor" }

func (b *supervisorBackend) Start(ctx context.Context, service string) error {
	return b.exec(ctx, "start", service)
}

func (b *supervisorBackend) Stop(ctx context.Context, service string) error {
	return b.exec(ctx, "stop", service)
}

func (b *supervisorBackend) Restart(ctx context.Context, service string) error {
	return b.exec(ctx, "restart", service)
}

func (b *supervisorBackend) Status(ctx context.Context, service string) Status {
	// supervisorctl status exits non-zero for stopped processes too, so the
	// output text is the signal, not the exit code.
	output, _, _ := b.run(ctx, "supervisorctl", "status", service)
	upper := strings.ToUpper(output)

	switch {
	case strings.Contains(upper, "NO SUCH PROCESS"), output == "":
		return StatusUnknown
	case strings.Contains(upper, "RUNNING"), strings.Contains(upper, "STARTING"):
		return StatusRunning
	case strings.Contains(upper, "FATAL"), strings.Contains(upper, "BACKOFF"):
		return StatusFailed
	case strings.Contains(upper, "STOPPED"), strings.Contains(upper, "EXITED"), strings.Contains(upper, "STOPPING"):
		return StatusStopped
	default:
		return StatusUnknown
	}
}

func (b *supervisorBackend) exec(ctx context.Context, op, service string) error {
	output, _, err := b.run(ctx, "supervisorctl", op, service)
	if err != nil {
		return fmt.Errorf("supervisorctl %s %s: %w (%s)", op, service, err, output)
	}
	if strings.Contains(strings.ToUpper(output), "ERROR") {
		return fmt.Errorf("supervisorctl %s %s: %s", op, service, output)
	}
	return nil
}
