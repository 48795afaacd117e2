package servicemgr

import (
	"context"
	"fmt"
)

// systemctl exit code for "no such unit" on is-active.
const systemdNoSuchUnit = 4

type systemdBackend struct {
	run runFunc
}

func newSystemdBackend() *systemdBackend {
	return &systemdBackend{run: runCommand}
}

func (b *systemdBackend) Name() string { return "systemd" }

func (b *systemdBackend) Start(ctx context.Context, service string) error {
	return b.exec(ctx, "start", service)
}

func (b *systemdBackend) Stop(ctx context.Context, service string) error {
	return b.exec(ctx, "stop", service)
}

func (b *systemdBackend) Restart(ctx context.Context, service string) error {
	return b.exec(ctx, "restart", service)
}

func (b *systemdBackend) Status(ctx context.Context, service string) Status {
	output, code, err := b.run(ctx, "systemctl", "is-active", service)
	if code == systemdNoSuchUnit {
		return StatusUnknown
	}
	if err != nil && output == "" {
		return StatusUnknown
	}

	switch output {
	case "active", "activating", "reloading":
		return StatusRunning
	case "inactive", "deactivating":
		return StatusStopped
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

func (b *systemdBackend) exec(ctx context.Context, op, service string) error {
	output, _, err := b.run(ctx, "systemctl", op, service)
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w (%s)", op, service, err, output)
	}
	return nil
}
