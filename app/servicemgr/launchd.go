package servicemgr

import (
	"context"
	"fmt"
	"strings"
)

type launchdBackend struct {
	run runFunc
}

func newLaunchdBackend() *launchdBackend {
	return &launchdBackend{run: runCommand}
}

func (b *launchdBackend) Name() string { return "launchd" }

func (b *launchdBackend) Start(ctx context.Context, service string) error {
	return b.exec(ctx, "start", service)
}

func (b *launchdBackend) Stop(ctx context.Context, service string) error {
	return b.exec(ctx, "stop", service)
}

func (b *launchdBackend) Restart(ctx context.Context, service string) error {
	if err := b.exec(ctx, "stop", service); err != nil {
		return err
	}
	return b.exec(ctx, "start", service)
}

func (b *launchdBackend) Status(ctx context.Context, service string) Status {
	// `launchctl list` prints "PID\tStatus\tLabel" per loaded job; a dash in
	// the PID column means loaded but not running.
	output, code, err := b.run(ctx, "launchctl", "list")
	if err != nil || code != 0 {
		return StatusUnknown
	}

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != service {
			continue
		}
		if fields[0] == "-" {
			if fields[1] != "0" {
				return StatusFailed
			}
			return StatusStopped
		}
		return StatusRunning
	}

	return StatusUnknown
}

func (b *launchdBackend) exec(ctx context.Context, op, service string) error {
	output, _, err := b.run(ctx, "launchctl", op, service)
	if err != nil {
		return fmt.Errorf("launchctl %s %s: %w (%s)", op, service, err, output)
	}
	return nil
}
