package servicemgr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeCall struct {
	output string
	code   int
	err    error
}

func fakeRun(calls map[string]fakeCall) runFunc {
	return func(ctx context.Context, name string, args ...string) (string, int, error) {
		key := name
		for _, a := range args {
			key += " " + a
		}
		call, ok := calls[key]
		if !ok {
			return "", -1, fmt.Errorf("unexpected command: %s", key)
		}
		return call.output, call.code, call.err
	}
}

func TestSystemdStatusMapping(t *testing.T) {
	cases := []struct {
		output string
		code   int
		err    error
		want   Status
	}{
		{"active", 0, nil, StatusRunning},
		{"activating", 0, nil, StatusRunning},
		{"inactive", 3, errors.New("exit status 3"), StatusStopped},
		{"failed", 3, errors.New("exit status 3"), StatusFailed},
		{"inactive", 4, errors.New("exit status 4"), StatusUnknown},
		{"", -1, errors.New("systemctl not found"), StatusUnknown},
	}

	for _, tc := range cases {
		b := &systemdBackend{run: fakeRun(map[string]fakeCall{
			"systemctl is-active nginx": {tc.output, tc.code, tc.err},
		})}
		assert.Equal(t, tc.want, b.Status(context.Background(), "nginx"),
			"output %q code %d", tc.output, tc.code)
	}
}

func TestSupervisorStatusMapping(t *testing.T) {
	cases := []struct {
		output string
		want   Status
	}{
		{"worker                           RUNNING   pid 4242, uptime 1:02:03", StatusRunning},
		{"worker                           STOPPED   Not started", StatusStopped},
		{"worker                           FATAL     Exited too quickly", StatusFailed},
		{"worker: ERROR (no such process)", StatusUnknown},
		{"", StatusUnknown},
	}

	for _, tc := range cases {
		b := &supervisorBackend{run: fakeRun(map[string]fakeCall{
			"supervisorctl status worker": {tc.output, 0, nil},
		})}
		assert.Equal(t, tc.want, b.Status(context.Background(), "worker"), "output %q", tc.output)
	}
}

func TestLaunchdStatusMapping(t *testing.T) {
	listing := "123\t0\tcom.example.web\n-\t0\tcom.example.idle\n-\t78\tcom.example.broken"

	b := &launchdBackend{run: fakeRun(map[string]fakeCall{
		"launchctl list": {listing, 0, nil},
	})}

	assert.Equal(t, StatusRunning, b.Status(context.Background(), "com.example.web"))
	assert.Equal(t, StatusStopped, b.Status(context.Background(), "com.example.idle"))
	assert.Equal(t, StatusFailed, b.Status(context.Background(), "com.example.broken"))
	assert.Equal(t, StatusUnknown, b.Status(context.Background(), "com.example.absent"))
}

func TestManualBackendNeverRaises(t *testing.T) {
	m := NewManager(manualBackend{}, zerolog.Nop())

	assert.ErrorIs(t, m.Start("anything"), ErrNotImplemented)
	assert.ErrorIs(t, m.Stop("anything"), ErrNotImplemented)
	assert.ErrorIs(t, m.Restart("anything"), ErrNotImplemented)
	assert.Equal(t, StatusUnknown, m.Status("anything"))
}

func TestStatusOfNonexistentServiceIsUnknown(t *testing.T) {
	b := &systemdBackend{run: fakeRun(map[string]fakeCall{
		"systemctl is-active nonexistent-service": {"inactive", systemdNoSuchUnit, errors.New("exit status 4")},
	})}
	m := NewManager(b, zerolog.Nop())

	assert.Equal(t, StatusUnknown, m.Status("nonexistent-service"))
}

func TestStartFailureIsReturnedNotPanicked(t *testing.T) {
	b := &systemdBackend{run: fakeRun(map[string]fakeCall{
		"systemctl start nginx": {"Failed to start nginx.service", 1, errors.New("exit status 1")},
	})}
	m := NewManager(b, zerolog.Nop())

	err := m.Start("nginx")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nginx")
}
