package servicemgr

import "context"

// manualBackend is the fallback for hosts without a recognized service
// manager. Control operations report not-implemented; status is unknown.
type manualBackend struct{}

func (manualBackend) Name() string { return "manual" }

func (manualBackend) Start(ctx context.Context, service string) error {
	return ErrNotImplemented
}

func (manualBackend) Stop(ctx context.Context, service string) error {
	return ErrNotImplemented
}

func (manualBackend) Restart(ctx context.Context, service string) error {
	return ErrNotImplemented
}

func (manualBackend) Status(ctx context.Context, service string) Status {
	return StatusUnknown
}
