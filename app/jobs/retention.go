package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"homefleet/app/clients"
)

// Retention trims the append-only tables by age. Metrics and events have
// independent retention windows; node rows themselves are never touched.
type Retention struct {
	storage       clients.StorageAdapter
	metricsWindow time.Duration
	eventsWindow  time.Duration
	log           zerolog.Logger
}

// NewRetention creates the retention job.
func NewRetention(storage clients.StorageAdapter, metricsDays, eventsDays int, log zerolog.Logger) *Retention {
	return &Retention{
		storage:       storage,
		metricsWindow: time.Duration(metricsDays) * 24 * time.Hour,
		eventsWindow:  time.Duration(eventsDays) * 24 * time.Hour,
		log:           log,
	}
}

// Name implements Job.
func (r *Retention) Name() string { return "retention" }

// Run deletes expired rows and reports the counts. An empty table is a
// normal zero-count run, not an error.
func (r *Retention) Run(ctx context.Context) error {
	now := time.Now()

	metricsDeleted, err := r.storage.DeleteMetricsBefore(ctx, now.Add(-r.metricsWindow))
	if err != nil {
		return fmt.Errorf("failed to delete expired metrics: %w", err)
	}

	eventsDeleted, err := r.storage.DeleteEventsBefore(ctx, now.Add(-r.eventsWindow))
	if err != nil {
		return fmt.Errorf("failed to delete expired events: %w", err)
	}

	if metricsDeleted > 0 || eventsDeleted > 0 {
		r.log.Info().Int64("metrics", metricsDeleted).Int64("events", eventsDeleted).Msg("retention cleanup done")
	}
	return nil
}
