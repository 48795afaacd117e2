package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"homefleet/app/clients"
	"homefleet/app/dto"
	"homefleet/app/metrics"
	"homefleet/storage/sqlite"
)

const flushBatchSize = 200

// HeartbeatService sends one resource sample per interval to the central.
// Heartbeats are best effort: a failure is logged, the sample is parked in
// the local buffer and the loop keeps its cadence. A 404 means the central
// lost this node; the service asks the registration loop to re-announce
// and keeps heartbeating in the meantime.
type HeartbeatService struct {
	client       *CentralClient
	nodeID       string
	collector    *metrics.Collector
	buffer       *sqlite.BufferStore
	registration *RegistrationService
	interval     time.Duration
	log          zerolog.Logger
}

// NewHeartbeatService creates a heartbeat service. client may be nil when
// no central is configured; buffer may be nil to disable offline parking.
func NewHeartbeatService(client *CentralClient, nodeID string, collector *metrics.Collector,
	buffer *sqlite.BufferStore, registration *RegistrationService,
	intervalSec int, log zerolog.Logger) *HeartbeatService {
	return &HeartbeatService{
		client:       client,
		nodeID:       nodeID,
		collector:    collector,
		buffer:       buffer,
		registration: registration,
		interval:     time.Duration(intervalSec) * time.Second,
		log:          log,
	}
}

// Start runs the heartbeat loop until the context is cancelled. The first
// beat is sent immediately.
func (h *HeartbeatService) Start(ctx context.Context) {
	if h.client == nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.beat(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *HeartbeatService) beat(ctx context.Context) {
	res := h.collector.Collect()
	now := time.Now()

	if err := h.client.Heartbeat(ctx, h.nodeID, res); err != nil {
		if isNodeNotFoundError(err) {
			h.log.Warn().Msg("central does not know this node, requesting re-registration")
			if h.registration != nil {
				h.registration.Kick()
			}
		} else {
			h.log.Warn().Err(err).Msg("heartbeat failed")
		}
		h.park(ctx, res, now)
		return
	}

	h.flush(ctx)
}

// park buffers an undelivered sample locally.
func (h *HeartbeatService) park(ctx context.Context, res metrics.Resource, at time.Time) {
	if h.buffer == nil {
		return
	}
	if err := h.buffer.Add(ctx, res, at); err != nil {
		h.log.Warn().Err(err).Msg("failed to buffer sample")
	}
}

// flush backfills buffered samples after a successful heartbeat. Samples
// are deleted only after the central acknowledged them.
func (h *HeartbeatService) flush(ctx context.Context) {
	if h.buffer == nil {
		return
	}

	pending, err := h.buffer.Pending(ctx, flushBatchSize)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to read buffered samples")
		return
	}
	if len(pending) == 0 {
		return
	}

	samples := make([]dto.MetricSample, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, p := range pending {
		samples = append(samples, sampleFromResource(p.Resource, p.RecordedAt))
		ids = append(ids, p.ID)
	}

	accepted, err := h.client.PushMetrics(ctx, h.nodeID, samples)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to backfill buffered samples")
		return
	}

	if err := h.buffer.Delete(ctx, ids); err != nil {
		h.log.Warn().Err(err).Msg("failed to clear delivered samples")
		return
	}
	h.log.Info().Int("count", accepted).Msg("backfilled buffered samples")
}

// isNodeNotFoundError reports whether the error is an HTTP 404.
func isNodeNotFoundError(err error) bool {
	var httpErr *clients.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.GetStatusCode() == http.StatusNotFound
	}
	return false
}
