package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"homefleet/app/clients"
)

// LivenessSweep flips silent nodes offline. Two populations are swept:
// online nodes whose last heartbeat is older than the timeout, and online
// nodes that registered longer than the timeout ago and never heartbeated.
// The storage layer's status guard makes the sweep idempotent, so a node
// already offline is never flipped or re-evented.
type LivenessSweep struct {
	storage clients.StorageAdapter
	timeout time.Duration
	log     zerolog.Logger
}

// NewLivenessSweep creates the sweep job.
func NewLivenessSweep(storage clients.StorageAdapter, timeoutMin int, log zerolog.Logger) *LivenessSweep {
	return &LivenessSweep{
		storage: storage,
		timeout: time.Duration(timeoutMin) * time.Minute,
		log:     log,
	}
}

// Name implements Job.
func (s *LivenessSweep) Name() string { return "liveness-sweep" }

// Run performs one sweep. A failure on one node is logged and does not
// stop the remaining nodes from being processed.
func (s *LivenessSweep) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-s.timeout)

	stale, err := s.storage.ListStaleNodes(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale nodes: %w", err)
	}
	silent, err := s.storage.ListSilentNodes(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list silent nodes: %w", err)
	}

	var failed int
	flip := func(nodeID, hostname, reason string) {
		msg := fmt.Sprintf("node %s marked offline: %s", hostname, reason)
		if err := s.storage.MarkNodeOffline(ctx, nodeID, msg); err != nil {
			failed++
			s.log.Warn().Err(err).Str("node_id", nodeID).Msg("failed to mark node offline")
			return
		}
		s.log.Info().Str("node_id", nodeID).Str("hostname", hostname).Str("reason", reason).Msg("node marked offline")
	}

	for _, node := range stale {
		flip(node.NodeID, node.Hostname, "heartbeat timed out")
	}
	for _, node := range silent {
		flip(node.NodeID, node.Hostname, "never heartbeated after registration")
	}

	if failed > 0 {
		return fmt.Errorf("sweep finished with %d failed transitions", failed)
	}
	return nil
}
