package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"homefleet/app/clients"
	"homefleet/app/domains"
	"homefleet/app/dto"
)

// NodeService is the central's registry logic: idempotent registration,
// heartbeat recording, metric backfill and the read models.
type NodeService struct {
	storage        clients.StorageAdapter
	staleThreshold time.Duration
	log            zerolog.Logger
}

// NewNodeService creates a new node service.
func NewNodeService(storage clients.StorageAdapter, staleThresholdMin int, log zerolog.Logger) *NodeService {
	return &NodeService{
		storage:        storage,
		staleThreshold: time.Duration(staleThresholdMin) * time.Minute,
		log:            log,
	}
}

// Register upserts a node. A first registration appends a "registered"
// event; a re-registration of an offline node appends an "online" recovery
// event. Returns whether the row was newly created.
func (s *NodeService) Register(ctx context.Context, req *dto.RegisterRequest) (bool, error) {
	prev, err := s.storage.GetNode(ctx, req.ID)
	if err != nil {
		return false, fmt.Errorf("failed to look up node: %w", err)
	}

	node := &domains.Node{
		NodeID:       req.ID,
		Hostname:     req.Hostname,
		NodeType:     req.NodeType,
		IPAddress:    req.IPAddress,
		Port:         req.Port,
		Platform:     req.Platform,
		Version:      req.Version,
		Capabilities: req.Capabilities,
	}

	created, err := s.storage.RegisterNode(ctx, node)
	if err != nil {
		return false, fmt.Errorf("failed to register node: %w", err)
	}

	switch {
	case created:
		s.appendEvent(ctx, req.ID, domains.EventRegistered, fmt.Sprintf("node %s registered", req.Hostname))
	case prev != nil && prev.Status == domains.StatusOffline:
		s.appendEvent(ctx, req.ID, domains.EventOnline, fmt.Sprintf("node %s re-registered", req.Hostname))
	}
	return created, nil
}

// Heartbeat records a liveness signal plus its resource sample. Returns
// (nil, nil) when the node is unknown.
func (s *NodeService) Heartbeat(ctx context.Context, nodeID string, req *dto.HeartbeatRequest) (*domains.Node, error) {
	node, err := s.storage.GetNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up node: %w", err)
	}
	if node == nil {
		return nil, nil
	}

	now := time.Now()
	if err := s.storage.UpdateNodeHeartbeat(ctx, nodeID, now); err != nil {
		return nil, fmt.Errorf("failed to record heartbeat: %w", err)
	}

	metric := &domains.NodeMetric{
		NodeID:        nodeID,
		CPUPercent:    req.CPUPercent,
		MemoryPercent: req.MemoryPercent,
		MemoryUsedMB:  req.MemoryUsedMB,
		DiskPercent:   req.DiskPercent,
		DiskUsedGB:    req.DiskUsedGB,
		RecordedAt:    now,
	}
	if err := s.storage.InsertMetric(ctx, metric); err != nil {
		// The liveness update already landed; losing one sample is
		// acceptable, losing the heartbeat is not.
		s.log.Warn().Err(err).Str("node_id", nodeID).Msg("failed to store metric sample")
	}

	if node.Status == domains.StatusOffline {
		s.appendEvent(ctx, nodeID, domains.EventOnline, fmt.Sprintf("node %s came back online", node.Hostname))
	}

	node.Status = domains.StatusOnline
	node.LastHeartbeat = &now
	return node, nil
}

// BackfillMetrics appends historical samples without touching the node's
// heartbeat timestamp or status. Returns (0, nil) with ok=false when the
// node is unknown.
func (s *NodeService) BackfillMetrics(ctx context.Context, nodeID string, req *dto.PushMetricsRequest) (int, bool, error) {
	node, err := s.storage.GetNode(ctx, nodeID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up node: %w", err)
	}
	if node == nil {
		return 0, false, nil
	}

	rows := make([]domains.NodeMetric, 0, len(req.Samples))
	for _, sample := range req.Samples {
		recordedAt, err := time.Parse(time.RFC3339, sample.RecordedAt)
		if err != nil {
			return 0, true, fmt.Errorf("invalid recorded_at %q: %w", sample.RecordedAt, err)
		}
		rows = append(rows, domains.NodeMetric{
			NodeID:        nodeID,
			CPUPercent:    sample.CPUPercent,
			MemoryPercent: sample.MemoryPercent,
			MemoryUsedMB:  sample.MemoryUsedMB,
			DiskPercent:   sample.DiskPercent,
			DiskUsedGB:    sample.DiskUsedGB,
			RecordedAt:    recordedAt,
		})
	}

	accepted, err := s.storage.InsertMetrics(ctx, rows)
	if err != nil {
		return 0, true, fmt.Errorf("failed to store samples: %w", err)
	}
	return accepted, true, nil
}

// ListNodes returns the fleet view with a read-time staleness flag.
func (s *NodeService) ListNodes(ctx context.Context) ([]dto.NodeResponse, error) {
	nodes, err := s.storage.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	now := time.Now()
	out := make([]dto.NodeResponse, 0, len(nodes))
	for i := range nodes {
		out = append(out, s.toResponse(&nodes[i], now))
	}
	return out, nil
}

// GetNodeDetail returns one node with its recent lifecycle events, or
// (nil, nil) when unknown.
func (s *NodeService) GetNodeDetail(ctx context.Context, nodeID string) (*dto.NodeDetailResponse, error) {
	node, err := s.storage.GetNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up node: %w", err)
	}
	if node == nil {
		return nil, nil
	}

	events, err := s.storage.ListRecentEvents(ctx, nodeID, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	detail := &dto.NodeDetailResponse{
		Node:         s.toResponse(node, time.Now()),
		Capabilities: node.Capabilities,
	}
	for _, ev := range events {
		detail.Events = append(detail.Events, dto.NodeEventResponse{
			EventType: ev.EventType,
			Message:   ev.Message,
			CreatedAt: ev.CreatedAt,
		})
	}
	return detail, nil
}

func (s *NodeService) toResponse(node *domains.Node, now time.Time) dto.NodeResponse {
	stale := false
	if node.Status == domains.StatusOnline {
		if node.LastHeartbeat != nil {
			stale = now.Sub(*node.LastHeartbeat) > s.staleThreshold
		} else {
			stale = now.Sub(node.RegisteredAt) > s.staleThreshold
		}
	}
	return dto.NodeResponse{
		ID:            node.NodeID,
		Hostname:      node.Hostname,
		NodeType:      node.NodeType,
		Platform:      node.Platform,
		IPAddress:     node.IPAddress,
		Port:          node.Port,
		Version:       node.Version,
		Status:        string(node.Status),
		RegisteredAt:  node.RegisteredAt,
		LastHeartbeat: node.LastHeartbeat,
		IsStale:       stale,
		IsActive:      node.IsActive,
	}
}

func (s *NodeService) appendEvent(ctx context.Context, nodeID, eventType, message string) {
	err := s.storage.AppendEvent(ctx, &domains.NodeEvent{
		NodeID:    nodeID,
		EventType: eventType,
		Message:   message,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("node_id", nodeID).Str("event", eventType).Msg("failed to append event")
	}
}
