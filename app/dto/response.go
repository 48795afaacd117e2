package dto

import "time"

// RegisterResponse is returned by the register endpoint. Token is a JWT the
// agent must present on subsequent heartbeats when the central has auth
// enabled; it is empty otherwise.
type RegisterResponse struct {
	NodeID    string `json:"node_id"`
	Status    string `json:"status"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

// HeartbeatResponse acknowledges a heartbeat.
type HeartbeatResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
}

// PushMetricsResponse acknowledges a metric backfill.
type PushMetricsResponse struct {
	Accepted int `json:"accepted"`
}

// NodeResponse is the read model for node list and detail endpoints.
// IsStale is computed at read time from the stale threshold and never
// stored.
type NodeResponse struct {
	ID            string     `json:"id"`
	Hostname      string     `json:"hostname"`
	NodeType      string     `json:"node_type"`
	Platform      string     `json:"platform"`
	IPAddress     string     `json:"ip_address"`
	Port          int        `json:"port"`
	Version       string     `json:"version"`
	Status        string     `json:"status"`
	RegisteredAt  time.Time  `json:"registered_at"`
	LastHeartbeat *time.Time `json:"last_heartbeat"`
	IsStale       bool       `json:"is_stale"`
	IsActive      bool       `json:"is_active"`
}

// NodeDetailResponse is the detail read model: the node plus its most
// recent events and samples.
type NodeDetailResponse struct {
	Node         NodeResponse        `json:"node"`
	Capabilities map[string]any      `json:"capabilities"`
	Events       []NodeEventResponse `json:"events"`
}

// NodeEventResponse is one lifecycle event as served by the API.
type NodeEventResponse struct {
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ListNodesResponse wraps the node list.
type ListNodesResponse struct {
	Nodes []NodeResponse `json:"nodes"`
	Count int            `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
