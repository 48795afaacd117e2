// Package domains holds the central registry's persistent record types.
package domains

import "time"

// NodeStatus is the central-side liveness state of a node.
type NodeStatus string

const (
	StatusOnline  NodeStatus = "online"
	StatusOffline NodeStatus = "offline"
)

// Node event types.
const (
	EventOffline    = "offline"
	EventOnline     = "online"
	EventRegistered = "registered"
)

// Node is the central registry's record of a fleet member. ID is the
// agent's identity uuid. Status is the only frequently mutated field and is
// changed only by heartbeats and the liveness sweep.
type Node struct {
	ID            int64                  `db:"id"`
	NodeID        string                 `db:"node_id"`
	Hostname      string                 `db:"hostname"`
	NodeType      string                 `db:"node_type"`
	IPAddress     string                 `db:"ip_address"`
	Port          int                    `db:"port"`
	Platform      string                 `db:"platform"`
	Version       string                 `db:"version"`
	Capabilities  map[string]interface{} `db:"capabilities"`
	Status        NodeStatus             `db:"status"`
	RegisteredAt  time.Time              `db:"registered_at"`
	LastHeartbeat *time.Time             `db:"last_heartbeat"`
	IsActive      bool                   `db:"is_active"`
}

// NodeEvent is an append-only lifecycle event. Rows are never updated and
// are removed only by the age-based retention job.
type NodeEvent struct {
	ID        int64                  `db:"id"`
	NodeID    string                 `db:"node_id"`
	EventType string                 `db:"event_type"`
	Message   string                 `db:"message"`
	Extra     map[string]interface{} `db:"extra"`
	CreatedAt time.Time              `db:"created_at"`
}

// NodeMetric is one append-only resource usage sample.
type NodeMetric struct {
	ID            int64     `db:"id"`
	NodeID        string    `db:"node_id"`
	CPUPercent    float64   `db:"cpu_percent"`
	MemoryPercent float64   `db:"memory_percent"`
	MemoryUsedMB  float64   `db:"memory_used_mb"`
	DiskPercent   float64   `db:"disk_percent"`
	DiskUsedGB    float64   `db:"disk_used_gb"`
	RecordedAt    time.Time `db:"recorded_at"`
}
