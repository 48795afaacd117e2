// Package dto defines the wire bodies of the registry API.
package dto

// RegisterRequest is the body of POST /api/v1/nodes/register/. The agent
// generates the id locally and re-sends the same one on every registration,
// which makes registration an idempotent upsert.
type RegisterRequest struct {
	ID           string                 `json:"id" validate:"required,uuid4"`
	Hostname     string                 `json:"hostname" validate:"required"`
	NodeType     string                 `json:"node_type" validate:"required,oneof=central local edge desktop unknown"`
	Platform     string                 `json:"platform" validate:"required"`
	IPAddress    string                 `json:"ip_address" validate:"omitempty,ip"`
	Port         int                    `json:"port" validate:"omitempty,min=1,max=65535"`
	Version      string                 `json:"version"`
	Capabilities map[string]interface{} `json:"capabilities"`
}

// HeartbeatRequest is the body of POST /api/v1/nodes/{id}/heartbeat/.
// All fields are best-effort gauges; zero values are valid samples.
type HeartbeatRequest struct {
	CPUPercent    float64 `json:"cpu_percent" validate:"min=0"`
	MemoryPercent float64 `json:"memory_percent" validate:"min=0,max=100"`
	MemoryUsedMB  float64 `json:"memory_used_mb" validate:"min=0"`
	DiskPercent   float64 `json:"disk_percent" validate:"min=0,max=100"`
	DiskUsedGB    float64 `json:"disk_used_gb" validate:"min=0"`
}

// MetricSample is one historical sample pushed by the backfill endpoint.
type MetricSample struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	RecordedAt    string  `json:"recorded_at" validate:"required"`
}

// PushMetricsRequest is the body of POST /api/v1/nodes/{id}/metrics/.
// It appends samples collected while the central was unreachable without
// touching the node's heartbeat timestamp or status.
type PushMetricsRequest struct {
	Samples []MetricSample `json:"samples" validate:"required,min=1,max=500,dive"`
}
