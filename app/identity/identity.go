// Package identity generates and persists the durable per-node identity.
package identity

import (
	"time"
)

// NodeType classifies a node's role in the fleet.
type NodeType string

const (
	NodeCentral NodeType = "central"
	NodeLocal   NodeType = "local"
	NodeEdge    NodeType = "edge"
	NodeDesktop NodeType = "desktop"
	NodeUnknown NodeType = "unknown"
)

// schemaVersion is bumped when the identity record layout changes.
const schemaVersion = 1

// Capabilities describes what a node can do and run. Hardware flags mirror
// the platform snapshot; role flags are derived from resource suitability.
type Capabilities struct {
	HasGPU    bool `json:"has_gpu"`
	HasCamera bool `json:"has_camera"`
	HasGPIO   bool `json:"has_gpio"`
	HasLoRa   bool `json:"has_lora"`

	CanRunWebServer        bool `json:"can_run_web_server"`
	CanRunBackgroundWorker bool `json:"can_run_background_worker"`
	CanRunRealtimeChannel  bool `json:"can_run_realtime_channel"`

	AvailableModules []string `json:"available_modules"`

	StorageGB float64 `json:"storage_gb"`
	RAMGB     float64 `json:"ram_gb"`
}

// CapabilitiesPatch is a partial capability update; nil fields are left
// untouched by the merge.
type CapabilitiesPatch struct {
	HasGPU    *bool `json:"has_gpu,omitempty"`
	HasCamera *bool `json:"has_camera,omitempty"`
	HasGPIO   *bool `json:"has_gpio,omitempty"`
	HasLoRa   *bool `json:"has_lora,omitempty"`

	CanRunWebServer        *bool `json:"can_run_web_server,omitempty"`
	CanRunBackgroundWorker *bool `json:"can_run_background_worker,omitempty"`
	CanRunRealtimeChannel  *bool `json:"can_run_realtime_channel,omitempty"`

	AvailableModules []string `json:"available_modules,omitempty"`

	StorageGB *float64 `json:"storage_gb,omitempty"`
	RAMGB     *float64 `json:"ram_gb,omitempty"`
}

// Identity is the durable per-node identity record. The UUID is generated
// once and never reassigned; CreatedAt is immutable; LastSeen only moves
// forward.
type Identity struct {
	Version           int          `json:"version"`
	UUID              string       `json:"uuid"`
	NodeType          NodeType     `json:"node_type"`
	Hostname          string       `json:"hostname"`
	Platform          string       `json:"platform"`
	Capabilities      Capabilities `json:"capabilities"`
	CreatedAt         time.Time    `json:"created_at"`
	LastSeen          time.Time    `json:"last_seen"`
	RegisteredTo      string       `json:"registered_to,omitempty"`
	RegistrationToken string       `json:"registration_token,omitempty"`
}

func (c *Capabilities) apply(patch CapabilitiesPatch) {
	if patch.HasGPU != nil {
		c.HasGPU = *patch.HasGPU
	}
	if patch.HasCamera != nil {
		c.HasCamera = *patch.HasCamera
	}
	if patch.HasGPIO != nil {
		c.HasGPIO = *patch.HasGPIO
	}
	if patch.HasLoRa != nil {
		c.HasLoRa = *patch.HasLoRa
	}
	if patch.CanRunWebServer != nil {
		c.CanRunWebServer = *patch.CanRunWebServer
	}
	if patch.CanRunBackgroundWorker != nil {
		c.CanRunBackgroundWorker = *patch.CanRunBackgroundWorker
	}
	if patch.CanRunRealtimeChannel != nil {
		c.CanRunRealtimeChannel = *patch.CanRunRealtimeChannel
	}
	if patch.AvailableModules != nil {
		c.AvailableModules = patch.AvailableModules
	}
	if patch.StorageGB != nil {
		c.StorageGB = *patch.StorageGB
	}
	if patch.RAMGB != nil {
		c.RAMGB = *patch.RAMGB
	}
}
