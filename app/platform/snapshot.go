// Package platform inspects local hardware and OS capabilities.
package platform

// DeviceClass is a coarse hardware classification.
type DeviceClass string

const (
	DeviceServer      DeviceClass = "server"
	DeviceDesktop     DeviceClass = "desktop"
	DeviceRaspberryPi DeviceClass = "raspberry_pi"
	DeviceEdge        DeviceClass = "edge"
)

// Snapshot is an immutable point-in-time view of local hardware and OS
// capabilities. It is recomputed on every Detect call.
type Snapshot struct {
	OSFamily  string `json:"os_family"`
	OSName    string `json:"os_name"`
	OSVersion string `json:"os_version,omitempty"`
	Arch      string `json:"arch"`

	DeviceClass DeviceClass `json:"device_class"`

	PhysicalCores int     `json:"physical_cores"`
	LogicalCores  int     `json:"logical_cores"`
	CPUMHz        float64 `json:"cpu_mhz,omitempty"`

	RAMTotalGB     float64 `json:"ram_total_gb"`
	RAMAvailableGB float64 `json:"ram_available_gb"`
	DiskTotalGB    float64 `json:"disk_total_gb"`
	DiskFreeGB     float64 `json:"disk_free_gb"`

	HasGPU    bool `json:"has_gpu"`
	HasCamera bool `json:"has_camera"`
	HasGPIO   bool `json:"has_gpio"`
	HasLoRa   bool `json:"has_lora"`

	IsRaspberryPi bool   `json:"is_raspberry_pi"`
	Model         string `json:"model,omitempty"`

	Hostname  string `json:"hostname"`
	IPAddress string `json:"ip_address,omitempty"`
}

// SuitableForServer reports whether the node can host the web server role.
// Boundary values are inclusive.
func (s Snapshot) SuitableForServer() bool {
	return s.RAMTotalGB >= 2.0 && s.DiskFreeGB >= 10.0 && s.LogicalCores >= 2
}

// SuitableForEdge reports whether the node can host edge workloads.
func (s Snapshot) SuitableForEdge() bool {
	return s.RAMTotalGB >= 1.0 && s.DiskFreeGB >= 5.0
}
