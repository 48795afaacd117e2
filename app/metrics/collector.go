// Package metrics collects point-in-time resource usage for heartbeats.
package metrics

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Resource is one resource usage sample reported in a heartbeat.
type Resource struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
}

// Collector samples local resource usage.
type Collector struct {
	rootMount string
}

// NewCollector creates a collector that measures disk usage at rootMount.
func NewCollector(rootMount string) *Collector {
	if rootMount == "" {
		rootMount = "/"
	}
	return &Collector{rootMount: rootMount}
}

// Collect returns a usage sample. Each probe fails soft to zero so a
// partially readable host still heartbeats.
func (c *Collector) Collect() Resource {
	var r Resource

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		r.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.MemoryPercent = vm.UsedPercent
		r.MemoryUsedMB = float64(vm.Used) / (1024 * 1024)
	}
	if du, err := disk.Usage(c.rootMount); err == nil {
		r.DiskPercent = du.UsedPercent
		r.DiskUsedGB = float64(du.Used) / (1024 * 1024 * 1024)
	}

	return r
}
