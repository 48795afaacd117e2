package platform

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"homefleet/app/utils"
)

const probeTimeout = 2 * time.Second

const bytesPerGB = 1024 * 1024 * 1024

// Detector probes local hardware and OS state. Probe paths are fields so
// tests can point them at fixtures.
type Detector struct {
	DeviceTreeModelPath string
	CPUInfoPath         string
	OSReleasePath       string
	RootMount           string

	GPUDevicePaths    []string
	CameraDevicePaths []string
	GPIODevicePaths   []string
	SPIDevicePaths    []string

	// runCommand shells out to a probe tool; replaced in tests.
	runCommand func(name string, args ...string) (string, error)
}

// NewDetector creates a Detector with the standard probe locations.
func NewDetector() *Detector {
	return &Detector{
		DeviceTreeModelPath: "/proc/device-tree/model",
		CPUInfoPath:         "/proc/cpuinfo",
		OSReleasePath:       "/etc/os-release",
		RootMount:           "/",
		GPUDevicePaths:      []string{"/dev/dri/card0"},
		CameraDevicePaths:   []string{"/dev/video0", "/dev/video1"},
		GPIODevicePaths:     []string{"/dev/gpiomem", "/dev/gpiochip0"},
		SPIDevicePaths:      []string{"/dev/spidev0.0", "/dev/spidev0.1"},
		runCommand:          runWithTimeout,
	}
}

// Detect returns a fresh Snapshot. Every probe fails soft to a zero value;
// Detect itself never fails.
func (d *Detector) Detect() Snapshot {
	snap := Snapshot{
		OSFamily: runtime.GOOS,
		Arch:     runtime.GOARCH,
	}

	snap.OSName, snap.OSVersion = d.osName()

	if hostname, err := os.Hostname(); err == nil {
		snap.Hostname = hostname
	}
	if ip, err := utils.GetPrimaryIP(); err == nil {
		snap.IPAddress = ip
	}

	snap.LogicalCores = runtime.NumCPU()
	if physical, err := cpu.Counts(false); err == nil && physical > 0 {
		snap.PhysicalCores = physical
	}
	if logical, err := cpu.Counts(true); err == nil && logical > 0 {
		snap.LogicalCores = logical
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		snap.CPUMHz = infos[0].Mhz
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.RAMTotalGB = float64(vm.Total) / bytesPerGB
		snap.RAMAvailableGB = float64(vm.Available) / bytesPerGB
	}
	if du, err := disk.Usage(d.RootMount); err == nil {
		snap.DiskTotalGB = float64(du.Total) / bytesPerGB
		snap.DiskFreeGB = float64(du.Free) / bytesPerGB
	}

	snap.IsRaspberryPi, snap.Model = d.detectRaspberryPi()
	snap.DeviceClass = classify(snap)

	snap.HasGPU = d.detectGPU()
	snap.HasCamera = d.detectCamera()
	snap.HasGPIO = anyPathExists(d.GPIODevicePaths)
	snap.HasLoRa = anyPathExists(d.SPIDevicePaths)

	return snap
}

// classify returns the device class, first match wins.
func classify(s Snapshot) DeviceClass {
	switch {
	case s.IsRaspberryPi:
		return DeviceRaspberryPi
	case s.OSFamily == "linux" && s.RAMTotalGB >= 4.0:
		return DeviceServer
	case s.OSFamily == "darwin" || s.OSFamily == "windows":
		return DeviceDesktop
	default:
		return DeviceEdge
	}
}

// osName resolves a display name and version for the running OS.
func (d *Detector) osName() (string, string) {
	name := runtime.GOOS
	version := ""

	if info, err := host.Info(); err == nil {
		if info.Platform != "" {
			name = info.Platform
		}
		version = info.PlatformVersion
	}

	if runtime.GOOS == "linux" {
		if pretty := d.readOSReleaseName(); pretty != "" {
			name = pretty
		}
	}

	return name, version
}

func (d *Detector) readOSReleaseName() string {
	data, err := os.ReadFile(d.OSReleasePath)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "PRETTY_NAME=") {
			return strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), "\"")
		}
	}
	return ""
}

// detectGPU tries the vendor CLI, then an OS default, then device paths.
func (d *Detector) detectGPU() bool {
	if out, err := d.runCommand("nvidia-smi", "-L"); err == nil && strings.Contains(out, "GPU") {
		return true
	}
	// macOS always ships a usable GPU.
	if runtime.GOOS == "darwin" {
		return true
	}
	return anyPathExists(d.GPUDevicePaths)
}

func (d *Detector) detectCamera() bool {
	if anyPathExists(d.CameraDevicePaths) {
		return true
	}
	// Macs have a built-in camera.
	return runtime.GOOS == "darwin"
}

func anyPathExists(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

func runWithTimeout(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(output), nil
}
