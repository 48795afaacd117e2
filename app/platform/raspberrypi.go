package platform

import (
	"os"
	"strings"
)

// Known Broadcom SoC prefixes that appear in /proc/cpuinfo on Pi boards
// whose device tree is unavailable.
var piSoCPrefixes = []string{"BCM27", "BCM28"}

const piModelPrefix = "Raspberry Pi"

// detectRaspberryPi reports whether this host is a Raspberry Pi and, when
// detectable, the trailing model designation ("4 Model B", "Zero 2 W", ...).
// The device-tree model file is authoritative; /proc/cpuinfo is the
// fallback. Absence of both means not a Pi.
func (d *Detector) detectRaspberryPi() (bool, string) {
	if data, err := os.ReadFile(d.DeviceTreeModelPath); err == nil {
		model := strings.TrimRight(string(data), "\x00\n ")
		if strings.Contains(model, piModelPrefix) {
			return true, stripPiPrefix(model)
		}
	}

	data, err := os.ReadFile(d.CPUInfoPath)
	if err != nil {
		return false, ""
	}

	content := string(data)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "Model") && strings.Contains(line, piModelPrefix) {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return true, stripPiPrefix(strings.TrimSpace(parts[1]))
			}
			return true, ""
		}
	}
	for _, soc := range piSoCPrefixes {
		if strings.Contains(content, soc) {
			return true, ""
		}
	}

	return false, ""
}

func stripPiPrefix(model string) string {
	return strings.TrimSpace(strings.TrimPrefix(model, piModelPrefix))
}
