package utils

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"
)

// GetPrimaryIP returns the primary IP address of the node
func GetPrimaryIP() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Try to get IP from ip command
	cmd := exec.CommandContext(ctx, "ip", "route", "get", "1")
	output, err := cmd.Output()
	if err == nil {
		parts := strings.Fields(string(output))
		for i, part := range parts {
			if part == "src" && i+1 < len(parts) {
				return parts[i+1], nil
			}
		}
	}

	// Fallback to interface enumeration
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP.String(), nil
				}
			}
		}
	}

	return "", fmt.Errorf("could not determine IP address")
}
