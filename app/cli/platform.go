package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"homefleet/app/platform"
)

func newPlatformCmd() *cobra.Command {
	var asJSON, verbose bool

	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Show the local hardware and OS snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := platform.NewDetector().Detect()

			if asJSON {
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Host:      %s (%s)\n", snap.Hostname, snap.IPAddress)
			fmt.Fprintf(out, "OS:        %s %s (%s/%s)\n", snap.OSName, snap.OSVersion, snap.OSFamily, snap.Arch)
			fmt.Fprintf(out, "Class:     %s\n", snap.DeviceClass)
			if snap.IsRaspberryPi {
				fmt.Fprintf(out, "Model:     %s\n", snap.Model)
			}
			fmt.Fprintf(out, "CPU:       %d cores (%d logical)\n", snap.PhysicalCores, snap.LogicalCores)
			fmt.Fprintf(out, "RAM:       %.1f GB total, %.1f GB available\n", snap.RAMTotalGB, snap.RAMAvailableGB)
			fmt.Fprintf(out, "Disk:      %.1f GB total, %.1f GB free\n", snap.DiskTotalGB, snap.DiskFreeGB)

			if verbose {
				fmt.Fprintf(out, "GPU:       %v\n", snap.HasGPU)
				fmt.Fprintf(out, "Camera:    %v\n", snap.HasCamera)
				fmt.Fprintf(out, "GPIO:      %v\n", snap.HasGPIO)
				fmt.Fprintf(out, "LoRa:      %v\n", snap.HasLoRa)
				fmt.Fprintf(out, "Server-capable: %v\n", snap.SuitableForServer())
				fmt.Fprintf(out, "Edge-capable:   %v\n", snap.SuitableForEdge())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include capability probes and role suitability")
	return cmd
}
