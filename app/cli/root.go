// Package cli implements the fleetctl command tree.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"homefleet/app/config"
	"homefleet/app/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	log     zerolog.Logger
)

// NewRootCmd builds the fleetctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetctl",
		Short: "Inspect and manage homefleet nodes",
		Long: `fleetctl works against the local node (platform, modules, services)
and against the central registry (node listing and detail).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
			log = logging.Component("fleetctl")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	root.AddCommand(newPlatformCmd())
	root.AddCommand(newModuleCmd())
	root.AddCommand(newServiceCmd())
	root.AddCommand(newNodeCmd())
	return root
}
