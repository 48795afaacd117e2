package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"homefleet/app/modules"
)

func loadRegistry() *modules.Registry {
	registry := modules.NewRegistry(cfg.Agent.ModulesDir, log)
	for _, derr := range registry.Discover() {
		log.Warn().Str("dir", derr.Dir).Err(derr.Err).Msg("skipping broken module")
	}
	return registry
}

func newModuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "module",
		Short:   "Inspect and toggle feature modules",
		Aliases: []string{"modules"},
	}
	cmd.AddCommand(newModuleListCmd())
	cmd.AddCommand(newModuleInfoCmd())
	cmd.AddCommand(newModuleEnableCmd())
	cmd.AddCommand(newModuleDisableCmd())
	cmd.AddCommand(newModuleStatsCmd())
	return cmd
}

func newModuleListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			mods := loadRegistry().ListAll()

			if asJSON {
				data, err := json.MarshalIndent(mods, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tVERSION\tENABLED")
			for _, m := range mods {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", m.ID, m.Name, m.Version, m.Enabled)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newModuleInfoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show one module including its dependency check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := loadRegistry()
			mod, ok := registry.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown module %q", args[0])
			}

			deps, satisfied := registry.CheckDependencies(mod.ID)

			if asJSON {
				data, err := json.MarshalIndent(map[string]interface{}{
					"module":                 mod,
					"dependencies":           deps,
					"dependencies_satisfied": satisfied,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) v%s\n", mod.Name, mod.ID, mod.Version)
			if mod.Description != "" {
				fmt.Fprintf(out, "  %s\n", mod.Description)
			}
			fmt.Fprintf(out, "Enabled:   %v\n", mod.Enabled)
			fmt.Fprintf(out, "Dir:       %s\n", mod.Dir)
			if len(mod.Platforms) > 0 {
				fmt.Fprintf(out, "Platforms: %s\n", strings.Join(mod.Platforms, ", "))
			}
			fmt.Fprintf(out, "Dependencies satisfied: %v\n", satisfied)
			for dep, ok := range deps {
				fmt.Fprintf(out, "  %s: %v\n", dep, ok)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newModuleEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := loadRegistry().Enable(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("unknown module %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "module %s enabled\n", args[0])
			return nil
		},
	}
}

func newModuleDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := loadRegistry().Disable(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("unknown module %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "module %s disabled\n", args[0])
			return nil
		},
	}
}

func newModuleStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show module registry statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := loadRegistry().Stats()

			if asJSON {
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:     %d\n", stats.Total)
			fmt.Fprintf(out, "Enabled:   %d\n", stats.Enabled)
			fmt.Fprintf(out, "Available: %d\n", stats.Available)
			fmt.Fprintf(out, "Surfaces:\n")
			fmt.Fprintf(out, "  backend:  %d\n", stats.Backend)
			fmt.Fprintf(out, "  web:      %d\n", stats.Web)
			fmt.Fprintf(out, "  mobile:   %d\n", stats.Mobile)
			fmt.Fprintf(out, "  cli:      %d\n", stats.CLI)
			fmt.Fprintf(out, "  realtime: %d\n", stats.Realtime)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
