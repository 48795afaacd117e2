package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"homefleet/app/servicemgr"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Control platform services on this node",
	}

	for _, op := range []string{"start", "stop", "restart"} {
		op := op
		cmd.AddCommand(&cobra.Command{
			Use:   op + " <name>",
			Short: capitalize(op) + " a service",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr := servicemgr.Detect(log)
				var err error
				switch op {
				case "start":
					err = mgr.Start(args[0])
				case "stop":
					err = mgr.Stop(args[0])
				case "restart":
					err = mgr.Restart(args[0])
				}
				if err != nil {
					return fmt.Errorf("%s %s: %w", op, args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s requested via %s\n", args[0], op, mgr.BackendName())
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status <name>",
		Short: "Show a service's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := servicemgr.Detect(log)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (backend %s)\n", args[0], mgr.Status(args[0]), mgr.BackendName())
			return nil
		},
	})

	return cmd
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
