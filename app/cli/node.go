package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"homefleet/app/clients"
	"homefleet/app/services"
)

func centralClient() (*services.CentralClient, error) {
	if cfg.Agent.CentralURL == "" {
		return nil, fmt.Errorf("no central configured (set agent.central_url)")
	}
	httpClient := clients.NewHTTPClient(cfg.Agent.CentralURL, "",
		time.Duration(cfg.Agent.RequestTimeoutSec)*time.Second)
	return services.NewCentralClient(httpClient), nil
}

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Short:   "Inspect the fleet through the central registry",
		Aliases: []string{"nodes"},
	}
	cmd.AddCommand(newNodeListCmd())
	cmd.AddCommand(newNodeShowCmd())
	return cmd
}

func newNodeListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := centralClient()
			if err != nil {
				return err
			}

			resp, err := client.ListNodes(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOSTNAME\tTYPE\tSTATUS\tLAST HEARTBEAT\tID")
			for _, n := range resp.Nodes {
				last := "never"
				if n.LastHeartbeat != nil {
					last = n.LastHeartbeat.Local().Format("2006-01-02 15:04:05")
				}
				status := n.Status
				if n.IsStale {
					status += " (stale)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.Hostname, n.NodeType, status, last, n.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newNodeShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one node's detail and recent events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := centralClient()
			if err != nil {
				return err
			}

			detail, err := client.GetNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(detail, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			out := cmd.OutOrStdout()
			n := detail.Node
			fmt.Fprintf(out, "%s (%s)\n", n.Hostname, n.ID)
			fmt.Fprintf(out, "Type:     %s\n", n.NodeType)
			fmt.Fprintf(out, "Status:   %s (stale: %v)\n", n.Status, n.IsStale)
			fmt.Fprintf(out, "Address:  %s:%d\n", n.IPAddress, n.Port)
			fmt.Fprintf(out, "Version:  %s\n", n.Version)
			fmt.Fprintf(out, "Registered: %s\n", n.RegisteredAt.Local().Format(time.RFC1123))
			if n.LastHeartbeat != nil {
				fmt.Fprintf(out, "Last heartbeat: %s\n", n.LastHeartbeat.Local().Format(time.RFC1123))
			}
			if len(detail.Events) > 0 {
				fmt.Fprintln(out, "Recent events:")
				for _, ev := range detail.Events {
					fmt.Fprintf(out, "  %s  %-12s %s\n",
						ev.CreatedAt.Local().Format("2006-01-02 15:04:05"), ev.EventType, ev.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
