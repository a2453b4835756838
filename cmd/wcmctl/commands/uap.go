package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func uapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uap",
		Short: "Manage the soft-AP interface",
	}

	cmd.AddCommand(uapStatusCmd())
	cmd.AddCommand(uapStartCmd())
	cmd.AddCommand(uapStopCmd())

	return cmd
}

func uapStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the soft-AP FSM's current state",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resp statusResponse
			if err := doJSON(context.Background(), "GET", "/v1/uap/status", nil, &resp); err != nil {
				return fmt.Errorf("uap status: %w", err)
			}
			fmt.Println(resp.State)
			return nil
		},
	}
}

func uapStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <profile>",
		Short: "Start the soft-AP using a stored uAP profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			req := connectRequest{Profile: args[0]}
			if err := doJSON(context.Background(), "POST", "/v1/uap/start", req, nil); err != nil {
				return fmt.Errorf("uap start: %w", err)
			}
			fmt.Printf("uap start requested for profile %q\n", args[0])
			return nil
		},
	}
}

func uapStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the soft-AP",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := doJSON(context.Background(), "POST", "/v1/uap/stop", nil, nil); err != nil {
				return fmt.Errorf("uap stop: %w", err)
			}
			fmt.Println("uap stopped")
			return nil
		},
	}
}
