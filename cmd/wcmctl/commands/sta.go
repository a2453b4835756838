package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errProfileRequired = errors.New("profile name argument is required")

type statusResponse struct {
	State string `json:"state"`
}

type connectRequest struct {
	Profile string `json:"profile"`
}

type scanResponse struct {
	BSSCount int `json:"bss_count"`
}

func staCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sta",
		Short: "Manage the station (client) interface",
	}

	cmd.AddCommand(staStatusCmd())
	cmd.AddCommand(staConnectCmd())
	cmd.AddCommand(staDisconnectCmd())
	cmd.AddCommand(staScanCmd())

	return cmd
}

func staStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the station FSM's current state",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resp statusResponse
			if err := doJSON(context.Background(), "GET", "/v1/sta/status", nil, &resp); err != nil {
				return fmt.Errorf("sta status: %w", err)
			}
			fmt.Println(resp.State)
			return nil
		},
	}
}

func staConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <profile>",
		Short: "Connect to a stored network profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			req := connectRequest{Profile: args[0]}
			if err := doJSON(context.Background(), "POST", "/v1/sta/connect", req, nil); err != nil {
				return fmt.Errorf("sta connect: %w", err)
			}
			fmt.Printf("connect requested for profile %q\n", args[0])
			return nil
		},
	}
}

func staDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the station interface",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := doJSON(context.Background(), "POST", "/v1/sta/disconnect", nil, nil); err != nil {
				return fmt.Errorf("sta disconnect: %w", err)
			}
			fmt.Println("disconnected")
			return nil
		},
	}
}

func staScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Trigger a scan and report the number of BSSes seen",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resp scanResponse
			if err := doJSON(context.Background(), "POST", "/v1/sta/scan", nil, &resp); err != nil {
				return fmt.Errorf("sta scan: %w", err)
			}
			fmt.Printf("%d bss seen\n", resp.BSSCount)
			return nil
		},
	}
}
