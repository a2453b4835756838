package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type ieeePSEnableRequest struct {
	Mask uint32 `json:"mask"`
}

type hostSleepRequest struct {
	Configured       bool   `json:"configured"`
	WakeupConditions uint32 `json:"wakeup_conditions"`
	GPIO             int    `json:"gpio"`
	GapMillis        int    `json:"gap_millis"`
}

func powersaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "powersave",
		Short: "Manage IEEE power-save and deep-sleep modes",
	}

	cmd.AddCommand(powersaveIEEECmd())
	cmd.AddCommand(powersaveDeepSleepCmd())
	cmd.AddCommand(powersaveHostSleepCmd())

	return cmd
}

func powersaveIEEECmd() *cobra.Command {
	var mask uint32

	cmd := &cobra.Command{
		Use:   "ieee enable|disable",
		Short: "Enable or disable IEEE 802.11 power-save",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			switch args[0] {
			case "enable":
				req := ieeePSEnableRequest{Mask: mask}
				if err := doJSON(context.Background(), "POST", "/v1/powersave/ieee/enable", req, nil); err != nil {
					return fmt.Errorf("ieee ps enable: %w", err)
				}
				fmt.Println("ieee power-save enable requested")
			case "disable":
				if err := doJSON(context.Background(), "POST", "/v1/powersave/ieee/disable", nil, nil); err != nil {
					return fmt.Errorf("ieee ps disable: %w", err)
				}
				fmt.Println("ieee power-save disable requested")
			default:
				return fmt.Errorf("unknown subcommand %q, expected enable or disable", args[0])
			}
			return nil
		},
	}

	cmd.Flags().Uint32Var(&mask, "mask", 0, "IEEE power-save wakeup condition mask (enable only)")
	return cmd
}

func powersaveDeepSleepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deepsleep enable|disable",
		Short: "Enable or disable Deep-Sleep power-save",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			switch args[0] {
			case "enable":
				if err := doJSON(context.Background(), "POST", "/v1/powersave/deepsleep/enable", nil, nil); err != nil {
					return fmt.Errorf("deep sleep enable: %w", err)
				}
				fmt.Println("deep sleep enable requested")
			case "disable":
				if err := doJSON(context.Background(), "POST", "/v1/powersave/deepsleep/disable", nil, nil); err != nil {
					return fmt.Errorf("deep sleep disable: %w", err)
				}
				fmt.Println("deep sleep disable requested")
			default:
				return fmt.Errorf("unknown subcommand %q, expected enable or disable", args[0])
			}
			return nil
		},
	}
}

func powersaveHostSleepCmd() *cobra.Command {
	var req hostSleepRequest

	cmd := &cobra.Command{
		Use:   "hostsleep",
		Short: "Configure host-sleep wakeup conditions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := doJSON(context.Background(), "POST", "/v1/powersave/hostsleep", req, nil); err != nil {
				return fmt.Errorf("host sleep config: %w", err)
			}
			fmt.Println("host sleep config requested")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&req.Configured, "configured", true, "arm host-sleep before suspend")
	flags.Uint32Var(&req.WakeupConditions, "wakeup-conditions", 0, "wakeup condition bitmask")
	flags.IntVar(&req.GPIO, "gpio", 0, "wakeup GPIO line")
	flags.IntVar(&req.GapMillis, "gap-millis", 0, "inter-event gap, in milliseconds")

	return cmd
}
