package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type addProfileRequest struct {
	Name       string `json:"name"`
	SSID       string `json:"ssid"`
	BSSID      string `json:"bssid,omitempty"`
	Channel    int    `json:"channel,omitempty"`
	Security   string `json:"security"`
	PSK        string `json:"psk,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	Role       string `json:"role"`
	Dynamic    bool   `json:"dynamic"`
	Address    string `json:"address,omitempty"`
	Gateway    string `json:"gateway,omitempty"`
	Netmask    string `json:"netmask,omitempty"`
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage stored network profiles",
	}

	cmd.AddCommand(profileAddCmd())
	cmd.AddCommand(profileRemoveCmd())

	return cmd
}

func profileAddCmd() *cobra.Command {
	var req addProfileRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a network profile",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if req.Name == "" {
				return errProfileRequired
			}
			if err := doJSON(context.Background(), "POST", "/v1/profiles", req, nil); err != nil {
				return fmt.Errorf("add profile: %w", err)
			}
			fmt.Printf("profile %q added\n", req.Name)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Name, "name", "", "profile name (required)")
	flags.StringVar(&req.SSID, "ssid", "", "network SSID")
	flags.StringVar(&req.BSSID, "bssid", "", "pin the profile to a single AP MAC address")
	flags.IntVar(&req.Channel, "channel", 0, "pin the profile to a single channel")
	flags.StringVar(&req.Security, "security", "none",
		"security type: none, wep, wpa, wpa-wpa2-mixed, wpa2, wpa3-sae, wpa2-wpa3-mixed, owe, wildcard")
	flags.StringVar(&req.PSK, "psk", "", "WPA/WPA2 pre-shared key")
	flags.StringVar(&req.Passphrase, "passphrase", "", "WPA3-SAE/OWE passphrase")
	flags.StringVar(&req.Role, "role", "sta", "profile role: sta or uap")
	flags.BoolVar(&req.Dynamic, "dynamic", true, "use DHCP instead of a static address")
	flags.StringVar(&req.Address, "address", "", "static IP address (ignored if --dynamic)")
	flags.StringVar(&req.Gateway, "gateway", "", "static gateway address (ignored if --dynamic)")
	flags.StringVar(&req.Netmask, "netmask", "", "static netmask (ignored if --dynamic)")

	return cmd
}

func profileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a stored network profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "/v1/profiles/" + args[0]
			if err := doJSON(context.Background(), "DELETE", path, nil, nil); err != nil {
				return fmt.Errorf("remove profile: %w", err)
			}
			fmt.Printf("profile %q removed\n", args[0])
			return nil
		},
	}
}
