package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the top-level cobra command for wcmctl.
var rootCmd = &cobra.Command{
	Use:   "wcmctl",
	Short: "CLI client for the Wi-Fi connection manager daemon",
	Long:  "wcmctl communicates with the wcmd daemon over its REST control plane.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8080",
		"wcmd daemon REST address (host:port)")

	rootCmd.AddCommand(staCmd())
	rootCmd.AddCommand(uapCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(powersaveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
