package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// shellCommands lists the available commands for the interactive shell help output.
var shellCommands = []struct {
	name string
	desc string
}{
	{"sta status", "Show the station FSM's current state"},
	{"sta connect <profile>", "Connect to a stored network profile"},
	{"sta disconnect", "Disconnect the station interface"},
	{"sta scan", "Trigger a scan"},
	{"uap status", "Show the soft-AP FSM's current state"},
	{"uap start <profile>", "Start the soft-AP"},
	{"uap stop", "Stop the soft-AP"},
	{"profile add --name ... --ssid ...", "Add a network profile"},
	{"profile remove <name>", "Remove a network profile"},
	{"powersave ieee enable|disable", "Toggle IEEE power-save"},
	{"powersave deepsleep enable|disable", "Toggle Deep-Sleep power-save"},
	{"powersave hostsleep", "Configure host-sleep wakeup conditions"},
	{"version", "Print build information"},
	{"help", "Show this help message"},
	{"exit / quit", "Leave the interactive shell"},
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive wcmctl shell",
		Long:  "Launches a simple REPL that accepts wcmctl subcommands. Type 'help', 'exit', or 'quit'.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			printShellBanner()
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("wcmctl> ")

			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "exit" || line == "quit":
					return nil
				case line == "help" || line == "?":
					printShellHelp()
				case line != "":
					args := strings.Fields(line)
					rootCmd.SetArgs(args)

					if err := rootCmd.Execute(); err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
					}
				}

				fmt.Print("wcmctl> ")
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			return nil
		},
	}
}

// printShellBanner prints a welcome message when the shell starts.
func printShellBanner() {
	fmt.Println("wcmctl interactive shell. Type 'help' for available commands, 'exit' to quit.")
	fmt.Println()
}

// printShellHelp prints a formatted list of available shell commands.
func printShellHelp() {
	fmt.Println("Available commands:")
	fmt.Println()

	for _, cmd := range shellCommands {
		fmt.Printf("  %-36s %s\n", cmd.name, cmd.desc)
	}

	fmt.Println()
}
