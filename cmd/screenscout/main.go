// Screenscout finds and identifies media devices on the local network.
//
// It discovers TVs, speakers, and casting sticks using SSDP, mDNS, and a
// TCP port sweep, merges the answers into one deduplicated stream, and
// classifies each device's brand. Results render as a live terminal UI,
// plain lines for scripting, or JSON, and can be saved to a local device
// registry.
//
// Usage:
//
//	screenscout [command] [flags]
//
// Running without arguments starts a network scan.
// See 'screenscout --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/screenscout/screenscout/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "screenscout",
	Short: "Media Device Discovery Utility",
	Long: `A utility for finding controllable media devices on the local network.

Discovers TVs, speakers, and casting sticks over SSDP, mDNS, and a TCP
port sweep, identifies each device's brand, and can persist results to a
local device registry.

If no command is specified, a network scan starts automatically.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: scan the network when no subcommand provided
		return runScan(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("screenscout %s (commit: %s)\n", version.Version, version.Commit)
	},
}
