package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time via ldflags)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// devMode switches all subcommands to console logging.
var devMode bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "zthost",
	Short: "zthost - declarative ZeroTier host management",
	Long: `zthost converges a host's ZeroTier state to a declaration file.

It manages:
  - Network memberships (join/leave via zerotier-cli)
  - Member configuration on the control plane (authorization, tags, capabilities)
  - The agent's local.conf and service restarts
  - An optional zerotier-one package version pin

Run "zthost apply" for a one-shot convergence, or "zthost daemon" to
reconcile continuously and serve a local status API.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false,
		"Enable development mode (console logging instead of JSON)")
}

// versionString returns formatted version information
func versionString() string {
	return fmt.Sprintf("zthost %s (commit: %s, built: %s)",
		Version, Commit, BuildDate)
}
