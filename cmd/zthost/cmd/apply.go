package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/config"
	"github.com/MyStarInYourSky/zthost/internal/agent"
	"github.com/MyStarInYourSky/zthost/internal/installer"
	"github.com/MyStarInYourSky/zthost/internal/reconcile"
	"github.com/MyStarInYourSky/zthost/models"
)

var (
	applyConfigPath string
	applyTimeout    time.Duration
	applyJSON       bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Converge this host to the declaration once",
	Long: `Run one reconciliation pass and exit.

The pass ensures the pinned zerotier-one package version (if declared),
joins and leaves networks to match the declaration, pushes member
configuration to the control plane, and rewrites local.conf when it
changed. The exit code is non-zero if any network failed to converge.`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyConfigPath, "config", "c", "",
		"Path to the declaration file (default: ./zthost.yml, then /etc/zthost/config.yml)")
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 10*time.Minute,
		"Overall timeout for the reconciliation pass")
	applyCmd.Flags().BoolVar(&applyJSON, "json", false,
		"Print the run summary as JSON")
}

func runApply(cmd *cobra.Command, args []string) error {
	logger, err := initLogger(devMode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	decl, err := loadDeclaration(applyConfigPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), applyTimeout)
	defer cancel()

	if decl.Version != "" {
		changed, err := installer.New(logger, nil).Ensure(ctx, decl.Version)
		if err != nil {
			return fmt.Errorf("failed to ensure agent package version: %w", err)
		}
		if changed {
			logger.Info("agent package version changed", zap.String("version", decl.Version))
		}
	}

	reconciler := reconcile.New(reconcile.Config{
		Agent:  agent.New(agent.Config{Logger: logger}),
		Logger: logger,
		APIURL: decl.APIURL,
	})

	summary, err := reconciler.Run(ctx, decl)
	if err != nil {
		return err
	}

	if err := printSummary(summary, applyJSON); err != nil {
		return err
	}

	if summary.Failed() {
		return fmt.Errorf("reconciliation failed for networks: %v", summary.FailedNetworks())
	}
	return nil
}

func loadDeclaration(path string) (*config.Declaration, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func printSummary(summary *models.RunSummary, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	fmt.Printf("Run %s finished in %s\n",
		summary.RunID, summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))

	for _, network := range summary.Networks {
		state := "ok"
		if network.Changed {
			state = "changed"
		}
		if network.Failed() {
			state = "failed: " + network.Error
		}
		fmt.Printf("  %s  %v  %s\n", network.NetworkID, network.Actions, state)
	}

	if summary.LocalConfigChanged {
		fmt.Println("  local.conf rewritten, agent restarted")
	}
	if !summary.Changed() {
		fmt.Println("  no changes")
	}
	return nil
}
