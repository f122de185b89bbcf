package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/cmd/zthost/daemon"
	"github.com/MyStarInYourSky/zthost/internal/logging"
)

var (
	daemonConfigPath string
	daemonInterval   time.Duration
	daemonListenAddr string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Reconcile continuously and serve the status API",
	Long: `Start the zthost daemon.

The daemon will:
  - Reconcile the host against the declaration on a fixed interval
  - Reload the declaration file before every run
  - Serve a localhost status API (/status, /health, /metrics)
  - Accept reconcile triggers via POST /reconcile
  - Handle graceful shutdown on SIGTERM/SIGINT`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVarP(&daemonConfigPath, "config", "c", "",
		"Path to the declaration file (default: ./zthost.yml, then /etc/zthost/config.yml)")
	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", daemon.DefaultInterval,
		"Time between reconciliation runs")
	daemonCmd.Flags().StringVar(&daemonListenAddr, "listen", daemon.DefaultListenAddr,
		"Status API bind address")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger, err := initLogger(devMode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("zthost daemon starting",
		zap.String("version", Version),
		zap.String("commit", Commit))

	manager, err := daemon.NewManager(daemon.ManagerConfig{
		ConfigPath: daemonConfigPath,
		Logger:     logger,
		Interval:   daemonInterval,
		ListenAddr: daemonListenAddr,
		Version:    Version,
	})
	if err != nil {
		logger.Error("failed to create daemon manager", zap.Error(err))
		return fmt.Errorf("failed to create manager: %w", err)
	}

	if err := manager.Run(); err != nil {
		logger.Error("daemon error", zap.Error(err))
		return err
	}

	logger.Info("daemon stopped")
	return nil
}

func initLogger(devMode bool) (*zap.Logger, error) {
	if devMode {
		return logging.NewDevelopmentLogger()
	}
	return logging.NewProductionLogger("")
}
