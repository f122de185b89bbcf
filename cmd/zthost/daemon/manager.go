// Package daemon runs the periodic reconciliation loop and the local
// status API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/config"
	"github.com/MyStarInYourSky/zthost/internal/agent"
	"github.com/MyStarInYourSky/zthost/internal/api"
	"github.com/MyStarInYourSky/zthost/internal/installer"
	"github.com/MyStarInYourSky/zthost/internal/metrics"
	"github.com/MyStarInYourSky/zthost/internal/reconcile"
	"github.com/MyStarInYourSky/zthost/models"
)

// DefaultListenAddr is where the status API binds. Localhost only: the API
// is an operator surface, not a remote one.
const DefaultListenAddr = "127.0.0.1:9394"

// DefaultInterval is the time between reconciliation runs.
const DefaultInterval = 5 * time.Minute

// Manager owns the daemon lifecycle: the reconciliation loop, the status
// API server, and graceful shutdown on signals.
type Manager struct {
	configPath      string
	logger          *zap.Logger
	interval        time.Duration
	listenAddr      string
	shutdownTimeout time.Duration
	version         string

	agent     *agent.Agent
	installer *installer.Installer

	// loadConfig and runReconcile are swappable for tests.
	loadConfig   func() (*config.Declaration, error)
	runReconcile func(ctx context.Context, decl *config.Declaration) (*models.RunSummary, error)

	mu         sync.RWMutex
	lastRun    *models.RunSummary
	lastRunErr string
	startedAt  time.Time

	trigger chan struct{}
	server  *http.Server
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ManagerConfig holds configuration for the Manager.
type ManagerConfig struct {
	// ConfigPath is the declaration file path. Empty selects the default
	// lookup (development file first, then the production path).
	ConfigPath string

	// Logger is the structured logger. Required.
	Logger *zap.Logger

	// Interval is the time between reconciliation runs. Default: 5 minutes.
	Interval time.Duration

	// ListenAddr is the status API bind address. Default: 127.0.0.1:9394.
	ListenAddr string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Version is the build version reported on /status.
	Version string
}

// NewManager creates a daemon manager and validates the declaration file
// so a broken config fails at startup, not at the first tick.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = DefaultListenAddr
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}

	loadConfig := config.Load
	if cfg.ConfigPath != "" {
		path := cfg.ConfigPath
		loadConfig = func() (*config.Declaration, error) {
			return config.LoadFromPath(path)
		}
	}

	if _, err := loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load declaration: %w", err)
	}

	if err := metrics.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	zerotierAgent := agent.New(agent.Config{Logger: logger})

	m := &Manager{
		configPath:      cfg.ConfigPath,
		logger:          logger,
		interval:        interval,
		listenAddr:      listenAddr,
		shutdownTimeout: shutdownTimeout,
		version:         cfg.Version,
		agent:           zerotierAgent,
		installer:       installer.New(logger, nil),
		loadConfig:      loadConfig,
		trigger:         make(chan struct{}, 1),
	}
	m.runReconcile = func(ctx context.Context, decl *config.Declaration) (*models.RunSummary, error) {
		reconciler := reconcile.New(reconcile.Config{
			Agent:  m.agent,
			Logger: m.logger,
			APIURL: decl.APIURL,
			// The daemon retries transient control plane failures; the
			// next tick retries everything else anyway.
			RetryAttempts: 2,
		})
		return reconciler.Run(ctx, decl)
	}

	return m, nil
}

// Run starts the daemon and blocks until a signal arrives or the status
// API server fails.
func (m *Manager) Run() error {
	m.logger.Info("zthost daemon starting",
		zap.String("listen_addr", m.listenAddr),
		zap.Duration("interval", m.interval))

	m.mu.Lock()
	m.startedAt = time.Now().UTC()
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	serverErr := make(chan error, 1)
	m.startServer(serverErr)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop(ctx)
	}()

	select {
	case sig := <-signalChan():
		m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		m.logger.Error("status API server failed", zap.Error(err))
		shutdownErr := m.Shutdown()
		if shutdownErr != nil {
			return shutdownErr
		}
		return err
	}

	return m.Shutdown()
}

// Shutdown stops the loop and the status API server gracefully.
func (m *Manager) Shutdown() error {
	m.logger.Info("shutting down daemon", zap.Duration("timeout", m.shutdownTimeout))

	if m.cancel != nil {
		m.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	if m.server != nil {
		if err := m.server.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("status API shutdown failed", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("daemon stopped")
		return nil
	case <-shutdownCtx.Done():
		m.logger.Warn("shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// startServer starts the localhost status API in a goroutine.
func (m *Manager) startServer(serverErr chan<- error) {
	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(&api.RouterConfig{
		Logger: m.logger,
		Status: m,
	})

	m.server = &http.Server{
		Addr:              m.listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
}

// loop runs reconciliation immediately, then on every tick or trigger.
func (m *Manager) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("reconciliation loop stopped")
			return
		case <-ticker.C:
			m.runOnce(ctx)
		case <-m.trigger:
			m.runOnce(ctx)
		}
	}
}

// runOnce executes one reconciliation pass: reload the declaration, honor
// the version pin, converge, and record the outcome.
func (m *Manager) runOnce(ctx context.Context) {
	decl, err := m.loadConfig()
	if err != nil {
		m.logger.Error("failed to load declaration", zap.Error(err))
		m.recordRun(nil, err)
		metrics.ObserveRunError()
		return
	}

	metrics.DeclaredNetworks.Set(float64(len(decl.EnabledNetworks())))

	if decl.Version != "" {
		changed, err := m.installer.Ensure(ctx, decl.Version)
		if err != nil {
			// Without the pinned package the reconcile pass would fail
			// or converge against the wrong agent version.
			m.logger.Error("failed to ensure agent package version",
				zap.String("version", decl.Version), zap.Error(err))
			m.recordRun(nil, err)
			metrics.ObserveRunError()
			return
		}
		if changed {
			m.logger.Info("agent package version changed",
				zap.String("version", decl.Version))
		}
	}

	summary, err := m.runReconcile(ctx, decl)
	m.recordRun(summary, err)

	if err != nil {
		m.logger.Error("reconciliation run failed", zap.Error(err))
		metrics.ObserveRunError()
		return
	}

	metrics.ObserveRun(summary)
}

// recordRun stores the last run outcome for /status.
func (m *Manager) recordRun(summary *models.RunSummary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if summary != nil {
		m.lastRun = summary
	}
	if err != nil {
		m.lastRunErr = err.Error()
	} else {
		m.lastRunErr = ""
	}
}

// Status implements api.StatusProvider.
func (m *Manager) Status() api.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := api.Status{
		Version:      m.version,
		StartedAt:    m.startedAt,
		Interval:     m.interval.Seconds(),
		LastRun:      m.lastRun,
		LastRunError: m.lastRunErr,
	}

	if nodeID, err := m.agent.NodeID(); err == nil {
		status.NodeID = nodeID
	}

	return status
}

// TriggerReconcile implements api.StatusProvider. It schedules an immediate
// run without blocking; a pending trigger is not stacked.
func (m *Manager) TriggerReconcile() bool {
	select {
	case m.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func signalChan() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	return sigChan
}
