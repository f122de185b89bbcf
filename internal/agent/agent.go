// Package agent interacts with the zerotier-one agent running on this host:
// reading its identity, enumerating joined networks from its state directory,
// joining and leaving networks through zerotier-cli, and restarting the
// service after configuration changes.
package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/models"
)

// Default locations for a stock zerotier-one installation.
const (
	// DefaultDataDir is the agent's state directory.
	DefaultDataDir = "/var/lib/zerotier-one"

	// DefaultCLI is the zerotier-cli binary name, resolved via PATH.
	DefaultCLI = "zerotier-cli"

	// DefaultServiceName is the systemd unit managing the agent.
	DefaultServiceName = "zerotier-one"

	// LocalConfName is the agent's local configuration file inside DataDir.
	LocalConfName = "local.conf"
)

var (
	nodeIDRegex    = regexp.MustCompile(`^[0-9a-f]{10}$`)
	networkIDRegex = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

// CommandRunner executes an external command and returns its combined output.
// It exists so tests can substitute a fake for zerotier-cli and systemctl.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Agent provides access to the local zerotier-one installation.
type Agent struct {
	// DataDir is the agent state directory (identity, networks.d, local.conf).
	DataDir string

	// CLI is the zerotier-cli binary path or name.
	CLI string

	// ServiceName is the systemd unit name for restarts.
	ServiceName string

	logger *zap.Logger
	run    CommandRunner
}

// Config holds the construction options for an Agent. Zero values select the
// stock installation defaults.
type Config struct {
	DataDir     string
	CLI         string
	ServiceName string
	Logger      *zap.Logger
	Runner      CommandRunner
}

// New creates an Agent for the local zerotier-one installation.
func New(cfg Config) *Agent {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.CLI == "" {
		cfg.CLI = DefaultCLI
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Runner == nil {
		cfg.Runner = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		}
	}

	return &Agent{
		DataDir:     cfg.DataDir,
		CLI:         cfg.CLI,
		ServiceName: cfg.ServiceName,
		logger:      cfg.Logger,
		run:         cfg.Runner,
	}
}

// Installed reports whether zerotier-cli can be located.
func (a *Agent) Installed() bool {
	if strings.ContainsRune(a.CLI, os.PathSeparator) {
		_, err := os.Stat(a.CLI)
		return err == nil
	}
	_, err := exec.LookPath(a.CLI)
	return err == nil
}

// NodeID reads the host's ZeroTier address from the agent's public identity
// file. The identity format is "<address>:0:<public key>".
func (a *Agent) NodeID() (string, error) {
	path := filepath.Join(a.DataDir, "identity.public")

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", models.ErrIdentityNotFound, path)
	}

	identity := strings.TrimSpace(string(data))
	nodeID, _, _ := strings.Cut(identity, ":")
	if !nodeIDRegex.MatchString(nodeID) {
		return "", fmt.Errorf("%w: malformed identity in %s", models.ErrIdentityNotFound, path)
	}

	return nodeID, nil
}

// JoinedNetworks enumerates the networks the agent is currently joined to.
// The agent keeps one networks.d/<id>.conf per membership, which survives
// restarts and is cheaper to read than parsing zerotier-cli listnetworks.
func (a *Agent) JoinedNetworks() ([]string, error) {
	dir := filepath.Join(a.DataDir, "networks.d")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var networks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".conf")
		if id == entry.Name() || !networkIDRegex.MatchString(id) {
			continue
		}
		networks = append(networks, id)
	}

	return networks, nil
}

// Joined reports whether the agent is currently a member of one network.
func (a *Agent) Joined(networkID string) (bool, error) {
	path := filepath.Join(a.DataDir, "networks.d", networkID+".conf")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LocalConfPath returns the path of the agent's local configuration file.
func (a *Agent) LocalConfPath() string {
	return filepath.Join(a.DataDir, LocalConfName)
}
