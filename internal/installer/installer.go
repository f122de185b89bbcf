// Package installer ensures the zerotier-one package is installed at a
// pinned version. It drives the host's package manager directly (apt or dnf)
// and holds the package so unattended upgrades cannot move it.
package installer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/models"
)

// PackageName is the distribution package for the ZeroTier agent.
const PackageName = "zerotier-one"

// CommandRunner executes an external command and returns its combined
// output. Tests substitute a fake.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// lookPath is swapped in tests to control package manager detection.
var lookPath = exec.LookPath

// Installer pins the agent package version on this host.
type Installer struct {
	logger *zap.Logger
	run    CommandRunner
}

// New creates an Installer. A nil runner uses os/exec.
func New(logger *zap.Logger, runner CommandRunner) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		}
	}
	return &Installer{logger: logger, run: runner}
}

// InstalledVersion returns the agent version reported by zerotier-cli, or
// empty when the agent is not installed.
func (i *Installer) InstalledVersion(ctx context.Context) string {
	output, err := i.run(ctx, "zerotier-cli", "-v")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// Ensure installs and pins the agent package at the requested version. An
// empty version leaves the installation alone. When the installed version
// already matches, Ensure is a no-op and returns false; otherwise it returns
// true after installing.
func (i *Installer) Ensure(ctx context.Context, version string) (bool, error) {
	if version == "" {
		return false, nil
	}

	installed := i.InstalledVersion(ctx)
	if installed == version {
		i.logger.Debug("agent package already at pinned version",
			zap.String("version", version))
		return false, nil
	}

	i.logger.Info("installing agent package",
		zap.String("package", PackageName),
		zap.String("installed", installed),
		zap.String("version", version))

	switch {
	case hasCommand("apt-get"):
		return true, i.ensureApt(ctx, version)
	case hasCommand("dnf"):
		return true, i.ensureDnf(ctx, version)
	default:
		return false, models.ErrNoPackageManager
	}
}

// ensureApt installs the pinned version via apt and marks it held. Debian
// and Ubuntu version the package as "<upstream>" directly.
func (i *Installer) ensureApt(ctx context.Context, version string) error {
	spec := fmt.Sprintf("%s=%s", PackageName, version)
	if output, err := i.run(ctx, "apt-get", "install", "-y", "--allow-downgrades", spec); err != nil {
		return fmt.Errorf("apt-get install %s failed: %w: %s", spec, err, strings.TrimSpace(string(output)))
	}
	if output, err := i.run(ctx, "apt-mark", "hold", PackageName); err != nil {
		return fmt.Errorf("apt-mark hold failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ensureDnf installs the pinned version via dnf and locks it with the
// versionlock plugin.
func (i *Installer) ensureDnf(ctx context.Context, version string) error {
	spec := fmt.Sprintf("%s-%s", PackageName, version)
	if output, err := i.run(ctx, "dnf", "install", "-y", spec); err != nil {
		return fmt.Errorf("dnf install %s failed: %w: %s", spec, err, strings.TrimSpace(string(output)))
	}
	if output, err := i.run(ctx, "dnf", "versionlock", "add", spec); err != nil {
		return fmt.Errorf("dnf versionlock failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func hasCommand(name string) bool {
	_, err := lookPath(name)
	return err == nil
}
