package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/models"
)

// Join joins the agent to a network via zerotier-cli. The call is idempotent
// on the agent side: joining an already-joined network succeeds.
func (a *Agent) Join(ctx context.Context, networkID string) error {
	return a.cli(ctx, "join", networkID)
}

// Leave removes the agent from a network via zerotier-cli.
func (a *Agent) Leave(ctx context.Context, networkID string) error {
	return a.cli(ctx, "leave", networkID)
}

// cli runs a zerotier-cli subcommand against this agent's state directory.
func (a *Agent) cli(ctx context.Context, args ...string) error {
	if !a.Installed() {
		return models.ErrAgentNotInstalled
	}

	// -D keeps the CLI pointed at the same state directory the Agent reads,
	// which matters for non-default DataDir and for tests.
	full := append([]string{"-D" + a.DataDir}, args...)

	a.logger.Debug("running zerotier-cli",
		zap.String("cli", a.CLI),
		zap.Strings("args", full))

	output, err := a.run(ctx, a.CLI, full...)
	if err != nil {
		return fmt.Errorf("zerotier-cli %s failed: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}

	a.logger.Info("zerotier-cli completed",
		zap.Strings("args", args),
		zap.String("output", strings.TrimSpace(string(output))))

	return nil
}
