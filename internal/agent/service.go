package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RestartService restarts the zerotier-one service so the agent re-reads
// local.conf. The agent has no reload signal; a restart is the supported way
// to apply local configuration changes.
func (a *Agent) RestartService(ctx context.Context) error {
	a.logger.Info("restarting agent service", zap.String("unit", a.ServiceName))

	output, err := a.run(ctx, "systemctl", "restart", a.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to restart %s: %w: %s",
			a.ServiceName, err, strings.TrimSpace(string(output)))
	}

	return nil
}
