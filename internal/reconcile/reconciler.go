package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MyStarInYourSky/zthost/config"
	"github.com/MyStarInYourSky/zthost/internal/localconf"
	"github.com/MyStarInYourSky/zthost/internal/logging"
	"github.com/MyStarInYourSky/zthost/models"
	"github.com/MyStarInYourSky/zthost/sdk"
)

// AgentController is the reconciler's view of the local zerotier-one
// installation. *agent.Agent implements it; tests use fakes.
type AgentController interface {
	Installed() bool
	NodeID() (string, error)
	JoinedNetworks() ([]string, error)
	Join(ctx context.Context, networkID string) error
	Leave(ctx context.Context, networkID string) error
	RestartService(ctx context.Context) error
	LocalConfPath() string
}

// MemberAPI is the control plane surface the reconciler needs. *sdk.Client
// implements it.
type MemberAPI interface {
	GetNetwork(ctx context.Context, networkID string) (*sdk.Network, error)
	GetMember(ctx context.Context, networkID, nodeID string) (*sdk.Member, error)
	UpdateMember(ctx context.Context, networkID, nodeID string, member *sdk.Member) (*sdk.Member, error)
	DeleteMember(ctx context.Context, networkID, nodeID string) error
}

// ClientFactory builds a control plane client for one network's API key.
type ClientFactory func(apiKey string) (MemberAPI, error)

// Reconciler converges a declaration against the local agent and the
// control plane.
type Reconciler struct {
	agent     AgentController
	logger    *zap.Logger
	newClient ClientFactory
}

// Config holds the construction options for a Reconciler.
type Config struct {
	// Agent is the local agent controller. Required.
	Agent AgentController

	// Logger is the structured logger. Optional.
	Logger *zap.Logger

	// APIURL overrides the control plane base URL. Empty means Central.
	APIURL string

	// RetryAttempts configures transport retries on the SDK clients the
	// reconciler creates. Zero (the default) surfaces failures immediately.
	RetryAttempts int

	// NewClient overrides SDK client construction. Tests use it to inject
	// a fake control plane.
	NewClient ClientFactory
}

// New creates a Reconciler.
func New(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	newClient := cfg.NewClient
	if newClient == nil {
		newClient = func(apiKey string) (MemberAPI, error) {
			return sdk.NewClient(sdk.ClientConfig{
				BaseURL:       cfg.APIURL,
				APIKey:        apiKey,
				RetryAttempts: cfg.RetryAttempts,
			})
		}
	}

	return &Reconciler{
		agent:     cfg.Agent,
		logger:    logger,
		newClient: newClient,
	}
}

// Run performs one full reconciliation pass: membership convergence for
// every declared network, then the local configuration file.
//
// Per-network failures are recorded in the summary and do not stop the run;
// the remaining networks are still processed. Run itself returns an error
// only for host-level failures (agent missing, unreadable identity, local
// config write or restart failure) that make the whole pass meaningless.
func (r *Reconciler) Run(ctx context.Context, decl *config.Declaration) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := r.logger.With(zap.String(logging.FieldRunID, summary.RunID))

	if !r.agent.Installed() {
		return nil, models.ErrAgentNotInstalled
	}

	nodeID, err := r.agent.NodeID()
	if err != nil {
		return nil, err
	}

	joined, err := r.agent.JoinedNetworks()
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(decl.Networks, joined)
	logger.Info("reconciliation plan built",
		zap.String(logging.FieldNodeID, nodeID),
		zap.Strings("leaves", plan.Leaves),
		zap.Strings("joins", plan.Joins),
		zap.Strings("updates", plan.Updates))

	joinSet := make(map[string]bool, len(plan.Joins))
	for _, id := range plan.Joins {
		joinSet[id] = true
	}

	// Leaves first: they free memberships and never depend on the API key
	// checks the update path performs.
	for _, networkID := range plan.Leaves {
		result := r.leaveNetwork(ctx, logger, networkID, nodeID, decl.Networks[networkID])
		summary.Networks = append(summary.Networks, result)
	}

	// Declared-and-enabled networks: join when needed, then push the
	// declared member configuration.
	for _, networkID := range plan.Updates {
		result := r.convergeNetwork(ctx, logger, networkID, nodeID, decl.Networks[networkID], joinSet[networkID])
		summary.Networks = append(summary.Networks, result)
	}

	if err := r.applyLocalConfig(ctx, logger, decl.LocalConfig, summary); err != nil {
		summary.FinishedAt = time.Now().UTC()
		return summary, err
	}

	summary.FinishedAt = time.Now().UTC()

	logger.Info("reconciliation finished",
		zap.Bool("changed", summary.Changed()),
		zap.Strings("failed_networks", summary.FailedNetworks()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}

// leaveNetwork removes a membership: locally via zerotier-cli and, when the
// declaration still carries an API key, the member record on the control
// plane. Undeclared networks have no key, so only the local leave happens.
func (r *Reconciler) leaveNetwork(ctx context.Context, logger *zap.Logger, networkID, nodeID string, decl config.NetworkDeclaration) models.NetworkResult {
	result := models.NetworkResult{
		NetworkID: networkID,
		Actions:   []models.ActionKind{models.ActionLeave},
	}

	logger.Info("leaving network", zap.String(logging.FieldNetworkID, networkID))

	if err := r.agent.Leave(ctx, networkID); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Changed = true

	if decl.APIKey != "" {
		client, err := r.newClient(decl.APIKey)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		if err := client.DeleteMember(ctx, networkID, nodeID); err != nil {
			result.Error = err.Error()
			return result
		}
	}

	return result
}

// convergeNetwork joins the network when needed and pushes the declared
// member configuration to the control plane, skipping the POST when the
// merged record already matches.
func (r *Reconciler) convergeNetwork(ctx context.Context, logger *zap.Logger, networkID, nodeID string, decl config.NetworkDeclaration, needsJoin bool) models.NetworkResult {
	result := models.NetworkResult{NetworkID: networkID}

	if needsJoin {
		result.Actions = append(result.Actions, models.ActionJoin)
		logger.Info("joining network", zap.String(logging.FieldNetworkID, networkID))

		if err := r.agent.Join(ctx, networkID); err != nil {
			result.Error = err.Error()
			return result
		}
		result.Changed = true
	}

	result.Actions = append(result.Actions, models.ActionUpdate)

	client, err := r.newClient(decl.APIKey)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Fetching the network record validates the API key before any member
	// call touches state.
	if _, err := client.GetNetwork(ctx, networkID); err != nil {
		result.Error = fmt.Sprintf("api key check failed: %v", err)
		return result
	}

	current, err := client.GetMember(ctx, networkID, nodeID)
	if err != nil {
		if !errors.Is(err, sdk.ErrNotFound) {
			result.Error = err.Error()
			return result
		}
		// A freshly joined node has no member record until the controller
		// has seen it. POSTing creates the record, so converge against an
		// empty one instead of waiting for the controller.
		current = &sdk.Member{NetworkID: networkID, NodeID: nodeID}
	}

	desired, changed, err := desiredMember(current, decl)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if !changed {
		logger.Debug("member configuration unchanged",
			zap.String(logging.FieldNetworkID, networkID))
		return result
	}

	logger.Info("updating member configuration",
		zap.String(logging.FieldNetworkID, networkID),
		zap.String(logging.FieldNodeID, nodeID))

	if _, err := client.UpdateMember(ctx, networkID, nodeID, desired); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Changed = true

	return result
}

// applyLocalConfig writes the declared local configuration mapping and
// restarts the agent when the file changed.
func (r *Reconciler) applyLocalConfig(ctx context.Context, logger *zap.Logger, localConfig map[string]interface{}, summary *models.RunSummary) error {
	if localConfig == nil {
		return nil
	}

	path := r.agent.LocalConfPath()
	changed, err := localconf.Write(path, localConfig)
	if err != nil {
		return fmt.Errorf("failed to write local config: %w", err)
	}
	if !changed {
		return nil
	}

	summary.LocalConfigChanged = true
	logger.Info("local config rewritten, restarting agent", zap.String(logging.FieldPath, path))

	if err := r.agent.RestartService(ctx); err != nil {
		return fmt.Errorf("local config updated but agent restart failed: %w", err)
	}
	summary.AgentRestarted = true

	return nil
}
