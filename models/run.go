package models

import "time"

// ActionKind identifies a reconciliation step for a single network.
type ActionKind string

const (
	// ActionJoin joins the local agent to a network via zerotier-cli.
	ActionJoin ActionKind = "join"

	// ActionLeave removes the local agent from a network via zerotier-cli.
	ActionLeave ActionKind = "leave"

	// ActionUpdate pushes the declared member configuration to the
	// control plane for a network the agent is (or just became) a member of.
	ActionUpdate ActionKind = "update"
)

// NetworkResult records the outcome of reconciling one network.
type NetworkResult struct {
	// NetworkID is the 16-character ZeroTier network identifier.
	NetworkID string `json:"network_id"`

	// Actions lists the steps executed for this network, in order.
	Actions []ActionKind `json:"actions"`

	// Changed is true if any step modified remote or local state.
	Changed bool `json:"changed"`

	// Error is the failure message for this network, empty on success.
	Error string `json:"error,omitempty"`
}

// Failed reports whether reconciling this network returned an error.
func (r NetworkResult) Failed() bool {
	return r.Error != ""
}

// RunSummary describes a complete reconciliation run.
type RunSummary struct {
	// RunID uniquely identifies this run in logs and status output.
	RunID string `json:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run completed (success or failure).
	FinishedAt time.Time `json:"finished_at"`

	// Networks holds the per-network outcomes, in processing order.
	Networks []NetworkResult `json:"networks"`

	// LocalConfigChanged is true if the local agent configuration file
	// was rewritten during this run.
	LocalConfigChanged bool `json:"local_config_changed"`

	// AgentRestarted is true if the local agent service was restarted
	// to pick up a changed configuration file.
	AgentRestarted bool `json:"agent_restarted"`
}

// Changed reports whether the run modified any remote or local state.
func (s RunSummary) Changed() bool {
	if s.LocalConfigChanged {
		return true
	}
	for _, n := range s.Networks {
		if n.Changed {
			return true
		}
	}
	return false
}

// Failed reports whether any network in the run returned an error.
func (s RunSummary) Failed() bool {
	for _, n := range s.Networks {
		if n.Failed() {
			return true
		}
	}
	return false
}

// FailedNetworks returns the IDs of networks whose reconciliation failed.
func (s RunSummary) FailedNetworks() []string {
	var ids []string
	for _, n := range s.Networks {
		if n.Failed() {
			ids = append(ids, n.NetworkID)
		}
	}
	return ids
}
