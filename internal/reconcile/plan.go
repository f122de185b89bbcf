// Package reconcile converges declared ZeroTier state against the local
// agent and the control plane. Planning is pure: it diffs the declared
// network set against the agent's joined set and yields the actions that
// make them equal. Applying is sequential and per-network independent, so a
// failing network never blocks the others.
package reconcile

import (
	"sort"

	"github.com/MyStarInYourSky/zthost/config"
	"github.com/MyStarInYourSky/zthost/models"
)

// Plan is the ordered set of actions for one reconciliation run. Leaves come
// first so a network that switched declarations frees its membership before
// new joins happen; updates always follow joins because a member record only
// exists once the node has joined.
type Plan struct {
	// Leaves are networks to leave: joined but undeclared, or declared
	// with enabled=false.
	Leaves []string

	// Joins are networks to join: declared and enabled but not joined.
	Joins []string

	// Updates are networks whose member configuration must be pushed to
	// the control plane: every declared-and-enabled network.
	Updates []string
}

// Empty reports whether the plan contains no actions.
func (p Plan) Empty() bool {
	return len(p.Leaves) == 0 && len(p.Joins) == 0 && len(p.Updates) == 0
}

// Actions flattens the plan into the per-network action list, keyed by
// network ID, for result reporting.
func (p Plan) Actions() map[string][]models.ActionKind {
	actions := make(map[string][]models.ActionKind)
	for _, id := range p.Leaves {
		actions[id] = append(actions[id], models.ActionLeave)
	}
	for _, id := range p.Joins {
		actions[id] = append(actions[id], models.ActionJoin)
	}
	for _, id := range p.Updates {
		actions[id] = append(actions[id], models.ActionUpdate)
	}
	return actions
}

// BuildPlan diffs the declared networks against the agent's joined set.
// Output slices are sorted for deterministic processing order.
func BuildPlan(declared map[string]config.NetworkDeclaration, joined []string) Plan {
	joinedSet := make(map[string]bool, len(joined))
	for _, id := range joined {
		joinedSet[id] = true
	}

	var plan Plan

	for id, network := range declared {
		switch {
		case !network.IsEnabled():
			if joinedSet[id] {
				plan.Leaves = append(plan.Leaves, id)
			}
		default:
			if !joinedSet[id] {
				plan.Joins = append(plan.Joins, id)
			}
			plan.Updates = append(plan.Updates, id)
		}
	}

	// Joined networks with no declaration at all are removed.
	for _, id := range joined {
		if _, ok := declared[id]; !ok {
			plan.Leaves = append(plan.Leaves, id)
		}
	}

	sort.Strings(plan.Leaves)
	sort.Strings(plan.Joins)
	sort.Strings(plan.Updates)

	return plan
}
