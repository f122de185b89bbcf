package reconcile

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/MyStarInYourSky/zthost/config"
	"github.com/MyStarInYourSky/zthost/sdk"
)

// desiredMember overlays a network declaration onto the member record
// fetched from the control plane and reports whether anything differs. The
// declared config keys win over fetched ones; fetched keys the declaration
// does not mention are preserved, since the control plane owns the schema.
//
// Name and description are only enforced when declared non-empty, so a
// declaration that omits them never blanks values set through the control
// plane UI. Hidden is always enforced: its declared default (false) is a
// real state, not an omission.
func desiredMember(current *sdk.Member, decl config.NetworkDeclaration) (*sdk.Member, bool, error) {
	desired := &sdk.Member{
		Name:        current.Name,
		Description: current.Description,
		Hidden:      current.Hidden,
		Config:      cloneConfig(current.Config),
	}

	changed := false

	declaredConfig, err := normalizeConfig(decl.Config)
	if err != nil {
		return nil, false, err
	}
	for key, value := range declaredConfig {
		if !reflect.DeepEqual(desired.Config[key], value) {
			if desired.Config == nil {
				desired.Config = make(map[string]interface{})
			}
			desired.Config[key] = value
			changed = true
		}
	}

	if decl.Name != "" && decl.Name != desired.Name {
		desired.Name = decl.Name
		changed = true
	}
	if decl.Description != "" && decl.Description != desired.Description {
		desired.Description = decl.Description
		changed = true
	}
	if decl.Hidden != desired.Hidden {
		desired.Hidden = decl.Hidden
		changed = true
	}

	return desired, changed, nil
}

// normalizeConfig round-trips a declared config mapping through JSON so its
// values compare equal to what the control plane returns: YAML integers
// become JSON numbers (float64), nested maps and lists take their JSON
// shapes. Without this every run would see a spurious diff and re-POST.
func normalizeConfig(config map[string]interface{}) (map[string]interface{}, error) {
	if len(config) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize member config: %w", err)
	}

	var normalized map[string]interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, fmt.Errorf("failed to normalize member config: %w", err)
	}

	return normalized, nil
}

// cloneConfig makes a shallow-safe copy of a member config mapping via JSON.
func cloneConfig(config map[string]interface{}) map[string]interface{} {
	if config == nil {
		return nil
	}
	clone, err := normalizeConfig(config)
	if err != nil {
		// Config came off the wire as JSON; re-encoding it cannot fail.
		return config
	}
	return clone
}
