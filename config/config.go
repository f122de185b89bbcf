// Package config loads and validates the zthost declaration file: the
// desired set of ZeroTier network memberships, the optional local agent
// configuration mapping, and the optional agent package version pin.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MyStarInYourSky/zthost/models"
)

// Declaration file locations.
const (
	// ProductionConfigPath is the default declaration location for
	// production deployments.
	ProductionConfigPath = "/etc/zthost/config.yml"

	// DevelopmentConfigPath is the optional declaration location for
	// development and testing.
	DevelopmentConfigPath = "./zthost.yml"
)

// networkIDRegex matches ZeroTier network identifiers (16 hex chars).
var networkIDRegex = regexp.MustCompile(`^[0-9a-f]{16}$`)

// Declaration is the complete desired state for one host.
type Declaration struct {
	// Version optionally pins the zerotier-one package version. Empty
	// means the installed version is left alone.
	Version string `yaml:"version"`

	// APIURL optionally overrides the control plane base URL, for
	// self-hosted controllers. Empty means ZeroTier Central.
	APIURL string `yaml:"api_url"`

	// Networks maps network IDs to their declared membership state.
	Networks map[string]NetworkDeclaration `yaml:"networks"`

	// LocalConfig is the optional nested mapping serialized to the agent's
	// local.conf. Nil (absent) means the file is left untouched.
	LocalConfig map[string]interface{} `yaml:"localconfig"`
}

// NetworkDeclaration is the desired membership state for one network.
type NetworkDeclaration struct {
	// APIKey is the control plane bearer token used for this network's
	// member calls. Required for enabled networks.
	APIKey string `yaml:"apikey"`

	// Name is the member alias to set on the control plane.
	Name string `yaml:"name"`

	// Description is the member description to set on the control plane.
	Description string `yaml:"description"`

	// Hidden marks the member as hidden in the control plane UI.
	Hidden bool `yaml:"hidden"`

	// Enabled declares whether the host should be a member. Absent means
	// true; false means the host must leave the network.
	Enabled *bool `yaml:"enabled"`

	// Config is the member configuration mapping posted verbatim to the
	// control plane. Allowed keys (authorized, tags, capabilities, ...)
	// are defined by the control plane schema; no validation happens here.
	Config map[string]interface{} `yaml:"config"`
}

// IsEnabled reports the declared membership state, defaulting to true when
// the declaration does not say otherwise.
func (n NetworkDeclaration) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// Load loads the declaration from disk. It checks for a development file
// first, then falls back to the production path.
func Load() (*Declaration, error) {
	if _, err := os.Stat(DevelopmentConfigPath); err == nil {
		return LoadFromPath(DevelopmentConfigPath)
	}
	return LoadFromPath(ProductionConfigPath)
}

// LoadFromPath loads and validates a declaration from a specific file.
func LoadFromPath(path string) (*Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file: %w", err)
	}

	var decl Declaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("failed to parse declaration YAML: %w", err)
	}

	if err := decl.Validate(); err != nil {
		return nil, fmt.Errorf("declaration validation failed: %w", err)
	}

	return &decl, nil
}

// Validate checks that the declaration is internally consistent.
func (d *Declaration) Validate() error {
	if d.APIURL != "" {
		url := strings.TrimSpace(d.APIURL)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("api_url must start with http:// or https://: %s", d.APIURL)
		}
	}

	for id, network := range d.Networks {
		if err := network.Validate(id); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks a single network declaration against its map key.
func (n NetworkDeclaration) Validate(networkID string) error {
	if !networkIDRegex.MatchString(networkID) {
		return fmt.Errorf("%w: %q (want 16 lowercase hex characters)", models.ErrInvalidNetworkID, networkID)
	}

	// Leaving a network happens through zerotier-cli and needs no API key;
	// managing an enabled membership does.
	if n.IsEnabled() && strings.TrimSpace(n.APIKey) == "" {
		return fmt.Errorf("%w: network %s", models.ErrMissingAPIKey, networkID)
	}

	return nil
}

// EnabledNetworks returns the IDs of networks declared as enabled, i.e. the
// set the host must converge to being a member of.
func (d *Declaration) EnabledNetworks() []string {
	var ids []string
	for id, network := range d.Networks {
		if network.IsEnabled() {
			ids = append(ids, id)
		}
	}
	return ids
}
