package sdk

// Member is a network member record as stored by the control plane.
//
// The config mapping is intentionally schemaless: its accepted keys
// (authorized, tags, capabilities, ipAssignments, ...) are defined by the
// control plane and may change between API versions, so declared values are
// passed through verbatim.
type Member struct {
	// ID is the control plane's composite record identifier.
	ID string `json:"id,omitempty"`

	// NetworkID is the 16-character network identifier.
	NetworkID string `json:"networkId,omitempty"`

	// NodeID is the 10-character address of the member node.
	NodeID string `json:"nodeId,omitempty"`

	// Name is the member's alias shown in the control plane UI.
	Name string `json:"name"`

	// Description is free-text, shown in the control plane UI.
	Description string `json:"description"`

	// Hidden controls whether the member is hidden in the control plane UI.
	Hidden bool `json:"hidden"`

	// Config holds the member's network configuration fields.
	Config map[string]interface{} `json:"config"`
}

// Network is the subset of a network record the client needs. Fetching it is
// also how an API key is validated for a network.
type Network struct {
	// ID is the 16-character network identifier.
	ID string `json:"id"`

	// Description is the network's free-text description.
	Description string `json:"description"`
}

// apiError is the error body returned by the control plane on failures.
type apiError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}
