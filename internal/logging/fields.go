package logging

// Standard field names for consistent logging across the application.
const (
	// FieldRunID identifies one reconciliation run.
	FieldRunID = "run_id"

	// FieldNetworkID is the 16-character ZeroTier network identifier.
	FieldNetworkID = "network_id"

	// FieldNodeID is the local agent's 10-character node address.
	FieldNodeID = "node_id"

	// FieldPath is a filesystem path or URL path, depending on component.
	FieldPath = "path"
)
