package models

import "errors"

// Common error types used throughout zthost. These provide semantic meaning
// and enable consistent error handling across the agent, reconciler, and CLI
// layers.

var (
	// ErrAgentNotInstalled indicates zerotier-one is not present on the host
	// (zerotier-cli could not be located in PATH).
	ErrAgentNotInstalled = errors.New("zerotier-one is not installed")

	// ErrIdentityNotFound indicates the agent's public identity file does
	// not exist or could not be parsed. The agent usually creates it on
	// first start.
	ErrIdentityNotFound = errors.New("zerotier identity not found")

	// ErrInvalidNetworkID indicates a network identifier is not a
	// 16-character lowercase hex string.
	ErrInvalidNetworkID = errors.New("invalid zerotier network id")

	// ErrMissingAPIKey indicates a declared network has no API key for
	// control plane calls.
	ErrMissingAPIKey = errors.New("network declaration is missing an api key")

	// ErrNoPackageManager indicates no supported package manager was found
	// when installing or pinning the agent package.
	ErrNoPackageManager = errors.New("no supported package manager found")

	// ErrDaemonUnreachable indicates the local daemon status API did not
	// respond. The daemon is either not running or bound to another address.
	ErrDaemonUnreachable = errors.New("zthost daemon is not reachable")
)
