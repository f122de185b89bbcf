// Package models provides shared data structures for zthost.
//
// This package contains the core types passed between the reconciler, the
// CLI commands, the daemon loop, and the daemon's local status API. By
// keeping them in a separate package they can be imported by any component
// without creating circular dependencies.
//
// The models in this package represent:
//   - Actions: the individual steps of a reconciliation plan (join, leave,
//     member update)
//   - NetworkResult: the outcome of reconciling one ZeroTier network
//   - RunSummary: the outcome of a whole reconciliation run, as reported by
//     `zthost apply` and served by the daemon's /status endpoint
//
// All structs include JSON tags so run summaries can be served verbatim by
// the daemon's localhost API.
package models
