// Package control holds the runtime-tunable configuration, metrics, and
// debug introspection the sample programs build on: listen address,
// batch receive size, accept/connect/send/receive counters.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for config changes
//   - Metrics telemetry contracts
//   - State export, debug hooks, and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
