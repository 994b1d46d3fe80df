// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket connection state, connects and disconnects by close code
//   - Reconnect attempts and budget exhaustion
//   - Inbound frames by type, malformed and dropped frames
//   - Listener panics by event kind
//   - Journal rows written and failed batches
//
// All methods on a nil *Metrics are no-ops, so components can be built
// without instrumentation.
package metrics
