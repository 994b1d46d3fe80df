// Package connection implements the realtime connection manager.
//
// The Manager:
//   - Dials one WebSocket connection and bounds each dial by ConnectTimeout
//   - Routes inbound envelopes to typed events on an events.Bus
//   - Runs a liveness.Monitor per open socket and drops stale connections
//   - Replays recorded channel subscriptions after every connect
//   - Reconnects after abnormal closures with linear backoff and a budget
//
// Client wraps a single gorilla/websocket connection with a read loop and a
// queued write loop.
package connection
