// Package envelope implements the wire codec for the realtime event stream.
//
// Every frame is a JSON text message of the form:
//
//	{"type": "<routing key>", "data": {...}, "timestamp": ...}
//
// Inbound frames are decoded into an Envelope whose Type is the routing key.
// The payload stays raw until a consumer asks for a typed view. Outbound control
// and command frames (ping, subscribe_*, unsubscribe_*) are built with the
// constructors in this package.
//
// The protocol is open: unknown types decode fine and are routed generically.
package envelope
