// Package events implements the typed event bus that fans connection and
// domain events out to the rest of the application.
//
// Events form a closed union over the Event interface; each concrete type
// reports its Kind. Listeners are registered per kind and stored as sets keyed
// by listener identity, so registering the same *Listener twice is a no-op.
//
// Delivery is synchronous on the publishing goroutine. A listener that panics
// is recovered and logged; the remaining listeners still run.
package events
