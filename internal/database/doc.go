// Package database provides the PostgreSQL connection pool used by the event
// journal.
//
// The journal is optional; nothing in the realtime client depends on a
// database being reachable unless journal.enabled is set.
package database
