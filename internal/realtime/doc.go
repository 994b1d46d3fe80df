// Package realtime is the entry point host applications use to receive live
// schedule, pipeline and system events.
//
// A Client is only available to interactive processes; server-side rendering
// and batch jobs get ErrUnsupportedRuntime from New instead of a client that
// would hold a socket open nobody reads. Provider builds one Client lazily and
// hands the same instance to every caller.
package realtime
