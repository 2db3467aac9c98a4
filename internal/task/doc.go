// Package task runs named units of background work on behalf of isolated
// clients and records their lifecycle.
//
// A Registry, built once at startup from task groups, maps names to handlers
// and optional argument schemas. The Supervisor validates a start request,
// allocates a Record in the caller's Session and hands the body to a worker
// pool; the body reports progress through its TaskContext and its return
// value (or error) becomes the record's terminal state. The QueryService
// reads records back. Every access to one client's records goes through that
// client's single exclusive region in the Store.
package task
