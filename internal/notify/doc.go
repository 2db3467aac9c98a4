// Package notify streams task record snapshots to live subscribers.
//
// A Hub re-reads the subscribed record on every poll tick and whenever a
// change event for the subscriber's client arrives, and forwards the
// snapshot only when it differs from the last one sent. Transports plug in
// through the Sink interface.
package notify
