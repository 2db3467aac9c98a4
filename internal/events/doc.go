// Package events carries task lifecycle changes from the execution supervisor
// to interested observers without coupling the two.
//
// The supervisor emits a TaskEvent whenever a task record is created or
// mutated; observers such as the live status hub register an EventHandler
// with the emitter and react to the change (for example by pushing a fresh
// snapshot to subscribers of the same client token).
package events
