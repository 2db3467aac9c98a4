// Package api exposes the task service over HTTP. Handlers translate
// requests into task operations for the caller's client id and map task
// errors onto status codes; streaming endpoints adapt WebSocket and
// Server-Sent Events connections to notification sinks.
package api
