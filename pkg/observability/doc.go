// Package observability provides structured logging, Prometheus metrics and
// optional OpenTelemetry wiring for the stash storage layer and its HTTP
// surface.
package observability
