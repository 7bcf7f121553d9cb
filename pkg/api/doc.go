// Package api exposes the aggregated state store over HTTP for inspection
// and administration.
//
// # Endpoints
//
// State access:
//
//	GET    /v1/namespaces                  list namespace ids
//	GET    /v1/state/{namespace}           full record for a namespace
//	GET    /v1/state/{namespace}/{key}     one stored value
//	PUT    /v1/state/{namespace}/{key}     upsert a value (raw JSON body)
//	DELETE /v1/state/{namespace}/{key}     remove a value
//
// Operations:
//
//	POST   /v1/flush                       force a synchronous save
//	GET    /healthz                        liveness probe
//	GET    /metrics                        Prometheus metrics (when enabled)
//
// Requests are tagged with X-Request-ID, logged via logrus, instrumented
// with Prometheus and traced with otelhttp.
package api
