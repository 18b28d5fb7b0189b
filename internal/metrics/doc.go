// Package metrics defines the Prometheus metrics exported by the VideoLab
// server: HTTP request metrics recorded by the middleware, transcoder job
// metrics recorded by the invoker, upload metrics recorded by the handlers,
// and a scratch-directory gauge maintained by a periodic collector.
//
// Metrics are registered via promauto at package load; the /metrics
// endpoint is served on a separate listener when METRICS_ENABLED is set.
package metrics
