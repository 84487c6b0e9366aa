// Package metric provides Prometheus-based metrics collection and the HTTP
// server that exposes them.
//
// A MetricsRegistry manages both core pipeline metrics (service status,
// message throughput, processing durations, errors) and component-specific
// metrics registered through the MetricsRegistrar interface. The Server
// exposes everything in Prometheus format at /metrics alongside a /health
// endpoint.
//
// Components take a MetricsRegistrar at construction and register their
// own metrics under a "service.metric" key; a nil registrar disables
// metrics entirely, which keeps tests quiet. Core metrics use the "seml"
// namespace and are driven by the engine's observer.
package metric
