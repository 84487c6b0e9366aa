package mllp

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andyfu-xl/SEML/metric"
)

// Metrics holds Prometheus metrics for the MLLP client
type Metrics struct {
	connectionAttempts prometheus.Counter
	connectionFailures prometheus.Counter
	framesReceived     prometheus.Counter
	bytesReceived      prometheus.Counter
	readErrors         prometheus.Counter
	acksSent           prometheus.Counter
	naksSent           prometheus.Counter
	lastActivity       prometheus.Gauge
}

// newMetrics creates and registers MLLP client metrics.
// A nil registry disables metrics (nil input = nil feature pattern).
func newMetrics(registry metric.MetricsRegistrar) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		connectionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "connection_attempts_total",
			Help:      "Total MLLP connection attempts",
		}),
		connectionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "connection_failures_total",
			Help:      "Total failed MLLP connection attempts",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "frames_received_total",
			Help:      "Complete MLLP frames received",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "bytes_received_total",
			Help:      "Total bytes received from the MLLP source",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "read_errors_total",
			Help:      "Socket read errors encountered",
		}),
		acksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "acks_sent_total",
			Help:      "Accept acknowledgments sent",
		}),
		naksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "naks_sent_total",
			Help:      "Reject acknowledgments sent (retransmission requests)",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seml",
			Subsystem: "mllp",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of last received frame",
		}),
	}

	registry.RegisterCounter("mllp", "connection_attempts", m.connectionAttempts)
	registry.RegisterCounter("mllp", "connection_failures", m.connectionFailures)
	registry.RegisterCounter("mllp", "frames_received", m.framesReceived)
	registry.RegisterCounter("mllp", "bytes_received", m.bytesReceived)
	registry.RegisterCounter("mllp", "read_errors", m.readErrors)
	registry.RegisterCounter("mllp", "acks_sent", m.acksSent)
	registry.RegisterCounter("mllp", "naks_sent", m.naksSent)
	registry.RegisterGauge("mllp", "last_activity", m.lastActivity)

	return m
}
