package pager

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andyfu-xl/SEML/metric"
)

// Metrics holds Prometheus metrics for the paging queue
type Metrics struct {
	pagesQueued prometheus.Counter
	pagesSent   prometheus.Counter
	pagesFailed prometheus.Counter
	queueDepth  prometheus.Gauge
}

// newMetrics creates and registers paging queue metrics.
// A nil registry disables metrics (nil input = nil feature pattern).
func newMetrics(registry metric.MetricsRegistrar) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		pagesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "pager",
			Name:      "pages_queued_total",
			Help:      "Alerts accepted into the paging queue",
		}),
		pagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "pager",
			Name:      "pages_sent_total",
			Help:      "Pages confirmed delivered",
		}),
		pagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "pager",
			Name:      "pages_failed_total",
			Help:      "Page delivery attempts that failed",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seml",
			Subsystem: "pager",
			Name:      "queue_depth",
			Help:      "Alerts currently awaiting delivery",
		}),
	}

	registry.RegisterCounter("pager", "pages_queued", m.pagesQueued)
	registry.RegisterCounter("pager", "pages_sent", m.pagesSent)
	registry.RegisterCounter("pager", "pages_failed", m.pagesFailed)
	registry.RegisterGauge("pager", "queue_depth", m.queueDepth)

	return m
}
