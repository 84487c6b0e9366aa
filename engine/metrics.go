package engine

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andyfu-xl/SEML/metric"
)

// serviceName labels the engine's series in the core pipeline metrics
const serviceName = "engine"

// MetricsObserver is the prometheus-backed Observer. Besides plain
// counters it maintains two derived gauges the ward dashboards watch: the
// running mean of received creatinine values and the positive prediction
// rate. It also drives the registry's core pipeline metrics (service
// status, message throughput, processing duration, errors, health).
type MetricsObserver struct {
	core *metric.Metrics

	messagesReceived   prometheus.Counter
	nullMessages       prometheus.Counter
	invalidMessages    prometheus.Counter
	labResults         prometheus.Counter
	outOfOrderResults  prometheus.Counter
	positivePreds      prometheus.Counter
	pagesQueued        prometheus.Counter
	pagesSent          prometheus.Counter
	pageFailures       prometheus.Counter
	creatinineMean     prometheus.Gauge
	positivePredRate   prometheus.Gauge

	mu          sync.Mutex
	valueSum    float64
	valueCount  int64
	predictions int64
	positives   int64
}

// NewMetricsObserver creates and registers the pipeline observer metrics.
// A nil registry yields a nil observer; callers fall back to NopObserver.
func NewMetricsObserver(registry metric.MetricsRegistrar) *MetricsObserver {
	if registry == nil {
		return nil
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seml",
			Subsystem: "engine",
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seml",
			Subsystem: "engine",
			Name:      name,
			Help:      help,
		})
	}

	m := &MetricsObserver{
		core:              registry.CoreMetrics(),
		messagesReceived:  counter("messages_received_total", "Complete frames received from the source"),
		nullMessages:      counter("null_messages_total", "Clean end-of-stream signals received"),
		invalidMessages:   counter("invalid_messages_total", "Frames rejected and negatively acknowledged"),
		labResults:        counter("lab_results_received_total", "Creatinine results accepted into patient history"),
		outOfOrderResults: counter("out_of_order_results_total", "Results whose observation time was normalized"),
		positivePreds:     counter("positive_predictions_total", "Inference runs that flagged AKI risk"),
		pagesQueued:       counter("pages_queued_total", "Alerts accepted into the paging queue"),
		pagesSent:         counter("pages_sent_total", "Pages confirmed delivered"),
		pageFailures:      counter("page_failures_total", "Drain attempts stopped by a delivery failure"),
		creatinineMean:    gauge("creatinine_value_mean", "Running mean of received creatinine values (umol/L)"),
		positivePredRate:  gauge("positive_prediction_rate", "Fraction of inference runs that were positive"),
	}

	registry.RegisterCounter("engine", "messages_received", m.messagesReceived)
	registry.RegisterCounter("engine", "null_messages", m.nullMessages)
	registry.RegisterCounter("engine", "invalid_messages", m.invalidMessages)
	registry.RegisterCounter("engine", "lab_results_received", m.labResults)
	registry.RegisterCounter("engine", "out_of_order_results", m.outOfOrderResults)
	registry.RegisterCounter("engine", "positive_predictions", m.positivePreds)
	registry.RegisterCounter("engine", "pages_queued", m.pagesQueued)
	registry.RegisterCounter("engine", "pages_sent", m.pagesSent)
	registry.RegisterCounter("engine", "page_failures", m.pageFailures)
	registry.RegisterGauge("engine", "creatinine_value_mean", m.creatinineMean)
	registry.RegisterGauge("engine", "positive_prediction_rate", m.positivePredRate)

	return m
}

// OnStarted implements Observer
func (m *MetricsObserver) OnStarted() {
	m.core.RecordServiceStatus(serviceName, metric.StatusRunning)
	m.core.RecordHealthStatus(serviceName, true)
}

// OnStopped implements Observer
func (m *MetricsObserver) OnStopped(failed bool) {
	status := metric.StatusStopped
	if failed {
		status = metric.StatusFailed
	}
	m.core.RecordServiceStatus(serviceName, status)
	m.core.RecordHealthStatus(serviceName, false)
}

// OnMessageReceived implements Observer
func (m *MetricsObserver) OnMessageReceived() {
	m.messagesReceived.Inc()
	m.core.RecordMessageReceived(serviceName, "hl7")
}

// OnNullMessage implements Observer
func (m *MetricsObserver) OnNullMessage() { m.nullMessages.Inc() }

// OnInvalidMessage implements Observer
func (m *MetricsObserver) OnInvalidMessage() {
	m.invalidMessages.Inc()
	m.core.RecordError(serviceName, "invalid_message")
}

// OnMessageHandled implements Observer
func (m *MetricsObserver) OnMessageHandled(accepted bool, elapsed time.Duration) {
	status := "accepted"
	if !accepted {
		status = "rejected"
	}
	m.core.RecordMessageProcessed(serviceName, "hl7", status)
	m.core.RecordProcessingDuration(serviceName, "handle_frame", elapsed)
}

// OnLabResult implements Observer
func (m *MetricsObserver) OnLabResult(value float64) {
	m.labResults.Inc()

	m.mu.Lock()
	m.valueSum += value
	m.valueCount++
	mean := m.valueSum / float64(m.valueCount)
	m.mu.Unlock()

	m.creatinineMean.Set(mean)
}

// OnOutOfOrderResult implements Observer
func (m *MetricsObserver) OnOutOfOrderResult() { m.outOfOrderResults.Inc() }

// OnPrediction implements Observer
func (m *MetricsObserver) OnPrediction(positive bool) {
	m.mu.Lock()
	m.predictions++
	if positive {
		m.positives++
	}
	rate := float64(m.positives) / float64(m.predictions)
	m.mu.Unlock()

	if positive {
		m.positivePreds.Inc()
	}
	m.positivePredRate.Set(rate)
}

// OnPageQueued implements Observer
func (m *MetricsObserver) OnPageQueued() { m.pagesQueued.Inc() }

// OnPageSent implements Observer
func (m *MetricsObserver) OnPageSent() { m.pagesSent.Inc() }

// OnPageFailed implements Observer
func (m *MetricsObserver) OnPageFailed() {
	m.pageFailures.Inc()
	m.core.RecordError(serviceName, "page_delivery")
}
