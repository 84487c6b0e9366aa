package pager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/andyfu-xl/SEML/errors"
	"github.com/andyfu-xl/SEML/metric"
	"github.com/andyfu-xl/SEML/patientstore"
)

// Notifier delivers a single page. Satisfied by *Client; tests substitute
// fakes to exercise failure ordering.
type Notifier interface {
	Page(ctx context.Context, mrn string, eventTime time.Time) error
}

// ConfirmStore records confirmed deliveries. Satisfied by
// *patientstore.Store.
type ConfirmStore interface {
	ConfirmPaged(mrn string) error
}

// Queue is the at-least-once alert delivery queue. Delivery is strictly
// FIFO: a failed entry stays at the head and blocks everything behind it
// until it goes through, so alerts can never be delivered out of order.
//
// The queue itself is in memory only. Durability comes from the pending
// alert markers in the patient store: every queued alert has a marker,
// markers are cleared only on confirmed delivery, and startup
// reconciliation re-enqueues surviving markers after a crash.
type Queue struct {
	notifier Notifier
	store    ConfirmStore
	logger   *slog.Logger
	metrics  *Metrics

	mu      sync.Mutex
	entries []patientstore.PendingAlert
}

// NewQueue creates an empty paging queue
func NewQueue(notifier Notifier, store ConfirmStore, logger *slog.Logger, registry metric.MetricsRegistrar) *Queue {
	return &Queue{
		notifier: notifier,
		store:    store,
		logger:   logger.With("component", "pagerqueue"),
		metrics:  newMetrics(registry),
	}
}

// Enqueue appends an alert to the tail of the queue. An alert for an MRN
// already queued is dropped: its pending marker is shared, so delivering
// the queued entry covers both.
func (q *Queue) Enqueue(alert patientstore.PendingAlert) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.MRN == alert.MRN {
			return
		}
	}
	q.entries = append(q.entries, alert)
	q.logger.Debug("alert queued", "mrn", alert.MRN, "depth", len(q.entries))

	if q.metrics != nil {
		q.metrics.pagesQueued.Inc()
		q.metrics.queueDepth.Set(float64(len(q.entries)))
	}
}

// Len returns the number of alerts awaiting delivery
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain attempts to deliver every queued alert in order. On the first
// failure the entry stays at the head and Drain returns the error; the
// caller retries on the next drain. A successful delivery is confirmed in
// the store before the next entry is attempted, so a crash mid-drain
// re-pages at most the in-flight alert.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.mu.Unlock()
			return nil
		}
		head := q.entries[0]
		q.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return errors.WrapTransient(err, "Queue", "Drain", "check cancellation")
		}

		if err := q.notifier.Page(ctx, head.MRN, head.EventTime); err != nil {
			if q.metrics != nil {
				q.metrics.pagesFailed.Inc()
			}
			q.logger.Warn("page delivery failed, alert retained at head",
				"mrn", head.MRN, "error", err)
			return err
		}

		if err := q.store.ConfirmPaged(head.MRN); err != nil {
			// The page went out but the marker survives; reconciliation may
			// re-page this patient, which at-least-once delivery permits.
			q.pop()
			return errors.Wrap(err, "Queue", "Drain", "confirm delivery")
		}

		q.pop()
		if q.metrics != nil {
			q.metrics.pagesSent.Inc()
		}
		q.logger.Info("page delivered", "mrn", head.MRN, "event_time", head.EventTime)
	}
}

func (q *Queue) pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = q.entries[1:]
	if q.metrics != nil {
		q.metrics.queueDepth.Set(float64(len(q.entries)))
	}
}
