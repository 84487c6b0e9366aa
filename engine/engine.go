package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/andyfu-xl/SEML/errors"
	"github.com/andyfu-xl/SEML/feature"
	"github.com/andyfu-xl/SEML/hl7"
	"github.com/andyfu-xl/SEML/model"
	"github.com/andyfu-xl/SEML/pager"
	"github.com/andyfu-xl/SEML/patientstore"
)

// Source is the inbound message transport. Satisfied by *mllp.Client.
type Source interface {
	Connect(ctx context.Context) error
	Receive(ctx context.Context) ([]byte, error)
	Acknowledge(accept bool) error
	Close() error
}

// Config holds the engine's collaborators
type Config struct {
	Source    Source
	Store     *patientstore.Store
	Predictor model.Predictor
	Queue     *pager.Queue
	// Observer may be nil; events are then discarded
	Observer Observer
	Logger   *slog.Logger
	// Now may be nil; defaults to time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Source == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "source is required")
	}
	if c.Store == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "store is required")
	}
	if c.Predictor == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "predictor is required")
	}
	if c.Queue == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "queue is required")
	}
	if c.Logger == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "logger is required")
	}
	return nil
}

// Engine is the pipeline orchestrator
type Engine struct {
	source    Source
	store     *patientstore.Store
	predictor model.Predictor
	queue     *pager.Queue
	obs       Observer
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an engine from configuration
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		source:    cfg.Source,
		store:     cfg.Store,
		predictor: cfg.Predictor,
		queue:     cfg.Queue,
		obs:       obs,
		logger:    cfg.Logger.With("component", "engine"),
		now:       now,
	}, nil
}

// Run executes the processing loop until the source reports end of stream,
// the context is cancelled, or the connection is lost beyond recovery.
//
// Before the first frame is read, alerts whose delivery was never confirmed
// are reloaded from the store and queued: a crash between prediction and
// page cannot drop an alert. The in-flight message always completes, store
// mutation and acknowledgment included, before a cancellation takes effect.
func (e *Engine) Run(ctx context.Context) (err error) {
	e.obs.OnStarted()
	defer func() { e.obs.OnStopped(err != nil) }()

	if err := e.Reconcile(ctx); err != nil {
		return err
	}

	if err := e.source.Connect(ctx); err != nil {
		return errors.Wrap(err, "Engine", "Run", "connect to source")
	}

	for {
		frame, err := e.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				e.logger.Info("shutdown requested, stopping")
				return nil
			}
			return errors.Wrap(err, "Engine", "Run", "receive frame")
		}
		if frame == nil {
			e.obs.OnNullMessage()
			e.logger.Info("source closed the stream, stopping")
			return nil
		}

		e.handleFrame(ctx, frame)
		e.drain(ctx)

		select {
		case <-ctx.Done():
			e.logger.Info("shutdown requested, stopping")
			return nil
		default:
		}
	}
}

// Reconcile reloads unconfirmed alerts into the paging queue and attempts
// one drain. A failed drain is not an error: the entries stay queued and
// are retried as the loop runs.
func (e *Engine) Reconcile(ctx context.Context) error {
	pending, err := e.store.PendingAlerts()
	if err != nil {
		return errors.Wrap(err, "Engine", "Reconcile", "load pending alerts")
	}
	if len(pending) == 0 {
		return nil
	}

	e.logger.Info("reloading unconfirmed alerts", "count", len(pending))
	for _, alert := range pending {
		e.queue.Enqueue(alert)
		e.obs.OnPageQueued()
	}
	e.drain(ctx)
	return nil
}

// handleFrame parses and applies one frame, then acknowledges it. A frame
// that cannot be parsed or applied is negatively acknowledged so the
// source retransmits or discards per its own policy; the loop continues
// either way.
func (e *Engine) handleFrame(ctx context.Context, frame []byte) {
	started := time.Now()
	e.obs.OnMessageReceived()

	accepted := true
	msg, err := hl7.Parse(frame)
	if err != nil {
		e.obs.OnInvalidMessage()
		e.logger.Warn("message rejected", "error", err)
		accepted = false
	} else if err := e.apply(ctx, msg); err != nil {
		e.obs.OnInvalidMessage()
		e.logger.Warn("message could not be applied", "mrn", msg.MRN(), "error", err)
		accepted = false
	}

	e.acknowledge(accepted)
	e.obs.OnMessageHandled(accepted, time.Since(started))
}

// apply routes a parsed message to the store and, for lab results, through
// inference
func (e *Engine) apply(ctx context.Context, msg hl7.Message) error {
	switch m := msg.(type) {
	case hl7.Registration:
		e.logger.Debug("patient registered", "mrn", m.MRN())
		return e.store.Register(m.MRN(), m.Gender, m.DOB, m.Name)
	case hl7.Discharge:
		// Records are kept on discharge so history survives readmission.
		e.logger.Debug("patient discharged", "mrn", m.MRN())
		return nil
	case hl7.LabResult:
		return e.applyLabResult(ctx, m)
	default:
		return errors.WrapInvalid(errors.ErrUnknownMessageType, "Engine", "apply", "route message")
	}
}

func (e *Engine) applyLabResult(ctx context.Context, m hl7.LabResult) error {
	outcome, err := e.store.RecordResult(m.MRN(), m.ObservedAt, m.Value, e.now())
	if err != nil {
		return err
	}
	e.obs.OnLabResult(m.Value)
	if outcome.Normalized {
		e.obs.OnOutOfOrderResult()
		e.logger.Warn("out-of-order result normalized", "mrn", m.MRN(), "observed_at", m.ObservedAt)
	}

	rec, err := e.store.Get(m.MRN())
	if err != nil {
		return err
	}

	tensor, err := feature.Build(rec, e.now())
	if err != nil {
		return err
	}
	if tensor == nil {
		// Inference skipped: incomplete record or page already pending/sent.
		return nil
	}

	positive, err := e.predictor.Predict(tensor)
	if err != nil {
		return errors.Wrap(err, "Engine", "applyLabResult", "run inference")
	}
	e.obs.OnPrediction(positive)
	if !positive {
		return nil
	}

	e.logger.Info("positive prediction", "mrn", m.MRN(), "value", m.Value, "observed_at", m.ObservedAt)
	if err := e.store.MarkPendingAlert(m.MRN(), m.ObservedAt); err != nil {
		return err
	}
	e.queue.Enqueue(patientstore.PendingAlert{MRN: m.MRN(), EventTime: m.ObservedAt})
	e.obs.OnPageQueued()
	return nil
}

// drain attempts to deliver everything queued. Delivery failures are
// logged and metered but never stop the loop: the failed entry stays at
// the head of the queue and is retried on the next drain.
func (e *Engine) drain(ctx context.Context) {
	if e.queue.Len() == 0 {
		return
	}

	before := e.queue.Len()
	err := e.queue.Drain(ctx)
	for i := 0; i < before-e.queue.Len(); i++ {
		e.obs.OnPageSent()
	}
	if err != nil {
		e.obs.OnPageFailed()
		e.logger.Warn("page delivery failed", "queued", e.queue.Len(), "error", err)
	}
}

// acknowledge sends an ACK or NAK, logging delivery problems. A failed
// acknowledgment is not fatal: the connection manager will heal the
// session and the source retransmits anything unacknowledged.
func (e *Engine) acknowledge(accept bool) {
	if err := e.source.Acknowledge(accept); err != nil {
		e.logger.Warn("acknowledgment failed", "accept", accept, "error", err)
	}
}
