package engine

import "time"

// Observer receives one callback per notable pipeline event. The engine
// drives it synchronously from the processing loop, so implementations
// must be cheap and must not block.
type Observer interface {
	// OnStarted fires once when the processing loop begins
	OnStarted()
	// OnStopped fires once when the loop exits; failed reports an
	// abnormal exit
	OnStopped(failed bool)
	// OnMessageReceived fires for every complete frame read from the source
	OnMessageReceived()
	// OnNullMessage fires when the source reports a clean end of stream
	OnNullMessage()
	// OnInvalidMessage fires when a frame is rejected (parse failure or
	// a message that cannot be applied)
	OnInvalidMessage()
	// OnMessageHandled fires after a frame has been acknowledged, with
	// the outcome and the wall-clock handling time
	OnMessageHandled(accepted bool, elapsed time.Duration)
	// OnLabResult fires for every accepted creatinine result
	OnLabResult(value float64)
	// OnOutOfOrderResult fires when a result's observation time had to be
	// normalized because it preceded the stored last test time
	OnOutOfOrderResult()
	// OnPrediction fires after each inference run
	OnPrediction(positive bool)
	// OnPageQueued fires when an alert enters the paging queue
	OnPageQueued()
	// OnPageSent fires per confirmed page delivery
	OnPageSent()
	// OnPageFailed fires when a drain attempt stops on a delivery failure
	OnPageFailed()
}

// NopObserver discards every event. Used when no metrics registry is
// configured and as an embedding base for partial test observers.
type NopObserver struct{}

// OnStarted implements Observer
func (NopObserver) OnStarted() {}

// OnStopped implements Observer
func (NopObserver) OnStopped(bool) {}

// OnMessageReceived implements Observer
func (NopObserver) OnMessageReceived() {}

// OnNullMessage implements Observer
func (NopObserver) OnNullMessage() {}

// OnInvalidMessage implements Observer
func (NopObserver) OnInvalidMessage() {}

// OnMessageHandled implements Observer
func (NopObserver) OnMessageHandled(bool, time.Duration) {}

// OnLabResult implements Observer
func (NopObserver) OnLabResult(float64) {}

// OnOutOfOrderResult implements Observer
func (NopObserver) OnOutOfOrderResult() {}

// OnPrediction implements Observer
func (NopObserver) OnPrediction(bool) {}

// OnPageQueued implements Observer
func (NopObserver) OnPageQueued() {}

// OnPageSent implements Observer
func (NopObserver) OnPageSent() {}

// OnPageFailed implements Observer
func (NopObserver) OnPageFailed() {}
