// Package engine runs the pipeline's single processing loop: receive a
// frame, parse it, apply it to the patient store, run inference, page on a
// positive prediction, acknowledge.
//
// The loop is deliberately single-threaded. Acknowledgments gate the
// source's retransmission behavior, so a message must be fully applied
// before its ACK goes out and before the next frame is read; concurrency
// here would reorder acknowledgments against mutations. Throughput is
// bounded by the upstream gateway, not this loop.
//
// Observability is a port: the Observer interface receives one callback
// per notable event, and the prometheus-backed implementation lives in
// metrics.go. Core packages below the engine do not log; the engine is
// the logging boundary for message handling.
package engine
