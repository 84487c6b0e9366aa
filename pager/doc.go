// Package pager delivers AKI alerts to the hospital paging service over
// HTTP and owns the at-least-once delivery queue.
//
// The Client is a thin wrapper around the paging endpoint: one POST per
// page, no internal retries. Retry policy lives in the Queue, which
// delivers strictly in FIFO order and leaves a failed entry at the head
// so no later alert can overtake an undelivered earlier one. Confirmed
// deliveries are recorded in the patient store, which clears the durable
// pending-alert marker used for crash recovery.
package pager
