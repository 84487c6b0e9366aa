// Package retry implements the two backoff policies used by the pipeline:
// linear backoff (fixed increment, capped) for MLLP reconnection, and
// geometric backoff for outbound delivery retries. A MaxAttempts of zero
// retries without bound; wrap an error with NonRetryable to abort early.
package retry
