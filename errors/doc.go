// Package errors defines the SEML error taxonomy and helpers.
//
// Every error surfaced by the pipeline belongs to one of three classes:
//
//   - Transient: safe to retry (connection loss, page delivery failure)
//   - Invalid: bad input, NAK the message and continue (framing, parsing)
//   - Fatal: stop the process (bad config, duplicate seed MRN)
//
// Components wrap errors with context using the Wrap* helpers:
//
//	return errors.WrapInvalid(err, "Parser", "Parse", "MSH dispatch")
//
// The orchestrator classifies errors at its boundary to decide between
// NAK-and-continue, reconnect, and process exit. Sentinel values such as
// ErrUnknownPatient and ErrMalformedFrame are matched with errors.Is.
package errors
