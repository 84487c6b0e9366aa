// Package mllp provides the wire layer of the SEML pipeline: the MLLP
// framing codec and the TCP client that talks to the HL7 message source.
//
// # Framing
//
// MLLP wraps each HL7 message in a byte envelope:
//
//	0x0B <segment> \r <segment> \r ... 0x1C 0x0D
//
// Encode and Decode are pure inverses for well-formed input and perform
// no I/O. Malformed frames fail with errors.ErrMalformedFrame, which the
// orchestrator converts into a NAK.
//
// # Client
//
// Client owns the TCP session. Its contract:
//
//   - Connect retries with linear backoff (5s + 5s per attempt, capped at
//     120s by default) and never gives up silently; a bounded attempt
//     budget turns exhaustion into a fatal error.
//   - Receive accumulates bounded reads until the end-of-block marker,
//     surviving frames split at arbitrary byte offsets. A clean peer close
//     is (nil, nil), not an error. A broken read heals itself with one
//     reconnect-and-retry cycle.
//   - Acknowledge emits AA (accept) or AE (request retransmission) with
//     the current wall-clock timestamp in the MSH header.
//
// Connection loss never propagates past the client; framing corruption
// always does.
package mllp
