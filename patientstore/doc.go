// Package patientstore persists per-patient longitudinal state in a
// single embedded bbolt file.
//
// Two buckets:
//
//	patients        mrn -> JSON Record
//	pending_alerts  mrn -> RFC3339 event time
//
// The pending_alerts bucket is the durable half of the at-least-once
// paging guarantee: the in-memory page queue is rebuilt from it at
// startup, so a crash between a positive prediction and a confirmed page
// cannot silently drop the alert.
//
// Invariants maintained here:
//
//   - MRN is unique (bucket key)
//   - the first stored inter-test interval is always 0
//   - Paged is monotone (never reverts to false)
//   - an out-of-order observation time is normalized to the current wall
//     clock rather than rejected, and the outcome is flagged
//
// Discharge is deliberately not a deletion: records survive so history is
// intact on readmission. Delete exists for administrative removal only.
package patientstore
