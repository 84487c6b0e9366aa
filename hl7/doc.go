// Package hl7 models the three clinical message shapes this system
// consumes and parses them out of decoded MLLP frames.
//
// This is deliberately not a general HL7 conformance library. The inbound
// feed sends exactly three message types:
//
//	ADT^A01  patient admission (demographics)
//	ADT^A03  patient discharge
//	ORU^R01  creatinine lab result
//
// Message is a closed union over the three kinds; the parser dispatches
// exhaustively on the MSH-9 type code, so an unknown code is a
// representable, testable error value rather than a fallthrough branch.
package hl7
