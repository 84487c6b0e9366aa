package hl7

import "time"

// Gender codes as consumed by the predictor's feature encoding
const (
	GenderMale   = 0
	GenderFemale = 1
)

// Supported message type codes (MSH-9)
const (
	TypeRegistration = "ADT^A01"
	TypeDischarge    = "ADT^A03"
	TypeLabResult    = "ORU^R01"
)

// Message is the closed union of inbound clinical events. Exactly three
// concrete types implement it: Registration, Discharge and LabResult.
// The unexported marker keeps the union closed so that a type switch over
// the three kinds is exhaustive.
type Message interface {
	// MRN returns the medical record number the event applies to
	MRN() string
	// Timestamp returns the raw MSH send time, used for ACK correlation
	Timestamp() string

	isMessage()
}

// Header carries the fields common to every message kind
type Header struct {
	// SendTime is the raw MSH-7 timestamp (YYYYMMDDHHMMSS)
	SendTime string
	// PatientMRN is the PID-3 medical record number
	PatientMRN string
}

// MRN returns the patient identifier
func (h Header) MRN() string { return h.PatientMRN }

// Timestamp returns the header send time
func (h Header) Timestamp() string { return h.SendTime }

func (Header) isMessage() {}

// Registration is an ADT^A01 admission event carrying demographics
type Registration struct {
	Header
	Name string
	// DOB is the date of birth reformatted to YYYY-MM-DD
	DOB    string
	Gender int
}

// Discharge is an ADT^A03 event. Patient records are kept on discharge so
// history survives readmission; the event only marks the stay as ended.
type Discharge struct {
	Header
}

// LabResult is an ORU^R01 creatinine result
type LabResult struct {
	Header
	// ObservedAt is the OBR-7 observation timestamp
	ObservedAt time.Time
	// Value is the creatinine level in umol/L
	Value float64
}
