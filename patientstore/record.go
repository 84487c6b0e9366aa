package patientstore

import "time"

// Demographics holds the registration fields for a patient. It is absent
// on a record until an admission message arrives; lab history can
// accumulate before that.
type Demographics struct {
	Name string `json:"name"`
	// DOB is the date of birth in YYYY-MM-DD form
	DOB string `json:"dob"`
	// Gender is 0 for male, 1 for female (the predictor's encoding)
	Gender int `json:"gender"`
}

// TestResult is one accepted creatinine result. IntervalDays is the time
// since the previous accepted result in days; the first result of a
// patient always carries interval 0.
type TestResult struct {
	IntervalDays float64 `json:"interval_days"`
	Value        float64 `json:"value"`
}

// Record is the durable longitudinal state for one MRN
type Record struct {
	MRN          string        `json:"mrn"`
	Demographics *Demographics `json:"demographics,omitempty"`
	TestHistory  []TestResult  `json:"test_history,omitempty"`
	// LastTestTime is the timestamp of the most recent accepted result;
	// zero until the first result arrives
	LastTestTime time.Time `json:"last_test_time"`
	// PendingAlert is set when a positive prediction has occurred but page
	// delivery has not been confirmed; cleared only by ConfirmPaged
	PendingAlert *time.Time `json:"pending_alert,omitempty"`
	// Paged is true once the patient has ever been successfully paged.
	// It is monotone: it never reverts to false.
	Paged bool `json:"paged"`
}

// ResultOutcome reports how RecordResult applied a lab result
type ResultOutcome struct {
	// IntervalDays is the stored inter-test interval for this result
	IntervalDays float64
	// Normalized is true when the incoming observation time preceded the
	// stored last test time and was replaced by the current wall clock
	Normalized bool
}

// PendingAlert is one (patient, event time) pair awaiting page delivery
type PendingAlert struct {
	MRN       string
	EventTime time.Time
}
