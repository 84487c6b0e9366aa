package hl7

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andyfu-xl/SEML/errors"
	"github.com/andyfu-xl/SEML/mllp"
)

// HL7 timestamp layouts on the wire and in the patient record
const (
	wireDateLayout     = "20060102"
	wireDateTimeLayout = "20060102150405"
	dateLayout         = "2006-01-02"
)

// supportedObservation is the only OBX observation type accepted
const supportedObservation = "CREATININE"

// Parse decodes an MLLP frame and returns the typed clinical event it
// carries. Every failure is a value, never a panic: framing problems
// surface as ErrMalformedFrame, unsupported MSH-9 codes as
// ErrUnknownMessageType, and field-level problems as ErrMissingField,
// ErrInvalidGender or ErrUnsupportedObservation. The orchestrator turns
// any of these into a NAK and keeps the loop running.
func Parse(frame []byte) (Message, error) {
	segments, err := mllp.Decode(frame)
	if err != nil {
		return nil, err
	}

	msh := strings.Split(segments[0], "|")
	msgType := field(msh, 8)
	if msgType == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingField,
			"Parser", "Parse", "MSH message type")
	}

	switch msgType {
	case TypeRegistration:
		return parseRegistration(msh, segments)
	case TypeDischarge:
		return parseDischarge(msh, segments)
	case TypeLabResult:
		return parseLabResult(msh, segments)
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownMessageType, msgType),
			"Parser", "Parse", "MSH dispatch")
	}
}

// parseRegistration extracts an ADT^A01 admission.
// Mandatory fields: MSH-7 timestamp, PID-3 MRN, PID-5 name, PID-7 DOB,
// PID-8 gender (binary M/F on this feed).
func parseRegistration(msh, segments []string) (Message, error) {
	pid, err := segmentFields(segments, 1, "PID")
	if err != nil {
		return nil, err
	}

	reg := Registration{
		Header: Header{
			SendTime:   field(msh, 6),
			PatientMRN: field(pid, 3),
		},
		Name: field(pid, 5),
	}

	dob := field(pid, 7)
	gender := field(pid, 8)
	if reg.SendTime == "" || reg.PatientMRN == "" || reg.Name == "" || dob == "" || gender == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingField,
			"Parser", "parseRegistration", "mandatory field check")
	}

	born, err := time.Parse(wireDateLayout, dob)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Parser", "parseRegistration", "PID date of birth")
	}
	reg.DOB = born.Format(dateLayout)

	switch gender {
	case "M":
		reg.Gender = GenderMale
	case "F":
		reg.Gender = GenderFemale
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrInvalidGender, gender),
			"Parser", "parseRegistration", "PID gender")
	}

	return reg, nil
}

// parseDischarge extracts an ADT^A03 discharge.
// Mandatory fields: MSH-7 timestamp and PID-3 MRN.
func parseDischarge(msh, segments []string) (Message, error) {
	pid, err := segmentFields(segments, 1, "PID")
	if err != nil {
		return nil, err
	}

	dis := Discharge{
		Header: Header{
			SendTime:   field(msh, 6),
			PatientMRN: field(pid, 3),
		},
	}
	if dis.SendTime == "" || dis.PatientMRN == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingField,
			"Parser", "parseDischarge", "mandatory field check")
	}
	return dis, nil
}

// parseLabResult extracts an ORU^R01 creatinine result.
// Mandatory fields: MSH-7 timestamp, PID-3 MRN, OBR-7 observation time,
// OBX-3 observation type (must be CREATININE), OBX-5 value.
func parseLabResult(msh, segments []string) (Message, error) {
	pid, err := segmentFields(segments, 1, "PID")
	if err != nil {
		return nil, err
	}
	obr, err := segmentFields(segments, 2, "OBR")
	if err != nil {
		return nil, err
	}
	obx, err := segmentFields(segments, 3, "OBX")
	if err != nil {
		return nil, err
	}

	result := LabResult{
		Header: Header{
			SendTime:   field(msh, 6),
			PatientMRN: field(pid, 3),
		},
	}

	observedAt := field(obr, 7)
	obsType := field(obx, 3)
	rawValue := field(obx, 5)
	if result.SendTime == "" || result.PatientMRN == "" || observedAt == "" ||
		obsType == "" || rawValue == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingField,
			"Parser", "parseLabResult", "mandatory field check")
	}

	if obsType != supportedObservation {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnsupportedObservation, obsType),
			"Parser", "parseLabResult", "OBX observation type")
	}

	observed, err := time.Parse(wireDateTimeLayout, observedAt)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Parser", "parseLabResult", "OBR timestamp")
	}
	result.ObservedAt = observed

	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Parser", "parseLabResult", "OBX value")
	}
	result.Value = value

	return result, nil
}

// segmentFields returns the pipe-split fields of the idx-th segment,
// verifying the segment exists and carries the expected name.
func segmentFields(segments []string, idx int, name string) ([]string, error) {
	if idx >= len(segments) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s segment", errors.ErrMissingField, name),
			"Parser", "segmentFields", "segment count check")
	}
	fields := strings.Split(segments[idx], "|")
	if fields[0] != name {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: expected %s segment, found %q", errors.ErrMissingField, name, fields[0]),
			"Parser", "segmentFields", "segment name check")
	}
	return fields, nil
}

// field returns the i-th pipe-delimited field, or "" when absent
func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
