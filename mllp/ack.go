package mllp

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HL7 acknowledgment codes carried in MSA-1
const (
	ackAccept = "AA"
	ackError  = "AE"
)

const hl7Version = "2.5"

// BuildAck constructs the two segments of an HL7 acknowledgment message.
// accept selects between application-accept (AA) and application-error (AE);
// AE asks the source to retransmit. The MSH header carries the wall-clock
// send time and a fresh control ID.
func BuildAck(accept bool, now time.Time) []string {
	code := ackAccept
	if !accept {
		code = ackError
	}
	return []string{
		fmt.Sprintf("MSH|^~\\&|||||%s||ACK|%s||%s",
			now.Format("20060102150405"), uuid.NewString(), hl7Version),
		"MSA|" + code,
	}
}
