// Package mllp implements the Minimal Lower Layer Protocol framing used to
// carry HL7 messages over TCP, and the client that owns the TCP session.
package mllp

import (
	"bytes"

	"github.com/andyfu-xl/SEML/errors"
)

// MLLP block delimiters
const (
	StartOfBlock   = 0x0b
	EndOfBlock     = 0x1c
	CarriageReturn = 0x0d
)

// Encode wraps segments into a single MLLP frame:
// 0x0B <segment> \r <segment> \r ... 0x1C 0x0D
func Encode(segments []string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(StartOfBlock)
	for _, segment := range segments {
		buf.WriteString(segment)
		buf.WriteByte(CarriageReturn)
	}
	buf.WriteByte(EndOfBlock)
	buf.WriteByte(CarriageReturn)
	return buf.Bytes()
}

// Decode strips the MLLP framing from a single complete frame and returns
// its segments in order, empty segments discarded. Decode is the exact
// inverse of Encode for well-formed input; a frame without the expected
// delimiters fails with ErrMalformedFrame.
func Decode(frame []byte) ([]string, error) {
	if len(frame) < 2 || frame[0] != StartOfBlock {
		return nil, errors.WrapInvalid(errors.ErrMalformedFrame,
			"Codec", "Decode", "missing start-of-block")
	}

	body := frame[1:]

	// The trailing carriage return after end-of-block is tolerated but not
	// required: some senders close the connection right after 0x1C.
	if n := len(body); n > 0 && body[n-1] == CarriageReturn {
		body = body[:n-1]
	}
	if n := len(body); n == 0 || body[n-1] != EndOfBlock {
		return nil, errors.WrapInvalid(errors.ErrMalformedFrame,
			"Codec", "Decode", "missing end-of-block")
	}
	body = body[:len(body)-1]

	raw := bytes.Split(body, []byte{CarriageReturn})
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if len(s) == 0 {
			continue
		}
		segments = append(segments, string(s))
	}

	if len(segments) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMalformedFrame,
			"Codec", "Decode", "empty frame body")
	}

	return segments, nil
}
