// Package frame implements the wire-level framing used by every minidsp
// transport: a one-byte length prefix, a payload, and a one-byte checksum.
//
// Frame layout:
//
//	LEN | PAYLOAD | CRC8
//
// LEN counts the whole frame including itself and CRC8. CRC8 is a modular
// 8-bit sum of every preceding byte in the frame, not a polynomial CRC -
// this was empirically inferred from device captures (see DESIGN.md) and is
// preserved as-is even though the name undersells it.
package frame

import "github.com/minidsp/minidsp-go/minidsperr"

const (
	// MaxPayloadLen is the largest payload a single frame can carry.
	// LEN is one byte wide and must also account for itself and CRC8.
	MaxPayloadLen = 253

	// HIDReportSize is the fixed USB-HID report size these devices use.
	HIDReportSize = 64

	// HIDReportID is the report-id byte prepended on HID writes.
	HIDReportID = 0x00

	// hidPad is the filler byte appended after a short frame in an HID
	// report.
	hidPad = 0xFF
)

// Checksum returns the modular 8-bit sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Encode builds a complete frame from a payload: LEN, the payload itself,
// then CRC8 over LEN+payload. payload must be 1..MaxPayloadLen bytes.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > MaxPayloadLen {
		return nil, &minidsperr.FrameError{Reason: "payload length out of range"}
	}

	total := len(payload) + 2
	out := make([]byte, 0, total)
	out = append(out, byte(total))
	out = append(out, payload...)
	out = append(out, Checksum(out))
	return out, nil
}

// Decode validates and strips a complete frame, returning its payload.
// It fails with a *minidsperr.FrameError (wrapping ErrFrameCorrupt) on any
// length or checksum mismatch.
func Decode(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, &minidsperr.FrameError{Reason: "empty frame"}
	}

	length := int(raw[0])
	if length < 2 || length > len(raw) {
		return nil, &minidsperr.FrameError{Reason: "length byte out of range", Offset: 0}
	}

	frameBytes := raw[:length]
	want := frameBytes[length-1]
	got := Checksum(frameBytes[:length-1])
	if want != got {
		return nil, &minidsperr.FrameError{Reason: "checksum mismatch", Offset: length - 1}
	}

	return frameBytes[1 : length-1], nil
}

// PadHID pads an already-encoded frame out to HIDReportSize with trailing
// 0xFF bytes and prepends the HID report-id byte, ready to hand to a raw
// HID write call. frame must already fit within HIDReportSize-1 bytes.
func PadHID(encoded []byte) ([]byte, error) {
	if len(encoded) > HIDReportSize-1 {
		return nil, &minidsperr.FrameError{Reason: "frame too large for HID report"}
	}

	report := make([]byte, HIDReportSize+1)
	report[0] = HIDReportID
	copy(report[1:], encoded)
	for i := 1 + len(encoded); i < len(report); i++ {
		report[i] = hidPad
	}
	return report, nil
}

// UnpadHID strips the leading report-id byte (if present, callers that read
// raw from the OS HID layer already have it stripped) and trailing 0xFF
// padding from a 64-byte HID report, returning the embedded frame bytes
// (still including its own LEN/CRC8, ready for Decode). When the frame's
// LEN byte fits the report it bounds the result, so a CRC8 of 0xFF is kept;
// otherwise trailing 0xFF bytes are stripped.
func UnpadHID(report []byte) []byte {
	start := 0
	if len(report) == HIDReportSize+1 && report[0] == HIDReportID {
		start = 1
	}
	end := len(report)
	if start < end {
		if n := int(report[start]); n >= 2 && start+n <= end {
			return report[start : start+n]
		}
	}
	for end > start && report[end-1] == hidPad {
		end--
	}
	return report[start:end]
}
