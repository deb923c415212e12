// Package minidsperr collects the closed set of errors that can cross a
// session/multiplexer/codec boundary. Producers return either a sentinel
// itself or one of the typed errors below, whose Unwrap yields the
// sentinel, so callers can both errors.Is against the sentinel and
// errors.As to the specific context (reason, symbol path, value, probed id).
package minidsperr

import "errors"

var (
	// ErrTransportClosed means the underlying channel closed; the owning
	// session is no longer usable and must be reopened.
	ErrTransportClosed = errors.New("minidsp: transport closed")

	// ErrFrameCorrupt means a frame failed CRC or length validation. The
	// reader resynchronizes and only the affected request fails.
	ErrFrameCorrupt = errors.New("minidsp: frame corrupt")

	// ErrTimeout means no response arrived within the command's budget.
	ErrTimeout = errors.New("minidsp: timeout")

	// ErrBusy means the multiplexer's pending queue is full.
	ErrBusy = errors.New("minidsp: busy")

	// ErrEncodingRange means a logical value fell outside a non-saturating
	// encoding's domain.
	ErrEncodingRange = errors.New("minidsp: value out of encoding range")

	// ErrUnknownSymbol means a symbolic path was not declared by the
	// resolved descriptor. This is a programmer error, not a device error.
	ErrUnknownSymbol = errors.New("minidsp: unknown symbol")

	// ErrUnsupportedFirmware means the probed dsp_version fell outside the
	// descriptor's declared range and force_kind was not set.
	ErrUnsupportedFirmware = errors.New("minidsp: unsupported firmware")

	// ErrDeviceNack means the device echoed the opcode but its payload
	// indicated rejection. The session never retries this automatically.
	ErrDeviceNack = errors.New("minidsp: device nack")

	// ErrCancelled means the caller's context was cancelled before a
	// response arrived.
	ErrCancelled = errors.New("minidsp: cancelled")
)

// FrameError wraps ErrFrameCorrupt with the byte offset where validation
// failed, for diagnostics.
type FrameError struct {
	Reason string
	Offset int
}

func (e *FrameError) Error() string {
	return "minidsp: frame corrupt: " + e.Reason
}

func (e *FrameError) Unwrap() error {
	return ErrFrameCorrupt
}

// SymbolError wraps ErrUnknownSymbol with the offending path.
type SymbolError struct {
	Path string
}

func (e *SymbolError) Error() string {
	return "minidsp: unknown symbol: " + e.Path
}

func (e *SymbolError) Unwrap() error {
	return ErrUnknownSymbol
}

// RangeError wraps ErrEncodingRange with the rejected value and domain.
type RangeError struct {
	Encoding string
	Value    float64
	Domain   string
}

func (e *RangeError) Error() string {
	return "minidsp: " + e.Encoding + " value out of range " + e.Domain
}

func (e *RangeError) Unwrap() error {
	return ErrEncodingRange
}

// FirmwareError wraps ErrUnsupportedFirmware with the probed identity that
// no registered descriptor claimed.
type FirmwareError struct {
	HWID       byte
	DSPVersion byte
}

func (e *FirmwareError) Error() string {
	return "minidsp: no descriptor for hw_id/dsp_version combination"
}

func (e *FirmwareError) Unwrap() error {
	return ErrUnsupportedFirmware
}
