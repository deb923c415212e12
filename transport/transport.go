// Package transport is the open/read-frame/write-frame/close contract (C5)
// every physical link this module speaks implements: USB-HID, TCP, a Unix
// domain socket and an in-memory mock. Every backend accepts and returns
// logical command/response payloads - frame.Encode/Decode and, where the
// backend needs it, HID report padding, happen inside the backend, not in
// callers.
package transport

import "context"

// Transport is the contract the mux (C6) drives. ReadFrame blocks until a
// frame arrives, ctx is cancelled, or the link fails; WriteFrame may also
// block if the underlying link applies backpressure.
type Transport interface {
	WriteFrame(ctx context.Context, payload []byte) error
	ReadFrame(ctx context.Context) ([]byte, error)
	Close() error
}
