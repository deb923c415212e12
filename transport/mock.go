package transport

import (
	"context"
	"time"

	"github.com/minidsp/minidsp-go/mockdevice"
)

// mockTransport drives a mockdevice.Device in-process: no framing, no
// physical link, just the same WriteFrame/ReadFrame contract everything
// else in this module is written against. Used by tests and the demo
// binary in place of real hardware.
type mockTransport struct {
	dev           *mockdevice.Device
	responseDelay time.Duration
	pending       chan []byte
}

// MockOptions configures a mock transport's simulated latency.
type MockOptions struct {
	// ResponseDelay simulates USB round-trip latency before a command's
	// response becomes visible to ReadFrame. Zero means immediate.
	ResponseDelay time.Duration
}

// OpenMock wraps dev in a Transport.
func OpenMock(dev *mockdevice.Device, opts MockOptions) Transport {
	return &mockTransport{dev: dev, responseDelay: opts.ResponseDelay, pending: make(chan []byte, 1)}
}

func (t *mockTransport) WriteFrame(ctx context.Context, payload []byte) error {
	resp, err := t.dev.Handle(payload)
	if err != nil {
		return err
	}
	if t.responseDelay > 0 {
		timer := time.NewTimer(t.responseDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.pending <- resp
	return nil
}

func (t *mockTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case resp := <-t.pending:
		return resp, nil
	case ev := <-t.dev.Events():
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *mockTransport) Close() error {
	return nil
}
