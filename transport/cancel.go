package transport

import (
	"context"
	"errors"

	"github.com/minidsp/minidsp-go/minidsperr"
)

var errDeviceNotFound = errors.New("minidsp: no matching device found")

// runCancellable runs a blocking call (a raw HID/net read or write) on its
// own goroutine and returns as soon as either it finishes or ctx is
// cancelled first. The goroutine is leaked until the blocking call itself
// returns - karalabe/hid and net.Conn expose no cancellable read/write, so
// there is no way to abort the call early, only to stop waiting on it.
func runCancellable(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return minidsperr.ErrCancelled
	}
}
