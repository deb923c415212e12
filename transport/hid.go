package transport

import (
	"context"

	"github.com/karalabe/hid"
	"github.com/minidsp/minidsp-go/frame"
)

// HIDOptions selects which USB-HID device OpenHID connects to.
type HIDOptions struct {
	VendorID  uint16
	ProductID uint16
	// Serial, when non-empty, disambiguates between several devices
	// sharing the same vendor/product id.
	Serial string
}

type hidTransport struct {
	dev *hid.Device
}

// OpenHID enumerates attached HID devices and opens the first one matching
// opts. Grounded on the enumerate-then-open pattern used throughout the
// teacher's wire/usb.go connectHID helper, adapted from the deadsy/libusb +
// karalabe/hid pairing there to karalabe/hid alone (no libusb dependency:
// this module never needs WebUSB).
func OpenHID(opts HIDOptions) (Transport, error) {
	for _, info := range hid.Enumerate(opts.VendorID, opts.ProductID) {
		if opts.Serial != "" && info.Serial != opts.Serial {
			continue
		}
		dev, err := info.Open()
		if err != nil {
			return nil, err
		}
		return &hidTransport{dev: dev}, nil
	}
	return nil, errDeviceNotFound
}

func (t *hidTransport) WriteFrame(ctx context.Context, payload []byte) error {
	encoded, err := frame.Encode(payload)
	if err != nil {
		return err
	}
	report, err := frame.PadHID(encoded)
	if err != nil {
		return err
	}
	return runCancellable(ctx, func() error {
		_, err := t.dev.Write(report)
		return err
	})
}

func (t *hidTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	buf := make([]byte, frame.HIDReportSize)
	var n int
	err := runCancellable(ctx, func() error {
		var readErr error
		n, readErr = t.dev.Read(buf)
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return frame.Decode(frame.UnpadHID(buf[:n]))
}

func (t *hidTransport) Close() error {
	return t.dev.Close()
}
