package transport

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minidsp/minidsp-go/mockdevice"
	"github.com/minidsp/minidsp-go/registry"
)

// Open resolves one of the three URL grammars this module accepts into a
// live Transport:
//
//	usb:<bus>:<dev>?vid=<V>&pid=<P>
//	tcp://<host>:<port>[?name=<urlencoded>]
//	mock:?serial=<uint>[&response_delay=<ms>]
//
// A Unix-domain-socket backend exists (DialUnix) but has no URL form: it is
// only reachable through the Go API, since it serves local daemon wiring
// rather than anything a user would type.
func Open(ctx context.Context, rawURL string, reg *registry.Registry) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("minidsp: invalid transport url: %w", err)
	}

	switch u.Scheme {
	case "usb":
		return openUSBURL(u)
	case "tcp":
		return DialTCP(ctx, u.Host)
	case "mock":
		return openMockURL(u, reg)
	default:
		return nil, fmt.Errorf("minidsp: unsupported transport scheme %q", u.Scheme)
	}
}

func openUSBURL(u *url.URL) (Transport, error) {
	// bus/dev are carried as the opaque "path" (usb:1:2 parses with
	// Opaque="1:2"). Only their presence is checked: they do not select a
	// device, and OpenHID opens the first device matching vid/pid.
	parts := strings.SplitN(u.Opaque, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("minidsp: usb url must be usb:<bus>:<dev>?vid=..&pid=..")
	}

	q := u.Query()
	vid, err := parseHexOrDecimal(q.Get("vid"))
	if err != nil {
		return nil, fmt.Errorf("minidsp: usb url vid: %w", err)
	}
	pid, err := parseHexOrDecimal(q.Get("pid"))
	if err != nil {
		return nil, fmt.Errorf("minidsp: usb url pid: %w", err)
	}

	return OpenHID(HIDOptions{VendorID: uint16(vid), ProductID: uint16(pid)})
}

func parseHexOrDecimal(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 32)
	}
	return strconv.ParseUint(s, 10, 32)
}

func openMockURL(u *url.URL, reg *registry.Registry) (Transport, error) {
	q := u.Query()

	opts := MockOptions{}
	if raw := q.Get("response_delay"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("minidsp: mock url response_delay: %w", err)
		}
		opts.ResponseDelay = time.Duration(ms) * time.Millisecond
	}

	// serial is accepted for URL-grammar completeness (and to let a test
	// harness name a mock instance) but every mock simulates the same
	// built-in descriptor (the 2x4HD, hw_id 10 / dsp_version 100).
	desc, err := reg.Lookup(10, 100)
	if err != nil {
		return nil, fmt.Errorf("minidsp: mock url: no default descriptor registered: %w", err)
	}
	return OpenMock(mockdevice.New(desc), opts), nil
}
