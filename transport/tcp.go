package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/minidsp/minidsp-go/frame"
)

type streamTransport struct {
	conn net.Conn
}

// DialTCP opens a TCP transport to addr (host:port), used for devices
// reached through a network-attached bridge rather than directly over
// USB-HID.
func DialTCP(ctx context.Context, addr string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &streamTransport{conn: conn}, nil
}

// DialUnix opens a transport over a Unix domain socket at path, used for a
// local daemon bridging several clients to one physical device.
func DialUnix(ctx context.Context, path string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	return &streamTransport{conn: conn}, nil
}

func (t *streamTransport) WriteFrame(ctx context.Context, payload []byte) error {
	encoded, err := frame.Encode(payload)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetWriteDeadline(deadline)
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	return runCancellable(ctx, func() error {
		_, err := t.conn.Write(encoded)
		return err
	})
}

// ReadFrame reads one length-prefixed frame off the stream: the first byte
// is LEN (the whole frame's length, itself and CRC8 included), so the
// remaining LEN-1 bytes complete the frame.
func (t *streamTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetReadDeadline(deadline)
		defer t.conn.SetReadDeadline(time.Time{})
	}

	var raw []byte
	err := runCancellable(ctx, func() error {
		lenByte := make([]byte, 1)
		if _, err := io.ReadFull(t.conn, lenByte); err != nil {
			return err
		}
		rest := make([]byte, int(lenByte[0])-1)
		if _, err := io.ReadFull(t.conn, rest); err != nil {
			return err
		}
		raw = append(lenByte, rest...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return frame.Decode(raw)
}

func (t *streamTransport) Close() error {
	return t.conn.Close()
}
