package transport

import (
	"context"
	"testing"
	"time"

	"github.com/minidsp/minidsp-go/mockdevice"
	"github.com/minidsp/minidsp-go/proto"
	"github.com/minidsp/minidsp-go/registry"
)

func TestMockTransportRoundTripsReadHardwareID(t *testing.T) {
	reg := registry.NewRegistry()
	desc, err := reg.Lookup(10, 100)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	dev := mockdevice.New(desc)
	tr := OpenMock(dev, MockOptions{})
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cmd := proto.ReadHardwareID{}
	if err := tr.WriteFrame(ctx, cmd.EncodePayload()); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	resp, err := tr.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	got, err := proto.DecodeHardwareIDResult(resp)
	if err != nil {
		t.Fatalf("DecodeHardwareIDResult() error = %v", err)
	}
	if got.HWID != desc.HWID {
		t.Errorf("HWID = %d, want %d", got.HWID, desc.HWID)
	}
}

func TestMockTransportEmitsConfigChangedEvent(t *testing.T) {
	reg := registry.NewRegistry()
	desc, _ := reg.Lookup(10, 100)
	dev := mockdevice.New(desc)
	dev.ConfigDelay = time.Millisecond
	tr := OpenMock(dev, MockOptions{})
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cmd := proto.SetConfig{Preset: 1}
	if err := tr.WriteFrame(ctx, cmd.EncodePayload()); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	// First frame back is the immediate ack.
	ack, err := tr.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame() ack error = %v", err)
	}
	if len(ack) != 0 {
		t.Errorf("ack payload = %v, want empty", ack)
	}
	// Second frame is the delayed OpConfigChanged event.
	event, err := tr.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame() event error = %v", err)
	}
	if len(event) != 1 || proto.Opcode(event[0]) != proto.OpConfigChanged {
		t.Errorf("event payload = %v, want [OpConfigChanged]", event)
	}
}
