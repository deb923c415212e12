package mux

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/mockdevice"
	"github.com/minidsp/minidsp-go/proto"
	"github.com/minidsp/minidsp-go/registry"
	"github.com/minidsp/minidsp-go/transport"
)

func newTestMux(t *testing.T) (*Mux, *mockdevice.Device) {
	t.Helper()
	reg := registry.NewRegistry()
	desc, err := reg.Lookup(10, 100)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	dev := mockdevice.New(desc)
	tr := transport.OpenMock(dev, transport.MockOptions{})
	return New(tr), dev
}

func TestSendReturnsDecodedResponse(t *testing.T) {
	m, _ := newTestMux(t)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cmd := proto.ReadHardwareID{}
	resp, err := m.Send(ctx, cmd.EncodePayload())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	got, err := proto.DecodeHardwareIDResult(resp)
	if err != nil {
		t.Fatalf("DecodeHardwareIDResult() error = %v", err)
	}
	if got.HWID != 10 {
		t.Errorf("HWID = %d, want 10", got.HWID)
	}
}

func TestSendsAreSerializedInOrder(t *testing.T) {
	m, _ := newTestMux(t)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	writeCmd := proto.WriteMemory{Address: 0x0080, Data: []byte{0x00, 0x20}}
	if _, err := m.Send(ctx, writeCmd.EncodePayload()); err != nil {
		t.Fatalf("Send(write) error = %v", err)
	}
	readCmd := proto.ReadMemory{Address: 0x0080, Len: 2}
	resp, err := m.Send(ctx, readCmd.EncodePayload())
	if err != nil {
		t.Fatalf("Send(read) error = %v", err)
	}
	got, err := proto.DecodeReadMemoryResult(resp)
	if err != nil {
		t.Fatalf("DecodeReadMemoryResult() error = %v", err)
	}
	if got.Data[1] != 0x20 {
		t.Errorf("read data = %v, want last byte 0x20 (write must precede read)", got.Data)
	}
}

func TestSubscribeReceivesConfigChangedEvent(t *testing.T) {
	m, dev := newTestMux(t)
	defer m.Close()
	dev.ConfigDelay = time.Millisecond

	_, events := m.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cmd := proto.SetConfig{Preset: 1}
	if _, err := m.SendConfig(ctx, cmd.EncodePayload()); err != nil {
		t.Fatalf("SendConfig() error = %v", err)
	}

	select {
	case ev := <-events:
		if len(ev) != 1 || proto.Opcode(ev[0]) != proto.OpConfigChanged {
			t.Errorf("event = %v, want [OpConfigChanged]", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OpConfigChanged event")
	}
}

func TestSendTimesOutWhenDeviceNeverAnswers(t *testing.T) {
	reg := registry.NewRegistry()
	desc, _ := reg.Lookup(10, 100)
	dev := mockdevice.New(desc)
	// A response_delay far beyond the command timeout simulates a
	// stalled device.
	tr := transport.OpenMock(dev, transport.MockOptions{ResponseDelay: time.Hour})
	m := New(tr)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := proto.ReadHardwareID{}
	start := time.Now()
	_, err := m.send(ctx, cmd.EncodePayload(), 50*time.Millisecond)
	if !errors.Is(err, minidsperr.ErrTimeout) {
		t.Fatalf("send() error = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("send() took %v, want close to the 50ms timeout", time.Since(start))
	}
}

func TestQueueFullReturnsBusy(t *testing.T) {
	reg := registry.NewRegistry()
	desc, _ := reg.Lookup(10, 100)
	dev := mockdevice.New(desc)
	tr := transport.OpenMock(dev, transport.MockOptions{ResponseDelay: time.Hour})
	m := New(tr)
	defer m.Close()

	ctx := context.Background()
	// Fill the dispatch slot plus the whole queue capacity so the next
	// send has nowhere to go.
	for i := 0; i < QueueCapacity+1; i++ {
		cmd := proto.ReadHardwareID{}
		req := &request{ctx: ctx, payload: cmd.EncodePayload(), timeout: time.Hour, result: make(chan result, 1)}
		select {
		case m.queue <- req:
		default:
			// queue already full partway through; that's fine, the
			// assertion below is what matters.
		}
	}

	cmd := proto.ReadHardwareID{}
	_, err := m.Send(ctx, cmd.EncodePayload())
	if !errors.Is(err, minidsperr.ErrBusy) {
		t.Fatalf("Send() error = %v, want ErrBusy", err)
	}
}
