// Package mockdevice is an in-memory register file standing in for a real
// unit (C9): enough of the wire protocol to exercise transport, mux and
// session code without hardware, grounded on the teacher's own emulator
// pattern (usb/emulator.go) of answering USB calls entirely in-process.
package mockdevice

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/proto"
	"github.com/minidsp/minidsp-go/registry"
	"github.com/minidsp/minidsp-go/units"
)

// Device is a single simulated unit: a flat 64K register file plus the
// small bits of behavior (SetConfig's delayed reboot ack, periodic
// level-meter signal) that a real unit exposes over the wire but that isn't
// just "a byte at an address".
type Device struct {
	mu         sync.Mutex
	mem        [1 << 16]byte
	descriptor *registry.Descriptor
	events     chan []byte

	// ConfigDelay is how long SetConfig takes to answer with
	// OpConfigChanged, simulating the real DSP reboot. Tests can shrink
	// this; demos leave it at the default.
	ConfigDelay time.Duration

	levelStop chan struct{}
}

// New returns a Device simulating d, with every declared symbol address
// zeroed and the master status block at d.MasterStatusAddress populated
// with factory defaults (preset 0, first declared source, 0dB, unmuted).
func New(d *registry.Descriptor) *Device {
	dev := &Device{descriptor: d, events: make(chan []byte, 4), ConfigDelay: 50 * time.Millisecond}
	dev.mem[d.MasterStatusAddress+2] = 0 // 0.0dB, see units.HalfDBByte
	return dev
}

// LevelSignal produces the synthetic reading for one level-meter channel at
// elapsed time t since StartLevelSignal was called. channel is 0-based
// within its own direction (input or output).
type LevelSignal func(channel int, isOutput bool, t time.Duration) float64

// DefaultLevelSignal is a deterministic, bounded [-60, 0] dBFS sine wave,
// phase-offset per channel and direction so no two meters move in lockstep.
func DefaultLevelSignal(channel int, isOutput bool, t time.Duration) float64 {
	phase := float64(channel) * 0.7
	if isOutput {
		phase += math.Pi
	}
	return -30 + 30*math.Sin(t.Seconds()+phase)
}

// StartLevelSignal begins writing synthetic level-meter readings into the
// register file every interval, driven by signal (DefaultLevelSignal if
// nil), simulating a unit's live input/output meters for callers that poll
// GetStatus. Tests that don't exercise metering can simply never call this.
// Call StopLevelSignal to stop the background goroutine.
func (d *Device) StartLevelSignal(interval time.Duration, signal LevelSignal) {
	if signal == nil {
		signal = DefaultLevelSignal
	}
	stop := make(chan struct{})
	d.levelStop = stop
	start := time.Now()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				elapsed := now.Sub(start)
				d.mu.Lock()
				for i := 0; i < d.descriptor.Inputs; i++ {
					d.writeLevelLocked(d.descriptor.InputLevelAddress, i, signal(i, false, elapsed))
				}
				for j := 0; j < d.descriptor.Outputs; j++ {
					d.writeLevelLocked(d.descriptor.OutputLevelAddress, j, signal(j, true, elapsed))
				}
				d.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// StopLevelSignal stops a goroutine started by StartLevelSignal. A no-op if
// StartLevelSignal was never called.
func (d *Device) StopLevelSignal() {
	if d.levelStop != nil {
		close(d.levelStop)
		d.levelStop = nil
	}
}

func (d *Device) writeLevelLocked(base uint16, idx int, valueDB float64) {
	var f units.Float32LE
	b, err := f.Encode(valueDB)
	if err != nil {
		return
	}
	addr := int(base) + idx*4
	copy(d.mem[addr:], b)
}

// Events returns the channel unsolicited frames (OpConfigChanged acks) are
// published on.
func (d *Device) Events() <-chan []byte {
	return d.events
}

// Handle interprets one decoded command payload and returns the decoded
// response payload, mutating the register file as a side effect. This is
// the device-side mirror of the encode/decode logic in package proto.
func (d *Device) Handle(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, &minidsperr.FrameError{Reason: "empty command payload"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	op := proto.Opcode(payload[0])
	switch op {
	case proto.OpReadMemory:
		return d.handleReadMemory(payload)
	case proto.OpWriteMemory:
		return d.handleWriteMemory(payload)
	case proto.OpWriteValue:
		return d.handleWriteValue(payload)
	case proto.OpWriteBiquad:
		return d.handleWriteBiquad(payload)
	case proto.OpWriteBiquadBypass:
		return d.handleWriteByteField(payload)
	case proto.OpReadFloats:
		return d.handleReadFloats(payload)
	case proto.OpSetSource:
		d.mem[d.descriptor.MasterStatusAddress+1] = payload[1]
		return []byte{}, nil
	case proto.OpSetMute:
		d.mem[d.descriptor.MasterStatusAddress+3] = payload[1]
		return []byte{}, nil
	case proto.OpSetVolume:
		d.mem[d.descriptor.MasterStatusAddress+2] = payload[1]
		return []byte{}, nil
	case proto.OpDiracBypass:
		d.mem[d.descriptor.MasterStatusAddress+8] = payload[1]
		return []byte{}, nil
	case proto.OpReadHardwareID:
		return d.handleReadHardwareID()
	case proto.OpSetConfig:
		return d.handleSetConfig(payload)
	default:
		return nil, &minidsperr.FrameError{Reason: "unsupported opcode in mock device"}
	}
}

func (d *Device) handleReadMemory(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, &minidsperr.FrameError{Reason: "short ReadMemory command"}
	}
	addr := binary.BigEndian.Uint16(payload[1:3])
	n := int(payload[3])
	resp := make([]byte, 2+n)
	binary.BigEndian.PutUint16(resp[:2], addr)
	copy(resp[2:], d.mem[int(addr):int(addr)+n])
	return resp, nil
}

func (d *Device) handleWriteMemory(payload []byte) ([]byte, error) {
	if len(payload) < 3 {
		return nil, &minidsperr.FrameError{Reason: "short WriteMemory command"}
	}
	addr := binary.BigEndian.Uint16(payload[1:3])
	copy(d.mem[int(addr):], payload[3:])
	return []byte{}, nil
}

func (d *Device) handleWriteValue(payload []byte) ([]byte, error) {
	if len(payload) < 7 {
		return nil, &minidsperr.FrameError{Reason: "short WriteValue command"}
	}
	addr := binary.BigEndian.Uint16(payload[1:3])
	copy(d.mem[int(addr):], payload[3:7])
	return []byte{}, nil
}

func (d *Device) handleWriteBiquad(payload []byte) ([]byte, error) {
	if len(payload) < 23 {
		return nil, &minidsperr.FrameError{Reason: "short WriteBiquad command"}
	}
	addr := binary.BigEndian.Uint16(payload[1:3])
	copy(d.mem[int(addr):], payload[3:23])
	return []byte{}, nil
}

func (d *Device) handleWriteByteField(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, &minidsperr.FrameError{Reason: "short single-byte-field command"}
	}
	addr := binary.BigEndian.Uint16(payload[1:3])
	d.mem[int(addr)] = payload[3]
	return []byte{}, nil
}

func (d *Device) handleReadFloats(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, &minidsperr.FrameError{Reason: "short ReadFloats command"}
	}
	addr := binary.BigEndian.Uint16(payload[1:3])
	count := int(payload[3])
	resp := make([]byte, 2+count*4)
	binary.BigEndian.PutUint16(resp[:2], addr)
	copy(resp[2:], d.mem[int(addr):int(addr)+count*4])
	return resp, nil
}

func (d *Device) handleReadHardwareID() ([]byte, error) {
	resp := make([]byte, 6)
	resp[0] = d.descriptor.HWID
	binary.BigEndian.PutUint32(resp[1:5], 0x00000001)
	resp[5] = d.descriptor.Firmware.Min
	return resp, nil
}

func (d *Device) handleSetConfig(payload []byte) ([]byte, error) {
	if len(payload) < 2 {
		return nil, &minidsperr.FrameError{Reason: "short SetConfig command"}
	}
	preset := payload[1]
	d.mem[d.descriptor.MasterStatusAddress] = preset
	delay := d.ConfigDelay
	go func() {
		time.Sleep(delay)
		d.events <- []byte{byte(proto.OpConfigChanged)}
	}()
	return []byte{}, nil
}
