// Package proto is the typed, closed representation of every command this
// device family accepts and every response it returns (spec.md §4.2). Each
// command variant is a Go struct implementing Command; addresses are
// transmitted big-endian, matching the devices observed in the field.
package proto

import (
	"encoding/binary"

	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/units"
)

// Command is a request that can be lowered to a single frame payload. Large
// payloads (WriteMemory, WriteFirTaps) are chunked into several frames by
// the caller (the mux/session layers), each chunk itself a Command.
type Command interface {
	Opcode() Opcode
	EncodePayload() []byte
}

func putAddr(b []byte, addr uint16) {
	binary.BigEndian.PutUint16(b, addr)
}

// ReadMemory reads len raw bytes starting at address.
type ReadMemory struct {
	Address uint16
	Len     uint8
}

func (ReadMemory) Opcode() Opcode { return OpReadMemory }

func (c ReadMemory) EncodePayload() []byte {
	b := make([]byte, 4)
	b[0] = byte(OpReadMemory)
	putAddr(b[1:3], c.Address)
	b[3] = c.Len
	return b
}

// ReadMemoryResult is the decoded response to ReadMemory.
type ReadMemoryResult struct {
	Address uint16
	Data    []byte
}

// DecodeReadMemoryResult parses a ReadMemory response payload. Response
// payloads carry no opcode byte: the first two bytes are the echoed address.
func DecodeReadMemoryResult(payload []byte) (ReadMemoryResult, error) {
	if len(payload) < 2 {
		return ReadMemoryResult{}, &minidsperr.FrameError{Reason: "short ReadMemory response"}
	}
	return ReadMemoryResult{
		Address: binary.BigEndian.Uint16(payload[:2]),
		Data:    payload[2:],
	}, nil
}

// WriteMemory writes data starting at address. Per spec.md §4.2, callers
// must chunk payloads larger than 58 bytes into several WriteMemory
// commands at ascending addresses; this type represents a single
// already-chunked frame.
type WriteMemory struct {
	Address uint16
	Data    []byte
}

// MaxWriteMemoryChunk is the largest data payload a single WriteMemory
// frame can carry, leaving room for opcode + address within one frame
// payload (MaxPayloadLen=253, but HID reports cap the practical frame at
// 58 data bytes per spec.md §4.2/§4.7).
const MaxWriteMemoryChunk = 58

func (WriteMemory) Opcode() Opcode { return OpWriteMemory }

func (c WriteMemory) EncodePayload() []byte {
	b := make([]byte, 3+len(c.Data))
	b[0] = byte(OpWriteMemory)
	putAddr(b[1:3], c.Address)
	copy(b[3:], c.Data)
	return b
}

// ChunkWriteMemory splits data into a sequence of WriteMemory commands of
// at most MaxWriteMemoryChunk bytes each, at ascending addresses.
func ChunkWriteMemory(address uint16, data []byte) []WriteMemory {
	var cmds []WriteMemory
	for offset := 0; offset < len(data); offset += MaxWriteMemoryChunk {
		end := offset + MaxWriteMemoryChunk
		if end > len(data) {
			end = len(data)
		}
		cmds = append(cmds, WriteMemory{
			Address: address + uint16(offset),
			Data:    data[offset:end],
		})
	}
	return cmds
}

// ReadFloats bulk-reads count float32 values starting at address, used for
// level-meter readback. count must not exceed ReadFloatsMax.
type ReadFloats struct {
	Address uint16
	Count   uint8
}

// ReadFloatsMax is the largest number of floats a single ReadFloats command
// can request.
const ReadFloatsMax = 14

func (ReadFloats) Opcode() Opcode { return OpReadFloats }

func (c ReadFloats) EncodePayload() []byte {
	b := make([]byte, 4)
	b[0] = byte(OpReadFloats)
	putAddr(b[1:3], c.Address)
	b[3] = c.Count
	return b
}

// DecodeReadFloatsResult parses a ReadFloats response payload.
func DecodeReadFloatsResult(payload []byte) ([]float64, error) {
	if len(payload) < 2 {
		return nil, &minidsperr.FrameError{Reason: "short ReadFloats response"}
	}
	var blk units.FirTapBlock
	return blk.DecodeTaps(payload[2:])
}

// WriteFloat writes a single float32 value at address.
type WriteFloat struct {
	Address uint16
	Value   float64
}

func (WriteFloat) Opcode() Opcode { return OpWriteValue }

func (c WriteFloat) EncodePayload() []byte {
	var f units.Float32LE
	valBytes, _ := f.Encode(c.Value) // Float32LE only errors on NaN/Inf, callers validate upstream
	b := make([]byte, 3+len(valBytes))
	b[0] = byte(OpWriteValue)
	putAddr(b[1:3], c.Address)
	copy(b[3:], valBytes)
	return b
}

// WriteBiquad writes a 5-coefficient biquad (20 bytes) at address.
type WriteBiquad struct {
	Address uint16
	Coeffs  [5]float64 // b0, b1, b2, a1, a2
}

func (WriteBiquad) Opcode() Opcode { return OpWriteBiquad }

func (c WriteBiquad) EncodePayload() ([]byte, error) {
	var enc units.BiquadCoeffs5
	coeffBytes, err := enc.Encode(c.Coeffs)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 3+len(coeffBytes))
	b[0] = byte(OpWriteBiquad)
	putAddr(b[1:3], c.Address)
	copy(b[3:], coeffBytes)
	return b, nil
}

// WriteBiquadBypass toggles a biquad's bypass flag.
type WriteBiquadBypass struct {
	Address uint16
	Bypass  bool
}

func (WriteBiquadBypass) Opcode() Opcode { return OpWriteBiquadBypass }

func (c WriteBiquadBypass) EncodePayload() []byte {
	b := make([]byte, 4)
	b[0] = byte(OpWriteBiquadBypass)
	putAddr(b[1:3], c.Address)
	b[3] = units.Bool{Kind: units.BoolBypassSet}.Encode(c.Bypass)
	return b
}

// SetConfig selects a configuration preset. The device reboots its DSP in
// response; subsequent commands block until an OpConfigChanged ack frame
// arrives or the 3s SetConfig timeout expires (spec.md §4.2/§6).
type SetConfig struct {
	Preset uint8
}

func (SetConfig) Opcode() Opcode { return OpSetConfig }

func (c SetConfig) EncodePayload() []byte {
	return []byte{byte(OpSetConfig), c.Preset, 1}
}

// SetSource selects the active input source by its product-specific code.
type SetSource struct {
	Code byte
}

func (SetSource) Opcode() Opcode { return OpSetSource }

func (c SetSource) EncodePayload() []byte {
	return []byte{byte(OpSetSource), c.Code}
}

// SetMute toggles master mute.
type SetMute struct {
	On bool
}

func (SetMute) Opcode() Opcode { return OpSetMute }

func (c SetMute) EncodePayload() []byte {
	v := byte(0)
	if c.On {
		v = 1
	}
	return []byte{byte(OpSetMute), v}
}

// SetVolume sets master volume in half-decibel units (0..0xFE representing
// 0..-127 dB, spec.md §4.2/§4.4).
type SetVolume struct {
	HalfDB uint8
}

func (SetVolume) Opcode() Opcode { return OpSetVolume }

func (c SetVolume) EncodePayload() []byte {
	return []byte{byte(OpSetVolume), c.HalfDB}
}

// SetDirac toggles Dirac Live processing.
type SetDirac struct {
	On bool
}

func (SetDirac) Opcode() Opcode { return OpDiracBypass }

func (c SetDirac) EncodePayload() []byte {
	// The device field is a bypass flag: Dirac "on" means bypass "off".
	v := byte(1)
	if c.On {
		v = 0
	}
	return []byte{byte(OpDiracBypass), v}
}

// ReadHardwareID reads the device's hardware id, dsp version and serial
// number, used by Probe (C8) to resolve a registry entry.
type ReadHardwareID struct{}

func (ReadHardwareID) Opcode() Opcode { return OpReadHardwareID }

func (ReadHardwareID) EncodePayload() []byte {
	return []byte{byte(OpReadHardwareID)}
}

// HardwareIDResult is the decoded response to ReadHardwareID.
type HardwareIDResult struct {
	HWID       byte
	Serial     uint32
	DSPVersion byte
}

// DecodeHardwareIDResult parses a ReadHardwareID response payload, laid out
// as hw_id(1) serial(4, big-endian) dsp_version(1).
func DecodeHardwareIDResult(payload []byte) (HardwareIDResult, error) {
	if len(payload) < 6 {
		return HardwareIDResult{}, &minidsperr.FrameError{Reason: "short ReadHardwareID response"}
	}
	return HardwareIDResult{
		HWID:       payload[0],
		Serial:     binary.BigEndian.Uint32(payload[1:5]),
		DSPVersion: payload[5],
	}, nil
}

// ReadMasterStatus is a high-level read of the device's global mirror
// (preset, source, volume, mute, Dirac). On the wire it is a ReadMemory of
// a contiguous block at the registry-resolved master status base address;
// MasterStatusLen is that block's length.
type ReadMasterStatus struct {
	BaseAddress uint16
}

// MasterStatusLen is the number of bytes ReadMasterStatus reads: preset,
// source, volume, mute (1 byte each), four unused bytes, then the Dirac
// bypass flag at offset 8, matching the field layout observed on
// 2x4HD-class firmware.
const MasterStatusLen = 9

func (c ReadMasterStatus) Opcode() Opcode { return OpReadMemory }

func (c ReadMasterStatus) EncodePayload() []byte {
	return ReadMemory{Address: c.BaseAddress, Len: MasterStatusLen}.EncodePayload()
}

// MasterStatusResult is the decoded response to ReadMasterStatus. Dirac is
// only meaningful for products whose descriptor declares Dirac support.
type MasterStatusResult struct {
	Preset byte
	Source byte
	Volume byte // half-dB units, same domain as SetVolume
	Mute   bool
	Dirac  bool
}

// DecodeMasterStatusResult parses the ReadMemory response payload backing
// ReadMasterStatus (address header already stripped).
func DecodeMasterStatusResult(data []byte) (MasterStatusResult, error) {
	if len(data) < 4 {
		return MasterStatusResult{}, &minidsperr.FrameError{Reason: "short master status block"}
	}
	dirac := false
	if len(data) > 8 {
		dirac = data[8] == 0
	}
	return MasterStatusResult{
		Preset: data[0],
		Source: data[1],
		Volume: data[2],
		Mute:   data[3] == 1,
		Dirac:  dirac,
	}, nil
}

// WriteFirTaps uploads taps starting at address, chunked into
// MaxWriteMemoryChunk-sized WriteMemory frames by the caller (the FIR tap
// block is addressed memory, not a distinct wire opcode, per spec.md's
// FirTapBlock encoding tag).
type WriteFirTaps struct {
	Address uint16
	Taps    []float64
}

// EncodeChunks lowers a WriteFirTaps command into the WriteMemory frames
// that actually cross the wire.
func (c WriteFirTaps) EncodeChunks() ([]WriteMemory, error) {
	var blk units.FirTapBlock
	data, err := blk.EncodeTaps(c.Taps)
	if err != nil {
		return nil, err
	}
	return ChunkWriteMemory(c.Address, data), nil
}

// NoOp is a liveness probe: a ReadHardwareID whose result is discarded,
// since every product answers it harmlessly. The multiplexer does not send
// it on its own; it runs no liveness check.
type NoOp struct{}

func (NoOp) Opcode() Opcode { return OpReadHardwareID }

func (NoOp) EncodePayload() []byte { return ReadHardwareID{}.EncodePayload() }
