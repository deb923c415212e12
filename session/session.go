// Package session is the state machine and high-level API (C7) sitting on
// top of a Mux: Closed -> Probing -> Open -> Closed, master status/volume/
// source/mute/Dirac/preset control, and the Input/Output scoped helpers
// (gain, mute, PEQ, routing, crossover, compressor, FIR) that make up the
// bulk of what a caller actually does with an open unit.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/mux"
	"github.com/minidsp/minidsp-go/proto"
	"github.com/minidsp/minidsp-go/registry"
	"github.com/minidsp/minidsp-go/transport"
	"github.com/minidsp/minidsp-go/units"
)

// State is where a Session sits in its Closed -> Probing -> Open -> Closed
// lifecycle.
type State int

const (
	StateClosed State = iota
	StateProbing
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "probing"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Session is a live, probed connection to one unit.
type Session struct {
	mu    sync.Mutex
	state State

	mx   *mux.Mux
	desc *registry.Descriptor
}

// Open probes tr against reg's descriptors and returns a ready Session.
// If the probed (hw_id, dsp_version) combination matches no registered
// descriptor, Open fails with *minidsperr.FirmwareError unless
// forceGeneric is set, in which case it falls back to reg.Generic().
func Open(ctx context.Context, tr transport.Transport, reg *registry.Registry, forceGeneric bool) (*Session, error) {
	s := &Session{state: StateProbing, mx: mux.New(tr)}

	hwResp, err := s.mx.Send(ctx, proto.ReadHardwareID{}.EncodePayload())
	if err != nil {
		s.mx.Close()
		return nil, err
	}
	hw, err := proto.DecodeHardwareIDResult(hwResp)
	if err != nil {
		s.mx.Close()
		return nil, err
	}

	desc, err := reg.Lookup(hw.HWID, hw.DSPVersion)
	if err != nil {
		if !forceGeneric {
			s.mx.Close()
			return nil, err
		}
		desc, err = reg.Generic()
		if err != nil {
			s.mx.Close()
			return nil, err
		}
	}

	s.mu.Lock()
	s.desc = desc
	s.state = StateOpen
	s.mu.Unlock()
	return s, nil
}

// Descriptor returns the resolved product descriptor.
func (s *Session) Descriptor() *registry.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears down the multiplexer and its transport.
func (s *Session) Close() error {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	return s.mx.Close()
}

// lockOpen takes the session lock and fails with ErrTransportClosed (lock
// released again) unless the session is open. On success the caller holds
// the lock and must release it.
func (s *Session) lockOpen() error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return minidsperr.ErrTransportClosed
	}
	return nil
}

// MasterStatus is the decoded global mirror: preset, source, volume, mute,
// (where supported) Dirac state, and a one-shot snapshot of every input and
// output level meter, in channel order.
type MasterStatus struct {
	Preset   byte
	Source   units.Source
	VolumeDB float64
	Mute     bool
	Dirac    bool

	InputLevelsDB  []float64
	OutputLevelsDB []float64
}

// GetStatus reads the master status block and both level-meter blocks,
// returning all three as one snapshot: three reads in sequence on the
// single-inflight mux, not one atomic device-side transaction. GetStatus
// holds the session lock for all three reads, so ApplyConfig and the master
// setters cannot write between them; writes through the Input/Output
// helpers take no session lock and are serialized only per command by the
// mux.
func (s *Session) GetStatus(ctx context.Context) (MasterStatus, error) {
	if err := s.lockOpen(); err != nil {
		return MasterStatus{}, err
	}
	defer s.mu.Unlock()
	cmd := proto.ReadMasterStatus{BaseAddress: s.desc.MasterStatusAddress}
	resp, err := s.mx.Send(ctx, cmd.EncodePayload())
	if err != nil {
		return MasterStatus{}, err
	}
	raw, err := proto.DecodeReadMemoryResult(resp)
	if err != nil {
		return MasterStatus{}, err
	}
	ms, err := proto.DecodeMasterStatusResult(raw.Data)
	if err != nil {
		return MasterStatus{}, err
	}

	var hd units.HalfDBByte
	volDB, err := hd.Decode([]byte{ms.Volume})
	if err != nil {
		return MasterStatus{}, err
	}
	src, err := s.desc.SourceTable.Decode(ms.Source)
	if err != nil {
		src = units.SourceNotInstalled
	}

	inLevels, err := s.readLevels(ctx, s.desc.InputLevelAddress, s.desc.Inputs)
	if err != nil {
		return MasterStatus{}, err
	}
	outLevels, err := s.readLevels(ctx, s.desc.OutputLevelAddress, s.desc.Outputs)
	if err != nil {
		return MasterStatus{}, err
	}

	return MasterStatus{
		Preset: ms.Preset, Source: src, VolumeDB: volDB, Mute: ms.Mute, Dirac: ms.Dirac,
		InputLevelsDB: inLevels, OutputLevelsDB: outLevels,
	}, nil
}

// readLevels issues one ReadFloats for count channels starting at base, the
// wire operation behind get_status's level-meter readback.
func (s *Session) readLevels(ctx context.Context, base uint16, count int) ([]float64, error) {
	if count == 0 {
		return nil, nil
	}
	if count > proto.ReadFloatsMax {
		return nil, &minidsperr.RangeError{Encoding: "ReadFloats", Value: float64(count), Domain: fmt.Sprintf("<= %d channels", proto.ReadFloatsMax)}
	}
	resp, err := s.mx.Send(ctx, proto.ReadFloats{Address: base, Count: uint8(count)}.EncodePayload())
	if err != nil {
		return nil, err
	}
	return proto.DecodeReadFloatsResult(resp)
}

// SetSource selects the active input source by its abstract Source value.
func (s *Session) SetSource(ctx context.Context, src units.Source) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.setSourceLocked(ctx, src)
}

func (s *Session) setSourceLocked(ctx context.Context, src units.Source) error {
	code, err := s.desc.SourceTable.Encode(src)
	if err != nil {
		return err
	}
	_, err = s.mx.Send(ctx, proto.SetSource{Code: code}.EncodePayload())
	return err
}

// SetVolume sets master volume in decibels (clamped to [-127, 0]).
func (s *Session) SetVolume(ctx context.Context, dB float64) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.setVolumeLocked(ctx, dB)
}

func (s *Session) setVolumeLocked(ctx context.Context, dB float64) error {
	var hd units.HalfDBByte
	b, err := hd.Encode(dB)
	if err != nil {
		return err
	}
	_, err = s.mx.Send(ctx, proto.SetVolume{HalfDB: b[0]}.EncodePayload())
	return err
}

// SetMute toggles master mute.
func (s *Session) SetMute(ctx context.Context, on bool) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.setMuteLocked(ctx, on)
}

func (s *Session) setMuteLocked(ctx context.Context, on bool) error {
	_, err := s.mx.Send(ctx, proto.SetMute{On: on}.EncodePayload())
	return err
}

// SetDirac toggles Dirac Live processing. Returns *minidsperr.SymbolError
// if the descriptor doesn't declare Dirac support.
func (s *Session) SetDirac(ctx context.Context, on bool) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.setDiracLocked(ctx, on)
}

func (s *Session) setDiracLocked(ctx context.Context, on bool) error {
	if !s.desc.SupportsDirac {
		return &minidsperr.SymbolError{Path: "master.dirac"}
	}
	_, err := s.mx.Send(ctx, proto.SetDirac{On: on}.EncodePayload())
	return err
}

// MasterDelta is the optional master-status portion of a ConfigDelta. Any
// nil field is left untouched.
type MasterDelta struct {
	Preset   *byte
	Source   *units.Source
	VolumeDB *float64
	Mute     *bool
	Dirac    *bool
}

// ConfigDelta is a partial configuration tree: every field is optional, and
// only the fields actually set are written. ApplyConfig applies one
// MasterStatus delta, then Inputs and Outputs in declaration order, all as
// one atomic operation under the session lock.
type ConfigDelta struct {
	MasterStatus *MasterDelta
	Inputs       []InputDelta
	Outputs      []OutputDelta
}

// ApplyConfig atomically applies delta: if delta.MasterStatus.Preset is set
// it is always written first (and the call blocks on the resulting
// OpConfigChanged ack, or for at most mux.ConfigTimeout if none arrives),
// before any other master field or any input/output delta; delta.Inputs and
// delta.Outputs are then applied in declaration order. The whole call holds
// the session lock, so no other ApplyConfig, GetStatus or master setter
// (SetSource, SetVolume, SetMute, SetDirac) on the same Session can
// interleave with it. The Input/Output helpers take no session lock.
func (s *Session) ApplyConfig(ctx context.Context, delta ConfigDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return minidsperr.ErrTransportClosed
	}

	if m := delta.MasterStatus; m != nil {
		if m.Preset != nil {
			// Subscribe before sending so the ack cannot slip past; the only
			// event frame is OpConfigChanged. A missing ack is not an error.
			id, events := s.mx.Subscribe()
			_, err := s.mx.SendConfig(ctx, proto.SetConfig{Preset: *m.Preset}.EncodePayload())
			if err == nil {
				select {
				case <-events:
				case <-time.After(mux.ConfigTimeout):
				case <-ctx.Done():
					err = minidsperr.ErrCancelled
				}
			}
			s.mx.Unsubscribe(id)
			if err != nil {
				return err
			}
		}
		if m.Source != nil {
			if err := s.setSourceLocked(ctx, *m.Source); err != nil {
				return err
			}
		}
		if m.VolumeDB != nil {
			if err := s.setVolumeLocked(ctx, *m.VolumeDB); err != nil {
				return err
			}
		}
		if m.Mute != nil {
			if err := s.setMuteLocked(ctx, *m.Mute); err != nil {
				return err
			}
		}
		if m.Dirac != nil {
			if err := s.setDiracLocked(ctx, *m.Dirac); err != nil {
				return err
			}
		}
	}

	for _, in := range delta.Inputs {
		if err := applyInputDelta(ctx, s.Input(in.Index), in); err != nil {
			return err
		}
	}
	for _, out := range delta.Outputs {
		if err := applyOutputDelta(ctx, s.Output(out.Index), out); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeEvents returns a channel of unsolicited event frames (currently
// just OpConfigChanged acks). Call UnsubscribeEvents when done.
func (s *Session) SubscribeEvents() (id int, events <-chan []byte) {
	return s.mx.Subscribe()
}

// UnsubscribeEvents stops and closes the channel id names.
func (s *Session) UnsubscribeEvents(id int) {
	s.mx.Unsubscribe(id)
}

func (s *Session) writeSymbol(ctx context.Context, path string, data []byte) error {
	sym, err := s.desc.Resolve(path)
	if err != nil {
		return err
	}
	_, err = s.mx.Send(ctx, proto.WriteMemory{Address: sym.Address, Data: data}.EncodePayload())
	return err
}

func (s *Session) readSymbol(ctx context.Context, path string, size uint8) ([]byte, error) {
	sym, err := s.desc.Resolve(path)
	if err != nil {
		return nil, err
	}
	resp, err := s.mx.Send(ctx, proto.ReadMemory{Address: sym.Address, Len: size}.EncodePayload())
	if err != nil {
		return nil, err
	}
	raw, err := proto.DecodeReadMemoryResult(resp)
	if err != nil {
		return nil, err
	}
	return raw.Data, nil
}

func gainEncoding() units.Int16Gain {
	return units.Int16Gain{Table: units.LinearHalfDBTable()}
}

func boolField() units.Bool {
	return units.Bool{Kind: units.BoolSet}
}

func bypassField() units.Bool {
	return units.Bool{Kind: units.BoolBypassSet}
}

func peqSlotPath(prefix string, idx, band int, field string) string {
	return fmt.Sprintf("%s.%d.peq.%d.%s", prefix, idx, band, field)
}
