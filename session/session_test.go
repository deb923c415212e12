package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/mockdevice"
	"github.com/minidsp/minidsp-go/registry"
	"github.com/minidsp/minidsp-go/transport"
	"github.com/minidsp/minidsp-go/units"
)

func openTestSession(t *testing.T) (*Session, *mockdevice.Device) {
	t.Helper()
	reg := registry.NewRegistry()
	desc, err := reg.Lookup(10, 100)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	dev := mockdevice.New(desc)
	dev.ConfigDelay = time.Millisecond
	tr := transport.OpenMock(dev, transport.MockOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := Open(ctx, tr, reg, false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s, dev
}

func TestOpenResolvesDescriptorAndReachesStateOpen(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	if s.State() != StateOpen {
		t.Fatalf("State() = %v, want StateOpen", s.State())
	}
	if s.Descriptor().Name == "" {
		t.Fatal("Descriptor().Name is empty")
	}
}

func TestOpenFailsClosedOnUnknownFirmware(t *testing.T) {
	reg := registry.NewRegistry()
	generic, err := reg.Generic()
	if err != nil {
		t.Fatalf("Generic() error = %v", err)
	}
	// Build a mock device whose descriptor reports an id no registered
	// entry claims, by wrapping the generic descriptor's HWID/Firmware.
	unknown := *generic
	unknown.HWID = 0xEE
	unknown.Firmware = registry.FirmwareRange{Min: 0, Max: 0}
	dev := mockdevice.New(&unknown)
	tr := transport.OpenMock(dev, transport.MockOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = Open(ctx, tr, reg, false)
	var fwErr *minidsperr.FirmwareError
	if !errors.As(err, &fwErr) {
		t.Fatalf("Open() error = %v, want *minidsperr.FirmwareError", err)
	}
}

func TestOpenForceGenericFallsBackOnUnknownFirmware(t *testing.T) {
	reg := registry.NewRegistry()
	generic, err := reg.Generic()
	if err != nil {
		t.Fatalf("Generic() error = %v", err)
	}
	unknown := *generic
	unknown.HWID = 0xEE
	unknown.Firmware = registry.FirmwareRange{Min: 0, Max: 0}
	dev := mockdevice.New(&unknown)
	tr := transport.OpenMock(dev, transport.MockOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := Open(ctx, tr, reg, true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	if s.Descriptor().Name != generic.Name {
		t.Errorf("Descriptor().Name = %q, want %q", s.Descriptor().Name, generic.Name)
	}
}

func TestSetVolumeAndGetStatusRoundTrip(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.SetVolume(ctx, -12.5); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	status, err := s.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.VolumeDB != -12.5 {
		t.Errorf("VolumeDB = %v, want -12.5", status.VolumeDB)
	}
}

func TestSetSourceAndMute(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.SetSource(ctx, units.SourceToslink); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}
	if err := s.SetMute(ctx, true); err != nil {
		t.Fatalf("SetMute() error = %v", err)
	}
	status, err := s.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Source != units.SourceToslink {
		t.Errorf("Source = %v, want Toslink", status.Source)
	}
	if !status.Mute {
		t.Error("Mute = false, want true")
	}
}

func TestSetDiracFailsWhenUnsupported(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()
	if s.Descriptor().SupportsDirac {
		t.Skip("2x4HD supports Dirac; nothing to test here")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.SetDirac(ctx, true)
	var symErr *minidsperr.SymbolError
	if !errors.As(err, &symErr) {
		t.Fatalf("SetDirac() error = %v, want *minidsperr.SymbolError", err)
	}
}

func TestApplyConfigWaitsForConfigChangedAck(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	preset := byte(2)
	if err := s.ApplyConfig(ctx, ConfigDelta{MasterStatus: &MasterDelta{Preset: &preset}}); err != nil {
		t.Fatalf("ApplyConfig() error = %v", err)
	}
}

func TestApplyConfigPresetFirstThenMasterFields(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	preset := byte(1)
	volume := -8.0
	mute := false
	source := units.SourceToslink
	delta := ConfigDelta{MasterStatus: &MasterDelta{Preset: &preset, Source: &source, VolumeDB: &volume, Mute: &mute}}
	if err := s.ApplyConfig(ctx, delta); err != nil {
		t.Fatalf("ApplyConfig() error = %v", err)
	}

	status, err := s.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Preset != preset {
		t.Errorf("Preset = %d, want %d", status.Preset, preset)
	}
	if status.VolumeDB != volume {
		t.Errorf("VolumeDB = %v, want %v", status.VolumeDB, volume)
	}
	if status.Mute != mute {
		t.Errorf("Mute = %v, want %v", status.Mute, mute)
	}
	if status.Source != source {
		t.Errorf("Source = %v, want %v", status.Source, source)
	}
}

func TestApplyConfigAppliesInputAndOutputDeltas(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	inGain := -4.0
	outGain := -2.0
	outMute := true
	delta := ConfigDelta{
		Inputs:  []InputDelta{{Index: 0, GainDB: &inGain}},
		Outputs: []OutputDelta{{Index: 0, GainDB: &outGain, Mute: &outMute}},
	}
	if err := s.ApplyConfig(ctx, delta); err != nil {
		t.Fatalf("ApplyConfig() error = %v", err)
	}
}

func TestCloseMakesFurtherCallsFailTransportClosed(t *testing.T) {
	s, _ := openTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("State() = %v, want StateClosed", s.State())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.SetMute(ctx, true); !errors.Is(err, minidsperr.ErrTransportClosed) {
		t.Errorf("SetMute() after Close() error = %v, want ErrTransportClosed", err)
	}
}

func TestInputAndOutputSettersSucceed(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	in := s.Input(0)
	if err := in.SetGain(ctx, -6.0); err != nil {
		t.Fatalf("Input.SetGain() error = %v", err)
	}
	if err := in.SetMute(ctx, true); err != nil {
		t.Fatalf("Input.SetMute() error = %v", err)
	}

	out := s.Output(1)
	if err := out.SetGain(ctx, -3.0); err != nil {
		t.Fatalf("Output.SetGain() error = %v", err)
	}
	if err := out.SetInvert(ctx, true); err != nil {
		t.Fatalf("Output.SetInvert() error = %v", err)
	}
	if err := out.SetDelay(ctx, 5.0); err != nil {
		t.Fatalf("Output.SetDelay() error = %v", err)
	}
}

func TestOutputRoutingAndPEQ(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	in := s.Input(0)
	if err := in.SetRouting(ctx, 0, true, -1.0); err != nil {
		t.Fatalf("Input.SetRouting() error = %v", err)
	}

	out := s.Output(0)
	coeffs := [5]float64{1.0, 0.0, 0.0, 0.0, 0.0}
	if err := out.SetPEQ(ctx, 0, coeffs, false); err != nil {
		t.Fatalf("Output.SetPEQ() error = %v", err)
	}
}

func TestOutputCompressorSucceedsWhenDescriptorSupportsIt(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()
	if !s.Descriptor().HasCompressor {
		t.Skip("this product declares no compressor")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out := s.Output(0)
	err := out.SetCompressor(ctx, CompressorSettings{ThresholdDB: -6, Ratio: 2, AttackMs: 1, ReleaseMs: 50})
	if err != nil {
		t.Fatalf("SetCompressor() error = %v", err)
	}
}

func TestOutputUploadFIRRejectsOversizedTaps(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()
	if s.Descriptor().FIRCapacityPerOutput == 0 {
		t.Skip("this product declares no FIR capacity")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out := s.Output(0)
	oversized := make([]float64, s.Descriptor().FIRCapacityPerOutput+1)
	err := out.UploadFIR(ctx, oversized, false)
	var rangeErr *minidsperr.RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("UploadFIR() error = %v, want *minidsperr.RangeError", err)
	}
}

func TestImportPEQTruncatesAndWarns(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out := s.Output(0)
	bands := make([][5]float64, out.NumPEQ()+3)
	for i := range bands {
		bands[i] = [5]float64{1.0, 0.0, 0.0, 0.0, 0.0}
	}
	warning, err := ImportPEQ(ctx, out, bands)
	if err != nil {
		t.Fatalf("ImportPEQ() error = %v", err)
	}
	if warning == nil {
		t.Fatal("ImportPEQ() warning = nil, want *ImportPEQWarning")
	}
	if warning.Applied != out.NumPEQ() {
		t.Errorf("warning.Applied = %d, want %d", warning.Applied, out.NumPEQ())
	}
}

func TestImportPEQNoWarningWhenWithinCapacity(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	in := s.Input(0)
	bands := [][5]float64{{1.0, 0.0, 0.0, 0.0, 0.0}}
	warning, err := ImportPEQ(ctx, in, bands)
	if err != nil {
		t.Fatalf("ImportPEQ() error = %v", err)
	}
	if warning != nil {
		t.Errorf("warning = %+v, want nil", warning)
	}
}

func TestImportPEQClearsUntouchedSlotsToIdentity(t *testing.T) {
	s, _ := openTestSession(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	in := s.Input(0)
	// First fill every slot with a non-identity biquad, so a later
	// under-supply import can only pass by actually clearing the rest.
	nonIdentity := [5]float64{0.5, 0.1, 0.1, 0.2, 0.2}
	for i := 0; i < in.NumPEQ(); i++ {
		if err := in.SetPEQ(ctx, i, nonIdentity, true); err != nil {
			t.Fatalf("SetPEQ(%d) setup error = %v", i, err)
		}
	}

	bands := [][5]float64{{1.0, 0.0, 0.0, 0.0, 0.0}, {1.0, 0.0, 0.0, 0.0, 0.0}}
	if warning, err := ImportPEQ(ctx, in, bands); err != nil {
		t.Fatalf("ImportPEQ() error = %v", err)
	} else if warning != nil {
		t.Fatalf("warning = %+v, want nil", warning)
	}

	for i := len(bands); i < in.NumPEQ(); i++ {
		sym, err := s.Descriptor().Resolve(peqSlotPath("input", 0, i, "b0"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		data, err := s.readSymbol(ctx, peqSlotPath("input", 0, i, "b0"), 4)
		if err != nil {
			t.Fatalf("readSymbol(b0) error = %v", err)
		}
		var f units.Float32LE
		b0, err := f.Decode(data)
		if err != nil {
			t.Fatalf("Decode(b0) error = %v", err)
		}
		if b0 != 1.0 {
			t.Errorf("slot %d b0 = %v, want 1.0 (identity), addr=%d", i, b0, sym.Address)
		}
		bypassData, err := s.readSymbol(ctx, peqSlotPath("input", 0, i, "bypass"), 1)
		if err != nil {
			t.Fatalf("readSymbol(bypass) error = %v", err)
		}
		bypass, err := bypassField().Decode(bypassData[0])
		if err != nil {
			t.Fatalf("Decode(bypass) error = %v", err)
		}
		if bypass {
			t.Errorf("slot %d bypass = true, want false (identity-cleared slots are enabled)", i)
		}
	}
}

func TestGetStatusReadsInputAndOutputLevels(t *testing.T) {
	s, dev := openTestSession(t)
	defer s.Close()
	dev.StartLevelSignal(time.Millisecond, func(channel int, isOutput bool, t time.Duration) float64 {
		if isOutput {
			return -5.0
		}
		return -10.0
	})
	defer dev.StopLevelSignal()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	time.Sleep(5 * time.Millisecond)

	status, err := s.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if len(status.InputLevelsDB) != s.Descriptor().Inputs {
		t.Fatalf("len(InputLevelsDB) = %d, want %d", len(status.InputLevelsDB), s.Descriptor().Inputs)
	}
	if len(status.OutputLevelsDB) != s.Descriptor().Outputs {
		t.Fatalf("len(OutputLevelsDB) = %d, want %d", len(status.OutputLevelsDB), s.Descriptor().Outputs)
	}
	for i, v := range status.InputLevelsDB {
		if v != -10.0 {
			t.Errorf("InputLevelsDB[%d] = %v, want -10.0", i, v)
		}
	}
	for j, v := range status.OutputLevelsDB {
		if v != -5.0 {
			t.Errorf("OutputLevelsDB[%d] = %v, want -5.0", j, v)
		}
	}
}
