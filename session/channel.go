package session

import (
	"context"
	"fmt"

	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/proto"
	"github.com/minidsp/minidsp-go/units"
)

// PEQDelta sets one PEQ (or crossover) band within an InputDelta/OutputDelta.
type PEQDelta struct {
	Band   int
	Coeffs [5]float64
	Bypass bool
}

// RoutingDelta sets one input->output routing entry within an InputDelta.
type RoutingDelta struct {
	Output int
	Enable bool
	GainDB float64
}

// CrossoverDelta sets one biquad of one crossover group within an
// OutputDelta.
type CrossoverDelta struct {
	Group  int
	Band   int
	Coeffs [5]float64
	Bypass bool
}

// FIRDelta uploads a full FIR tap set within an OutputDelta.
type FIRDelta struct {
	Taps   []float64
	Bypass bool
}

// InputDelta is one input channel's optional changes within a ConfigDelta.
// Any nil pointer field is left untouched; PEQ and Routing entries are
// always applied, in slice order.
type InputDelta struct {
	Index int

	GainDB *float64
	Mute   *bool

	PEQ     []PEQDelta
	Routing []RoutingDelta
}

// OutputDelta is one output channel's optional changes within a ConfigDelta.
// Any nil pointer field is left untouched; PEQ and Crossover entries are
// always applied, in slice order.
type OutputDelta struct {
	Index int

	GainDB  *float64
	Mute    *bool
	Invert  *bool
	DelayMs *float64

	PEQ        []PEQDelta
	Crossover  []CrossoverDelta
	Compressor *CompressorSettings
	FIR        *FIRDelta
}

// applyInputDelta lowers one InputDelta onto in, in the field order an
// apply_config call declares.
func applyInputDelta(ctx context.Context, in *Input, delta InputDelta) error {
	if delta.GainDB != nil {
		if err := in.SetGain(ctx, *delta.GainDB); err != nil {
			return err
		}
	}
	if delta.Mute != nil {
		if err := in.SetMute(ctx, *delta.Mute); err != nil {
			return err
		}
	}
	for _, p := range delta.PEQ {
		if err := in.SetPEQ(ctx, p.Band, p.Coeffs, p.Bypass); err != nil {
			return err
		}
	}
	for _, r := range delta.Routing {
		if err := in.SetRouting(ctx, r.Output, r.Enable, r.GainDB); err != nil {
			return err
		}
	}
	return nil
}

// applyOutputDelta lowers one OutputDelta onto out, in the field order an
// apply_config call declares.
func applyOutputDelta(ctx context.Context, out *Output, delta OutputDelta) error {
	if delta.GainDB != nil {
		if err := out.SetGain(ctx, *delta.GainDB); err != nil {
			return err
		}
	}
	if delta.Mute != nil {
		if err := out.SetMute(ctx, *delta.Mute); err != nil {
			return err
		}
	}
	if delta.Invert != nil {
		if err := out.SetInvert(ctx, *delta.Invert); err != nil {
			return err
		}
	}
	if delta.DelayMs != nil {
		if err := out.SetDelay(ctx, *delta.DelayMs); err != nil {
			return err
		}
	}
	for _, p := range delta.PEQ {
		if err := out.SetPEQ(ctx, p.Band, p.Coeffs, p.Bypass); err != nil {
			return err
		}
	}
	for _, c := range delta.Crossover {
		if err := out.SetCrossoverBiquad(ctx, c.Group, c.Band, c.Coeffs, c.Bypass); err != nil {
			return err
		}
	}
	if delta.Compressor != nil {
		if err := out.SetCompressor(ctx, *delta.Compressor); err != nil {
			return err
		}
	}
	if delta.FIR != nil {
		if err := out.UploadFIR(ctx, delta.FIR.Taps, delta.FIR.Bypass); err != nil {
			return err
		}
	}
	return nil
}

// Input is a scoped handle onto one input channel's parameters.
type Input struct {
	s   *Session
	idx int
}

// Input returns a scoped handle for input channel i (0-based).
func (s *Session) Input(i int) *Input {
	return &Input{s: s, idx: i}
}

// Index is this handle's 0-based input channel number.
func (in *Input) Index() int { return in.idx }

func (in *Input) path(suffix string) string {
	return fmt.Sprintf("input.%d.%s", in.idx, suffix)
}

// SetGain sets this input's gain in decibels.
func (in *Input) SetGain(ctx context.Context, dB float64) error {
	g := gainEncoding()
	b, err := g.Encode(dB)
	if err != nil {
		return err
	}
	return in.s.writeSymbol(ctx, in.path("gain"), b)
}

// SetMute toggles this input's mute.
func (in *Input) SetMute(ctx context.Context, on bool) error {
	return in.s.writeSymbol(ctx, in.path("mute"), []byte{boolField().Encode(on)})
}

// SetRouting sets whether this input feeds output and at what gain.
func (in *Input) SetRouting(ctx context.Context, output int, enable bool, gainDB float64) error {
	enablePath := in.path(fmt.Sprintf("routing.%d.enable", output))
	if err := in.s.writeSymbol(ctx, enablePath, []byte{boolField().Encode(enable)}); err != nil {
		return err
	}
	g := gainEncoding()
	b, err := g.Encode(gainDB)
	if err != nil {
		return err
	}
	return in.s.writeSymbol(ctx, in.path(fmt.Sprintf("routing.%d.gain", output)), b)
}

// SetPEQ writes band's biquad coefficients and bypass flag.
func (in *Input) SetPEQ(ctx context.Context, band int, coeffs [5]float64, bypass bool) error {
	return setPEQ(ctx, in.s, "input", in.idx, band, coeffs, bypass)
}

// NumPEQ returns how many PEQ bands this input has.
func (in *Input) NumPEQ() int { return in.s.desc.PEQPerInput }

// Output is a scoped handle onto one output channel's parameters.
type Output struct {
	s   *Session
	idx int
}

// Output returns a scoped handle for output channel j (0-based).
func (s *Session) Output(j int) *Output {
	return &Output{s: s, idx: j}
}

// Index is this handle's 0-based output channel number.
func (out *Output) Index() int { return out.idx }

func (out *Output) path(suffix string) string {
	return fmt.Sprintf("output.%d.%s", out.idx, suffix)
}

// SetGain sets this output's gain in decibels.
func (out *Output) SetGain(ctx context.Context, dB float64) error {
	g := gainEncoding()
	b, err := g.Encode(dB)
	if err != nil {
		return err
	}
	return out.s.writeSymbol(ctx, out.path("gain"), b)
}

// SetMute toggles this output's mute.
func (out *Output) SetMute(ctx context.Context, on bool) error {
	return out.s.writeSymbol(ctx, out.path("mute"), []byte{boolField().Encode(on)})
}

// SetInvert toggles this output's polarity.
func (out *Output) SetInvert(ctx context.Context, on bool) error {
	return out.s.writeSymbol(ctx, out.path("invert"), []byte{boolField().Encode(on)})
}

// SetDelay sets this output's delay in milliseconds.
func (out *Output) SetDelay(ctx context.Context, ms float64) error {
	d := units.Duration{SampleRateHz: out.s.desc.SampleRateHz}
	b, err := d.Encode(ms)
	if err != nil {
		return err
	}
	return out.s.writeSymbol(ctx, out.path("delay"), b)
}

// SetPEQ writes band's biquad coefficients and bypass flag.
func (out *Output) SetPEQ(ctx context.Context, band int, coeffs [5]float64, bypass bool) error {
	return setPEQ(ctx, out.s, "output", out.idx, band, coeffs, bypass)
}

// NumPEQ returns how many PEQ bands this output has.
func (out *Output) NumPEQ() int { return out.s.desc.PEQPerOutput }

// SetCrossoverBiquad writes one biquad of crossover group's cascade.
func (out *Output) SetCrossoverBiquad(ctx context.Context, group, band int, coeffs [5]float64, bypass bool) error {
	if group >= out.s.desc.CrossoverGroups || band >= out.s.desc.CrossoverBiquadsPerGroup {
		return &minidsperr.SymbolError{Path: fmt.Sprintf("output.%d.crossover.%d.%d", out.idx, group, band)}
	}
	prefix := fmt.Sprintf("output.%d.crossover.%d", out.idx, group)
	return setPEQ(ctx, out.s, prefix, -1, band, coeffs, bypass)
}

// CompressorSettings are the five compressor parameters an output exposes.
type CompressorSettings struct {
	Bypass       bool
	ThresholdDB  float64
	Ratio        float64
	AttackMs     float64
	ReleaseMs    float64
}

// SetCompressor writes every compressor field for this output. Returns
// *minidsperr.SymbolError if the descriptor declares no compressor.
func (out *Output) SetCompressor(ctx context.Context, c CompressorSettings) error {
	if !out.s.desc.HasCompressor {
		return &minidsperr.SymbolError{Path: out.path("compressor")}
	}
	if err := out.s.writeSymbol(ctx, out.path("compressor.bypass"), []byte{bypassField().Encode(c.Bypass)}); err != nil {
		return err
	}
	g := gainEncoding()
	thresholdBytes, err := g.Encode(c.ThresholdDB)
	if err != nil {
		return err
	}
	if err := out.s.writeSymbol(ctx, out.path("compressor.threshold"), thresholdBytes); err != nil {
		return err
	}
	var f units.Float32LE
	ratioBytes, err := f.Encode(c.Ratio)
	if err != nil {
		return err
	}
	if err := out.s.writeSymbol(ctx, out.path("compressor.ratio"), ratioBytes); err != nil {
		return err
	}
	dur := units.Duration{SampleRateHz: out.s.desc.SampleRateHz}
	attackBytes, err := dur.Encode(c.AttackMs)
	if err != nil {
		return err
	}
	if err := out.s.writeSymbol(ctx, out.path("compressor.attack"), attackBytes); err != nil {
		return err
	}
	releaseBytes, err := dur.Encode(c.ReleaseMs)
	if err != nil {
		return err
	}
	return out.s.writeSymbol(ctx, out.path("compressor.release"), releaseBytes)
}

// UploadFIR chunks and writes taps to this output's FIR tap store and sets
// its bypass flag. Returns *minidsperr.SymbolError if the descriptor
// declares no FIR capacity, and *minidsperr.RangeError if taps exceeds it.
func (out *Output) UploadFIR(ctx context.Context, taps []float64, bypass bool) error {
	if out.s.desc.FIRCapacityPerOutput == 0 {
		return &minidsperr.SymbolError{Path: out.path("fir.taps")}
	}
	if len(taps) > out.s.desc.FIRCapacityPerOutput {
		return &minidsperr.RangeError{Encoding: "FirTapBlock", Value: float64(len(taps)), Domain: fmt.Sprintf("<= %d taps", out.s.desc.FIRCapacityPerOutput)}
	}
	sym, err := out.s.desc.Resolve(out.path("fir.taps"))
	if err != nil {
		return err
	}
	cmd := proto.WriteFirTaps{Address: sym.Address, Taps: taps}
	chunks, err := cmd.EncodeChunks()
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if _, err := out.s.mx.Send(ctx, chunk.EncodePayload()); err != nil {
			return err
		}
	}
	return out.s.writeSymbol(ctx, out.path("fir.bypass"), []byte{bypassField().Encode(bypass)})
}

// ImportPEQWarning reports that a PEQ import supplied more bands than the
// target channel declares; the extra bands were dropped.
type ImportPEQWarning struct {
	Supplied int
	Applied  int
}

func (w *ImportPEQWarning) Error() string {
	return fmt.Sprintf("minidsp: PEQ import supplied %d bands, channel only has %d; truncated", w.Supplied, w.Applied)
}

// peqTarget is satisfied by both Input and Output, letting ImportPEQ work
// against either without duplicating its loop.
type peqTarget interface {
	NumPEQ() int
	SetPEQ(ctx context.Context, band int, coeffs [5]float64, bypass bool) error
}

// identityPEQ is the coefficient set a cleared PEQ slot carries: unity gain,
// no filtering, passed straight through.
var identityPEQ = [5]float64{1, 0, 0, 0, 0}

// ImportPEQ writes bands in order starting at band 0, enabling each (bypass
// = false). If bands supplies more entries than the target's PEQPerInput/
// PEQPerOutput, the extras are truncated and a non-nil
// *ImportPEQWarning is returned alongside a nil error - the import still
// fully applies what it could. Any slot beyond the supplied bands (up to the
// target's full capacity) is cleared to the identity biquad with bypass =
// false, so a shorter import always leaves the channel in a fully-defined
// state rather than mixing new and stale coefficients.
func ImportPEQ(ctx context.Context, target peqTarget, bands [][5]float64) (*ImportPEQWarning, error) {
	capacity := target.NumPEQ()
	applied := len(bands)
	var warning *ImportPEQWarning
	if applied > capacity {
		warning = &ImportPEQWarning{Supplied: applied, Applied: capacity}
		applied = capacity
	}
	for i := 0; i < applied; i++ {
		if err := target.SetPEQ(ctx, i, bands[i], false); err != nil {
			return nil, err
		}
	}
	for i := applied; i < capacity; i++ {
		if err := target.SetPEQ(ctx, i, identityPEQ, false); err != nil {
			return nil, err
		}
	}
	return warning, nil
}

// setPEQ is shared by Input.SetPEQ, Output.SetPEQ and
// Output.SetCrossoverBiquad: idx < 0 means prefix already names the full
// channel-scoped path (used for crossover groups, which nest one level
// deeper than plain input/output PEQ).
func setPEQ(ctx context.Context, s *Session, prefix string, idx, band int, coeffs [5]float64, bypass bool) error {
	var coeffPath, bypassPath string
	if idx < 0 {
		coeffPath = fmt.Sprintf("%s.%d.b0", prefix, band)
		bypassPath = fmt.Sprintf("%s.%d.bypass", prefix, band)
	} else {
		coeffPath = peqSlotPath(prefix, idx, band, "b0")
		bypassPath = peqSlotPath(prefix, idx, band, "bypass")
	}

	sym, err := s.desc.Resolve(coeffPath)
	if err != nil {
		return err
	}
	payload, err := (proto.WriteBiquad{Address: sym.Address, Coeffs: coeffs}).EncodePayload()
	if err != nil {
		return err
	}
	if _, err := s.mx.Send(ctx, payload); err != nil {
		return err
	}
	return s.writeSymbol(ctx, bypassPath, []byte{bypassField().Encode(bypass)})
}
