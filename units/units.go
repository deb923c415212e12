// Package units converts between user-facing logical values (decibels,
// milliseconds, hertz, plain floats) and the on-wire scalar formats the
// devices actually store, per spec.md §4.4.
//
// Every scalar encoding here is total over its defined domain and returns a
// *minidsperr.RangeError (wrapping ErrEncodingRange) outside it, except the
// saturating encodings (Int16Gain, HalfDBByte, Duration) which clamp instead.
package units

import (
	"encoding/binary"
	"math"

	"github.com/minidsp/minidsp-go/minidsperr"
)

// Scalar is a logical<->wire conversion for a single numeric parameter.
type Scalar interface {
	// Size is the number of wire bytes this encoding occupies.
	Size() int
	Encode(logical float64) ([]byte, error)
	Decode(wire []byte) (float64, error)
}

// Float32LE is IEEE-754 finite, 4 bytes little-endian. This is the default
// encoding for most biquad coefficients and bulk meter reads.
type Float32LE struct{}

func (Float32LE) Size() int { return 4 }

func (Float32LE) Encode(logical float64) ([]byte, error) {
	f := float32(logical)
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return nil, &minidsperr.RangeError{Encoding: "Float32LE", Value: logical, Domain: "finite"}
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return b, nil
}

func (Float32LE) Decode(wire []byte) (float64, error) {
	if len(wire) != 4 {
		return 0, &minidsperr.RangeError{Encoding: "Float32LE", Domain: "4 bytes"}
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(wire))), nil
}

// GainTable is the lookup table backing Int16Gain: index i holds the dB
// value represented by i half-dB steps below 0 dB (i.e. table[i] == -float64(i)/2
// for the stock linear table, but products may ship non-linear tables so it
// is carried explicitly per spec.md §4.3's "registry is a generated
// artifact" guidance).
type GainTable []float64

// LinearHalfDBTable builds the stock -0.0..-127.0dB table in 0.5dB steps
// shared by every known product.
func LinearHalfDBTable() GainTable {
	t := make(GainTable, 255)
	for i := range t {
		t[i] = -float64(i) / 2
	}
	return t
}

// Int16Gain encodes a dB value in -127.0..0.0 by quantizing to the nearest
// entry of tbl and storing the index as a 2-byte little-endian integer.
// Out-of-range values saturate to the table's extremes.
type Int16Gain struct {
	Table GainTable
}

func (g Int16Gain) Size() int { return 2 }

func (g Int16Gain) Encode(logical float64) ([]byte, error) {
	idx := g.quantize(logical)
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(idx))
	return b, nil
}

func (g Int16Gain) Decode(wire []byte) (float64, error) {
	if len(wire) != 2 {
		return 0, &minidsperr.RangeError{Encoding: "Int16Gain", Domain: "2 bytes"}
	}
	idx := int(binary.LittleEndian.Uint16(wire))
	if idx < 0 || idx >= len(g.Table) {
		return 0, &minidsperr.RangeError{Encoding: "Int16Gain", Domain: "table index"}
	}
	return g.Table[idx], nil
}

// quantize clamps logical into the table's domain and returns the index of
// its closest entry.
func (g Int16Gain) quantize(logical float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, v := range g.Table {
		d := math.Abs(v - logical)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// HalfDBByte is the 1-byte half-decibel encoding used directly by the
// SetVolume command (spec.md §4.2/§4.4): 0x00..0xFE represents 0..-127 dB.
type HalfDBByte struct{}

func (HalfDBByte) Size() int { return 1 }

func (HalfDBByte) Encode(logical float64) ([]byte, error) {
	if logical > 0 {
		logical = 0
	}
	if logical < -127 {
		logical = -127
	}
	step := int(math.Round(-logical * 2))
	if step > 0xFE {
		step = 0xFE
	}
	return []byte{byte(step)}, nil
}

func (HalfDBByte) Decode(wire []byte) (float64, error) {
	if len(wire) != 1 {
		return 0, &minidsperr.RangeError{Encoding: "HalfDBByte", Domain: "1 byte"}
	}
	return -float64(wire[0]) / 2, nil
}

// Int32Fixed is a Q1.31 big-endian fixed point value in [-1.0, 1.0). Used by
// a small set of legacy fields (spec.md §6).
type Int32Fixed struct{}

func (Int32Fixed) Size() int { return 4 }

const q31One = 1 << 31

func (Int32Fixed) Encode(logical float64) ([]byte, error) {
	if logical < -1.0 || logical >= 1.0 {
		return nil, &minidsperr.RangeError{Encoding: "Int32Fixed", Value: logical, Domain: "[-1.0, 1.0)"}
	}
	scaled := int32(math.Round(logical * q31One))
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(scaled))
	return b, nil
}

func (Int32Fixed) Decode(wire []byte) (float64, error) {
	if len(wire) != 4 {
		return 0, &minidsperr.RangeError{Encoding: "Int32Fixed", Domain: "4 bytes"}
	}
	scaled := int32(binary.BigEndian.Uint32(wire))
	return float64(scaled) / q31One, nil
}

// Duration encodes a millisecond value as a sample count at the device's
// configured rate, saturating at zero.
type Duration struct {
	// SampleRateHz is the device's configured audio rate (48000 or 96000
	// per descriptor).
	SampleRateHz int
}

func (Duration) Size() int { return 4 }

func (d Duration) Encode(logicalMs float64) ([]byte, error) {
	if logicalMs < 0 {
		logicalMs = 0
	}
	samples := uint32(math.Round(logicalMs / 1000 * float64(d.SampleRateHz)))
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, samples)
	return b, nil
}

func (d Duration) Decode(wire []byte) (float64, error) {
	if len(wire) != 4 {
		return 0, &minidsperr.RangeError{Encoding: "Duration", Domain: "4 bytes"}
	}
	samples := binary.LittleEndian.Uint32(wire)
	return float64(samples) / float64(d.SampleRateHz) * 1000, nil
}

// BoolKind selects which pair of on-wire byte values Bool uses.
type BoolKind int

const (
	// BoolSet is the 0x01/0x02 pair used by plain boolean parameters.
	BoolSet BoolKind = iota
	// BoolBypassSet is the 0x03/0x04 pair used by bypass flags.
	BoolBypassSet
)

// Bool encodes a boolean as one of two device-specific byte pairs.
type Bool struct {
	Kind BoolKind
}

func (Bool) Size() int { return 1 }

func (b Bool) Encode(value bool) byte {
	switch b.Kind {
	case BoolBypassSet:
		if value {
			return 0x03
		}
		return 0x04
	default:
		if value {
			return 0x01
		}
		return 0x02
	}
}

func (b Bool) Decode(wire byte) (bool, error) {
	switch b.Kind {
	case BoolBypassSet:
		switch wire {
		case 0x03:
			return true, nil
		case 0x04:
			return false, nil
		}
	default:
		switch wire {
		case 0x01:
			return true, nil
		case 0x02:
			return false, nil
		}
	}
	return false, &minidsperr.RangeError{Encoding: "Bool", Domain: "0x01/0x02/0x03/0x04"}
}

// BiquadCoeffs5 converts a 5-coefficient biquad (b0,b1,b2,a1,a2) to/from its
// 20-byte contiguous Float32LE wire block.
type BiquadCoeffs5 struct{}

func (BiquadCoeffs5) Size() int { return 20 }

func (BiquadCoeffs5) Encode(coeffs [5]float64) ([]byte, error) {
	var f Float32LE
	out := make([]byte, 0, 20)
	for _, c := range coeffs {
		b, err := f.Encode(c)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (BiquadCoeffs5) Decode(wire []byte) ([5]float64, error) {
	var out [5]float64
	if len(wire) != 20 {
		return out, &minidsperr.RangeError{Encoding: "BiquadCoeffs5", Domain: "20 bytes"}
	}
	var f Float32LE
	for i := 0; i < 5; i++ {
		v, err := f.Decode(wire[i*4 : i*4+4])
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

// FirTapBlock converts a slice of FIR taps to/from a contiguous Float32LE
// wire block.
type FirTapBlock struct{}

func (FirTapBlock) EncodeTaps(taps []float64) ([]byte, error) {
	var f Float32LE
	out := make([]byte, 0, len(taps)*4)
	for _, t := range taps {
		b, err := f.Encode(t)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (FirTapBlock) DecodeTaps(wire []byte) ([]float64, error) {
	if len(wire)%4 != 0 {
		return nil, &minidsperr.RangeError{Encoding: "FirTapBlock", Domain: "multiple of 4 bytes"}
	}
	var f Float32LE
	out := make([]float64, len(wire)/4)
	for i := range out {
		v, err := f.Decode(wire[i*4 : i*4+4])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Source is the device input/output source selector.
type Source int

const (
	SourceNotInstalled Source = iota
	SourceAnalog
	SourceToslink
	SourceSpdif
	SourceUsb
	SourceAesEbu
	SourceRca
	SourceXlr
	SourceLan
	SourceI2S
	SourceBluetooth
)

func (s Source) String() string {
	switch s {
	case SourceAnalog:
		return "Analog"
	case SourceToslink:
		return "Toslink"
	case SourceSpdif:
		return "Spdif"
	case SourceUsb:
		return "Usb"
	case SourceAesEbu:
		return "AesEbu"
	case SourceRca:
		return "Rca"
	case SourceXlr:
		return "Xlr"
	case SourceLan:
		return "Lan"
	case SourceI2S:
		return "I2S"
	case SourceBluetooth:
		return "Bluetooth"
	default:
		return "NotInstalled"
	}
}

// SourceTable maps the abstract Source enum to a product-specific wire
// code, since source numbering is not consistent across products (spec.md
// §4.4: "Enum(Source) ... product-dependent code").
type SourceTable map[Source]byte

// Encode returns the wire code for s, or ErrEncodingRange if s is not
// installed on this product.
func (t SourceTable) Encode(s Source) (byte, error) {
	code, ok := t[s]
	if !ok {
		return 0, &minidsperr.RangeError{Encoding: "Enum(Source)", Domain: "declared source"}
	}
	return code, nil
}

// Decode returns the Source for a wire code, or ErrEncodingRange if no
// source in the table maps to it.
func (t SourceTable) Decode(wire byte) (Source, error) {
	for s, code := range t {
		if code == wire {
			return s, nil
		}
	}
	return 0, &minidsperr.RangeError{Encoding: "Enum(Source)", Domain: "declared code"}
}
