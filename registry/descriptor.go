// Package registry is the device spec registry (spec.md §4.3): a
// per-product, pure-data declaration of every addressable parameter's
// symbolic name, firmware address and encoding. Entries are generated-artifact
// shaped — flat maps, no inheritance — standing in for the real codegen step
// that would otherwise turn vendor plugin XML into these tables (no such XML
// is available to this module; see DESIGN.md).
package registry

import (
	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/units"
)

// Kind identifies which concrete on-wire encoding a Symbol uses. This plays
// the role of spec.md's EncodingTag.
type Kind int

const (
	KindFloat32 Kind = iota
	KindGain
	KindFixedQ
	KindBool
	KindBypassBool
	KindEnumSource
	KindDuration
	KindBiquad5
	KindFirBlock
)

// Symbol is one addressable parameter: a canonical symbolic path resolved
// to a firmware address and its encoding.
type Symbol struct {
	Name    string
	Address uint16
	Kind    Kind
}

// FirmwareRange is an inclusive [Min, Max] dsp_version range this
// descriptor is valid for.
type FirmwareRange struct {
	Min, Max byte
}

func (r FirmwareRange) Contains(v byte) bool {
	return v >= r.Min && v <= r.Max
}

// Descriptor is the immutable, process-lifetime record for one supported
// product (spec.md §3 "Product descriptor").
type Descriptor struct {
	Name       string
	HWID       byte
	Firmware   FirmwareRange

	Inputs              int
	Outputs             int
	PEQPerInput          int
	PEQPerOutput         int
	CrossoverGroups      int // per output
	CrossoverBiquadsPerGroup int
	FIRCapacityPerOutput int
	HasCompressor        bool
	Presets              int
	SampleRateHz         int
	SupportsDirac        bool

	Sources     []units.Source
	SourceTable units.SourceTable

	MasterStatusAddress uint16

	// InputLevelAddress/OutputLevelAddress are the base addresses of the
	// contiguous Inputs/Outputs-long float32 blocks get_status (C7) reads
	// in one ReadFloats call each for level metering.
	InputLevelAddress  uint16
	OutputLevelAddress uint16

	symbols map[string]Symbol
}

// Resolve looks up a symbolic path and returns its address and encoding.
// Addressing an undeclared parameter is a programmer error, not a device
// error (spec.md §3 invariants), surfaced as *minidsperr.SymbolError.
func (d *Descriptor) Resolve(path string) (Symbol, error) {
	sym, ok := d.symbols[path]
	if !ok {
		return Symbol{}, &minidsperr.SymbolError{Path: path}
	}
	return sym, nil
}

// MustResolve is a test/demo convenience that panics on an unknown symbol;
// production session code always uses Resolve.
func (d *Descriptor) MustResolve(path string) Symbol {
	sym, err := d.Resolve(path)
	if err != nil {
		panic(err)
	}
	return sym
}

// Symbols returns a defensive copy of every declared symbol, keyed by name,
// for introspection/demos. Being a map, it has no defined order.
func (d *Descriptor) Symbols() map[string]Symbol {
	out := make(map[string]Symbol, len(d.symbols))
	for k, v := range d.symbols {
		out[k] = v
	}
	return out
}

func biquadFieldNames() []string {
	return []string{"b0", "b1", "b2", "a1", "a2"}
}
