package registry

import "github.com/minidsp/minidsp-go/units"

// builtins lists every descriptor constructor this module ships, in
// lookup-precedence order: entries with a narrower dsp_version range for a
// given hw_id must precede the wider one for that same hw_id (mirrors the
// match-arm ordering of the reference probe table), and the generic
// fallback is listed last.
var builtins = []func() *Descriptor{
	newM10x10HD,
	newM4x10HD,
	newMSharc4x8,
	newM2x4HD,
	newDDRC24,
	newDDRC88BM,
	newSHD,
	newNanodigi2x8,
	newC8x12v2,
	newM2x4,
	newGeneric,
}

func sourceTable(names ...units.Source) (map[units.Source]byte, []units.Source) {
	t := make(units.SourceTable, len(names))
	for i, s := range names {
		t[s] = byte(i)
	}
	return t, names
}

// newM2x4HD describes the 2x4HD: 2 inputs, 4 outputs, a 10-band PEQ per
// channel, a 2-group/4-biquad-per-group crossover cascade per output, a
// compressor per output and a 4096-tap FIR per output. Dimensions and
// source list are grounded directly on the reference plugin XML mapping
// (minidsp/src/device/specs/m2x4hd/mod.rs: num_inputs=2, num_outputs=4,
// input/output_num_peq=10, two BPF crossover groups, fir_max_taps=4096,
// internal_sampling_rate=96000).
func newM2x4HD() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceToslink, units.SourceUsb)
	d := &Descriptor{
		Name:                     "2x4HD",
		HWID:                     10,
		Firmware:                 FirmwareRange{Min: 100, Max: 100},
		Inputs:                   2,
		Outputs:                  4,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          2,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            false,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0200, outputBase: 0x0800, outputStride: 0x0800, masterBase: 0xFFD8})
	return d
}

// newDDRC24 describes the DDRC-24, the Dirac-Live-capable sibling of the
// 2x4HD hardware family (same hw_id, dsp_version 101 per the reference
// probe table), adding master.dirac.
func newDDRC24() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceToslink, units.SourceUsb)
	d := &Descriptor{
		Name:                     "DDRC-24",
		HWID:                     10,
		Firmware:                 FirmwareRange{Min: 101, Max: 101},
		Inputs:                   2,
		Outputs:                  4,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          2,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            true,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0200, outputBase: 0x0800, outputStride: 0x0800, masterBase: 0xFFD8})
	return d
}

// newM10x10HD describes the 10x10HD: hw_id 1 with dsp_version 51
// specifically (the reference probe table special-cases this combination
// ahead of the wildcard 4x10HD match on the same hw_id).
func newM10x10HD() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceToslink, units.SourceUsb, units.SourceAesEbu)
	d := &Descriptor{
		Name:                     "10x10HD",
		HWID:                     1,
		Firmware:                 FirmwareRange{Min: 51, Max: 51},
		Inputs:                   10,
		Outputs:                  10,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          4,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            false,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0400, outputBase: 0x1800, outputStride: 0x0A00, masterBase: 0xFFD8})
	return d
}

// newM4x10HD describes the 4x10HD: same hw_id as the 10x10HD but any
// dsp_version other than 51 (the reference probe table's wildcard arm).
func newM4x10HD() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceToslink, units.SourceUsb)
	d := &Descriptor{
		Name:                     "4x10HD",
		HWID:                     1,
		Firmware:                 FirmwareRange{Min: 0, Max: 255},
		Inputs:                   4,
		Outputs:                  10,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          4,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            false,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0400, outputBase: 0x1800, outputStride: 0x0A00, masterBase: 0xFFD8})
	return d
}

// newMSharc4x8 describes the msharc4x8, hw_id 4 (wildcard dsp_version in
// the reference probe table).
func newMSharc4x8() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceToslink, units.SourceUsb, units.SourceSpdif)
	d := &Descriptor{
		Name:                     "msharc4x8",
		HWID:                     4,
		Firmware:                 FirmwareRange{Min: 0, Max: 255},
		Inputs:                   4,
		Outputs:                  8,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          4,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            false,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0400, outputBase: 0x1400, outputStride: 0x0A00, masterBase: 0xFFD8})
	return d
}

// newDDRC88BM describes the DDRC-88BM, the Dirac-Live-capable 8x8 unit
// (hw_id 6, dsp_version 95 per the reference probe table).
func newDDRC88BM() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceAesEbu)
	d := &Descriptor{
		Name:                     "DDRC-88BM",
		HWID:                     6,
		Firmware:                 FirmwareRange{Min: 95, Max: 95},
		Inputs:                   8,
		Outputs:                  8,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          4,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            true,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0400, outputBase: 0x1400, outputStride: 0x0A00, masterBase: 0xFFD8})
	return d
}

// newSHD describes the SHD, the streaming-transport 4x4 unit (hw_id 14,
// wildcard dsp_version in the reference probe table).
func newSHD() *Descriptor {
	table, sources := sourceTable(units.SourceUsb, units.SourceLan, units.SourceToslink, units.SourceAnalog)
	d := &Descriptor{
		Name:                     "SHD",
		HWID:                     14,
		Firmware:                 FirmwareRange{Min: 0, Max: 255},
		Inputs:                   4,
		Outputs:                  4,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          2,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            true,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0400, outputBase: 0x1000, outputStride: 0x0A00, masterBase: 0xFFD8})
	return d
}

// newNanodigi2x8 describes the nanoDIGI 2x8: hw_id 2, dsp_version 54 per
// the reference probe table. A simpler distribution unit: no FIR, no
// compressor, fewer PEQ bands per channel.
func newNanodigi2x8() *Descriptor {
	table, sources := sourceTable(units.SourceToslink, units.SourceSpdif, units.SourceUsb)
	d := &Descriptor{
		Name:                     "nanoDIGI 2x8",
		HWID:                     2,
		Firmware:                 FirmwareRange{Min: 54, Max: 54},
		Inputs:                   2,
		Outputs:                  8,
		PEQPerInput:              6,
		PEQPerOutput:             6,
		CrossoverGroups:          1,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     0,
		HasCompressor:            false,
		Presets:                  4,
		SampleRateHz:             48000,
		SupportsDirac:            false,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0200, outputBase: 0x0800, outputStride: 0x0300, masterBase: 0xFFD8})
	return d
}

// newC8x12v2 describes the C8x12v2, hw_id 11 dsp_version 97 per the
// reference probe table: the largest channel count in the catalog.
func newC8x12v2() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceAesEbu, units.SourceUsb)
	d := &Descriptor{
		Name:                     "C8x12v2",
		HWID:                     11,
		Firmware:                 FirmwareRange{Min: 97, Max: 97},
		Inputs:                   8,
		Outputs:                  12,
		PEQPerInput:              10,
		PEQPerOutput:             10,
		CrossoverGroups:          4,
		CrossoverBiquadsPerGroup: 4,
		FIRCapacityPerOutput:     4096,
		HasCompressor:            true,
		Presets:                  4,
		SampleRateHz:             96000,
		SupportsDirac:            false,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0400, outputBase: 0x1C00, outputStride: 0x0A00, masterBase: 0xFFD8})
	return d
}

// newM2x4 describes the M2x4, hw_id 2 dsp_version 22 per the reference
// probe table (marked there as an unconfirmed tuple awaiting
// documentation): an earlier, more constrained 2-in/4-out unit with no
// crossover cascade or FIR path.
func newM2x4() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog, units.SourceToslink)
	d := &Descriptor{
		Name:                     "M2x4",
		HWID:                     2,
		Firmware:                 FirmwareRange{Min: 22, Max: 22},
		Inputs:                   2,
		Outputs:                  4,
		PEQPerInput:              5,
		PEQPerOutput:             5,
		CrossoverGroups:          1,
		CrossoverBiquadsPerGroup: 2,
		FIRCapacityPerOutput:     0,
		HasCompressor:            false,
		Presets:                  3,
		SampleRateHz:             48000,
		SupportsDirac:            false,
		Sources:                  sources,
		SourceTable:              table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0100, outputBase: 0x0400, outputStride: 0x0200, masterBase: 0xFFD8})
	return d
}

// newGeneric is the catch-all descriptor the reference probe table falls
// back to when no (hw_id, dsp_version) combination is recognized. It is
// registered under hw_id 0, which no real device reports, so Registry.Lookup
// never matches it implicitly; session.Open selects it explicitly, via
// Registry.Generic, when called with forceGeneric for an unrecognized unit.
func newGeneric() *Descriptor {
	table, sources := sourceTable(units.SourceAnalog)
	d := &Descriptor{
		Name:          "Generic",
		HWID:          0,
		Firmware:      FirmwareRange{Min: 0, Max: 255},
		Inputs:        2,
		Outputs:       2,
		PEQPerInput:   0,
		PEQPerOutput:  0,
		HasCompressor: false,
		Presets:       1,
		SampleRateHz:  48000,
		SupportsDirac: false,
		Sources:       sources,
		SourceTable:   table,
	}
	build(d, layout{inputBase: 0x0080, inputStride: 0x0100, outputBase: 0x0300, outputStride: 0x0100, masterBase: 0xFFD8})
	return d
}
