package registry

import "fmt"

// Field byte widths shared by every product's internal layout. Only the
// block *base* addresses differ per product (declared in each product
// file) - the compositional name scheme and its internal strides are the
// same scheme spec.md §4.3 describes for all products.
const (
	sizeGain      = 2  // Int16Gain
	sizeBool      = 1
	sizeDuration  = 4
	sizeFloat     = 4
	sizeBiquad    = 20 // 5 x Float32LE
	sizePEQSlot   = sizeBiquad + sizeBool // coeffs + bypass
	sizeRoutingEntry = sizeBool + sizeGain // enable + gain
	sizeCompressor   = sizeBool + sizeGain + sizeFloat + sizeDuration + sizeDuration
)

// Level-meter blocks sit well above every product's channel/master address
// range (the widest product, C8x12v2, tops out under 0x8D00; master sits at
// 0xFFD8), so a single pair of bases serves every product - unlike the
// per-product channel/master bases, there's no per-product variation to
// declare here.
const (
	levelInputBase  uint16 = 0xF000
	levelOutputBase uint16 = 0xF100
)

// layout describes one product's block base addresses and strides. Bases
// are the only per-product "explicit mapping" inputs; everything else
// below is derived the same way for every product.
type layout struct {
	inputBase   uint16
	inputStride uint16

	outputBase   uint16
	outputStride uint16

	masterBase uint16
}

// build expands d's dimensions (Inputs, Outputs, PEQPerInput, ...) into the
// full compositional symbol table, using l's per-product base addresses.
func build(d *Descriptor, l layout) {
	syms := make(map[string]Symbol)

	for i := 0; i < d.Inputs; i++ {
		base := l.inputBase + uint16(i)*l.inputStride
		offset := uint16(0)

		syms[fmt.Sprintf("input.%d.gain", i)] = Symbol{
			Name: fmt.Sprintf("input.%d.gain", i), Address: base + offset, Kind: KindGain,
		}
		offset += sizeGain

		syms[fmt.Sprintf("input.%d.mute", i)] = Symbol{
			Name: fmt.Sprintf("input.%d.mute", i), Address: base + offset, Kind: KindBool,
		}
		offset += sizeBool

		for k := 0; k < d.PEQPerInput; k++ {
			slotBase := base + offset + uint16(k)*sizePEQSlot
			addPEQSlot(syms, peqPrefix("input", i, k), slotBase)
		}
		offset += uint16(d.PEQPerInput) * sizePEQSlot

		for o := 0; o < d.Outputs; o++ {
			entryBase := base + offset + uint16(o)*sizeRoutingEntry
			syms[fmt.Sprintf("input.%d.routing.%d.enable", i, o)] = Symbol{
				Name: fmt.Sprintf("input.%d.routing.%d.enable", i, o), Address: entryBase, Kind: KindBool,
			}
			syms[fmt.Sprintf("input.%d.routing.%d.gain", i, o)] = Symbol{
				Name: fmt.Sprintf("input.%d.routing.%d.gain", i, o), Address: entryBase + sizeBool, Kind: KindGain,
			}
		}
	}

	for j := 0; j < d.Outputs; j++ {
		base := l.outputBase + uint16(j)*l.outputStride
		offset := uint16(0)

		syms[fmt.Sprintf("output.%d.gain", j)] = Symbol{
			Name: fmt.Sprintf("output.%d.gain", j), Address: base + offset, Kind: KindGain,
		}
		offset += sizeGain

		syms[fmt.Sprintf("output.%d.mute", j)] = Symbol{
			Name: fmt.Sprintf("output.%d.mute", j), Address: base + offset, Kind: KindBool,
		}
		offset += sizeBool

		syms[fmt.Sprintf("output.%d.invert", j)] = Symbol{
			Name: fmt.Sprintf("output.%d.invert", j), Address: base + offset, Kind: KindBool,
		}
		offset += sizeBool

		syms[fmt.Sprintf("output.%d.delay", j)] = Symbol{
			Name: fmt.Sprintf("output.%d.delay", j), Address: base + offset, Kind: KindDuration,
		}
		offset += sizeDuration

		for k := 0; k < d.PEQPerOutput; k++ {
			slotBase := base + offset + uint16(k)*sizePEQSlot
			addPEQSlot(syms, peqPrefix("output", j, k), slotBase)
		}
		offset += uint16(d.PEQPerOutput) * sizePEQSlot

		for g := 0; g < d.CrossoverGroups; g++ {
			for k := 0; k < d.CrossoverBiquadsPerGroup; k++ {
				slotBase := base + offset + uint16(g*d.CrossoverBiquadsPerGroup+k)*sizePEQSlot
				prefix := fmt.Sprintf("output.%d.crossover.%d.%d", j, g, k)
				addPEQSlot(syms, prefix, slotBase)
			}
		}
		offset += uint16(d.CrossoverGroups*d.CrossoverBiquadsPerGroup) * sizePEQSlot

		if d.HasCompressor {
			cBase := base + offset
			syms[fmt.Sprintf("output.%d.compressor.bypass", j)] = Symbol{
				Name: fmt.Sprintf("output.%d.compressor.bypass", j), Address: cBase, Kind: KindBypassBool,
			}
			syms[fmt.Sprintf("output.%d.compressor.threshold", j)] = Symbol{
				Name: fmt.Sprintf("output.%d.compressor.threshold", j), Address: cBase + sizeBool, Kind: KindGain,
			}
			syms[fmt.Sprintf("output.%d.compressor.ratio", j)] = Symbol{
				Name: fmt.Sprintf("output.%d.compressor.ratio", j), Address: cBase + sizeBool + sizeGain, Kind: KindFloat32,
			}
			syms[fmt.Sprintf("output.%d.compressor.attack", j)] = Symbol{
				Name: fmt.Sprintf("output.%d.compressor.attack", j), Address: cBase + sizeBool + sizeGain + sizeFloat, Kind: KindDuration,
			}
			syms[fmt.Sprintf("output.%d.compressor.release", j)] = Symbol{
				Name:    fmt.Sprintf("output.%d.compressor.release", j),
				Address: cBase + sizeBool + sizeGain + sizeFloat + sizeDuration,
				Kind:    KindDuration,
			}
			offset += sizeCompressor
		}

		syms[fmt.Sprintf("output.%d.fir.bypass", j)] = Symbol{
			Name: fmt.Sprintf("output.%d.fir.bypass", j), Address: base + offset, Kind: KindBypassBool,
		}
		syms[fmt.Sprintf("output.%d.fir.taps", j)] = Symbol{
			Name: fmt.Sprintf("output.%d.fir.taps", j), Address: base + offset + sizeBool, Kind: KindFirBlock,
		}
	}

	for i := 0; i < d.Inputs; i++ {
		name := fmt.Sprintf("input.%d.level", i)
		syms[name] = Symbol{Name: name, Address: levelInputBase + uint16(i)*sizeFloat, Kind: KindFloat32}
	}
	for j := 0; j < d.Outputs; j++ {
		name := fmt.Sprintf("output.%d.level", j)
		syms[name] = Symbol{Name: name, Address: levelOutputBase + uint16(j)*sizeFloat, Kind: KindFloat32}
	}
	d.InputLevelAddress = levelInputBase
	d.OutputLevelAddress = levelOutputBase

	syms["master.preset"] = Symbol{Name: "master.preset", Address: l.masterBase + 0, Kind: KindBool}
	syms["master.source"] = Symbol{Name: "master.source", Address: l.masterBase + 1, Kind: KindEnumSource}
	syms["master.volume"] = Symbol{Name: "master.volume", Address: l.masterBase + 2, Kind: KindGain}
	syms["master.mute"] = Symbol{Name: "master.mute", Address: l.masterBase + 3, Kind: KindBool}
	if d.SupportsDirac {
		syms["master.dirac"] = Symbol{Name: "master.dirac", Address: l.masterBase + 8, Kind: KindBypassBool}
	}

	d.MasterStatusAddress = l.masterBase
	d.symbols = syms
}

func peqPrefix(kind string, idx, slot int) string {
	return fmt.Sprintf("%s.%d.peq.%d", kind, idx, slot)
}

func addPEQSlot(syms map[string]Symbol, prefix string, slotBase uint16) {
	for i, field := range biquadFieldNames() {
		name := prefix + "." + field
		syms[name] = Symbol{Name: name, Address: slotBase + uint16(i)*sizeFloat, Kind: KindFloat32}
	}
	bypassName := prefix + ".bypass"
	syms[bypassName] = Symbol{Name: bypassName, Address: slotBase + sizeBiquad, Kind: KindBypassBool}
}
