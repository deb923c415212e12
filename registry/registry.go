package registry

import "github.com/minidsp/minidsp-go/minidsperr"

// Registry holds every built-in Descriptor and resolves the
// (hw_id, dsp_version) tuple Probe (C8) reads off the device to one of
// them. Lookup order matters: more specific dsp_version ranges are
// registered before the catch-all range for the same hw_id.
type Registry struct {
	descriptors []*Descriptor
}

// NewRegistry returns a Registry preloaded with every descriptor this
// module ships.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, build := range builtins {
		r.descriptors = append(r.descriptors, build())
	}
	return r
}

// Register adds d to the registry, taking precedence over any builtin
// already registered for the same (hw_id, dsp_version) combination that
// sorts after it. Used by tests and by callers describing a custom unit.
func (r *Registry) Register(d *Descriptor) {
	r.descriptors = append([]*Descriptor{d}, r.descriptors...)
}

// Lookup resolves the hardware identity Probe reads back from the device
// to a Descriptor. Returns *minidsperr.FirmwareError if no registered
// descriptor claims the combination. The Generic descriptor is never
// returned here; only Generic() hands it out.
func (r *Registry) Lookup(hwID, dspVersion byte) (*Descriptor, error) {
	for _, d := range r.descriptors {
		if d.Name == "Generic" {
			continue
		}
		if d.HWID == hwID && d.Firmware.Contains(dspVersion) {
			return d, nil
		}
	}
	return nil, &minidsperr.FirmwareError{HWID: hwID, DSPVersion: dspVersion}
}

// All returns every descriptor currently registered, for introspection.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Generic returns the catch-all descriptor (hw_id 0), for callers that
// explicitly asked Probe to treat an unrecognized unit as generic rather
// than fail with FirmwareError.
func (r *Registry) Generic() (*Descriptor, error) {
	for _, d := range r.descriptors {
		if d.Name == "Generic" {
			return d, nil
		}
	}
	return nil, &minidsperr.FirmwareError{}
}
