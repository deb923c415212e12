package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minidsp/minidsp-go/minidsperr"
)

func TestLookupResolvesKnownTuples(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		hwID, dsp byte
		want      string
	}{
		{10, 100, "2x4HD"},
		{10, 101, "DDRC-24"},
		{1, 51, "10x10HD"},
		{1, 7, "4x10HD"},
		{4, 3, "msharc4x8"},
		{6, 95, "DDRC-88BM"},
		{14, 9, "SHD"},
		{2, 54, "nanoDIGI 2x8"},
		{11, 97, "C8x12v2"},
		{2, 22, "M2x4"},
	}
	for _, tc := range cases {
		d, err := r.Lookup(tc.hwID, tc.dsp)
		if err != nil {
			t.Errorf("Lookup(%d, %d) error = %v", tc.hwID, tc.dsp, err)
			continue
		}
		if d.Name != tc.want {
			t.Errorf("Lookup(%d, %d) = %s, want %s", tc.hwID, tc.dsp, d.Name, tc.want)
		}
	}
}

func TestLookupUnknownTupleFails(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup(99, 1)
	if !errors.Is(err, minidsperr.ErrUnsupportedFirmware) {
		t.Fatalf("Lookup() error = %v, want ErrUnsupportedFirmware", err)
	}
}

func TestM10x10HDTakesPrecedenceOverM4x10HDWildcard(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup(1, 51)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if d.Name != "10x10HD" {
		t.Errorf("Lookup(1, 51) = %s, want 10x10HD (narrower range must win over 4x10HD wildcard)", d.Name)
	}
}

func TestGenericNeverMatchesImplicitly(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup(0, 0)
	if err == nil {
		t.Fatal("Lookup(0, 0) unexpectedly succeeded; hw_id 0 must only be reachable via Generic()")
	}
	d, err := r.Generic()
	if err != nil {
		t.Fatalf("Generic() error = %v", err)
	}
	if d.Name != "Generic" {
		t.Errorf("Generic() = %s, want Generic", d.Name)
	}
}

func TestDescriptorSymbolTableCoversEveryChannel(t *testing.T) {
	r := NewRegistry()
	d, err := r.Lookup(10, 100)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	for i := 0; i < d.Inputs; i++ {
		if _, err := d.Resolve(fmt.Sprintf("input.%d.gain", i)); err != nil {
			t.Errorf("Resolve(input.%d.gain) error = %v", i, err)
		}
	}
	for j := 0; j < d.Outputs; j++ {
		if _, err := d.Resolve(fmt.Sprintf("output.%d.fir.taps", j)); err != nil {
			t.Errorf("Resolve(output.%d.fir.taps) error = %v", j, err)
		}
	}
	if _, err := d.Resolve("master.volume"); err != nil {
		t.Errorf("Resolve(master.volume) error = %v", err)
	}
}

func TestResolveUnknownSymbolFails(t *testing.T) {
	r := NewRegistry()
	d, _ := r.Lookup(10, 100)
	_, err := d.Resolve("input.99.gain")
	if !errors.Is(err, minidsperr.ErrUnknownSymbol) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownSymbol", err)
	}
}
