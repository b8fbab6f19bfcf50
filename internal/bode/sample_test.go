package bode

import (
	"math"
	"math/cmplx"
	"reflect"
	"testing"
)

func TestFilter(t *testing.T) {
	samples := []Sample{
		{Frequency: 10, Module: -0.1, Phase: -1},
		{Frequency: 20, Module: 9.9e37, Phase: -2},
		{Frequency: 30, Module: -3, Phase: -45},
		{Frequency: 40, Module: -6, Phase: 9.9e37},
		{Frequency: 50, Module: -2000, Phase: 0},
		{Frequency: 60, Module: -20, Phase: -84},
	}

	filtered := Filter(samples)

	want := []float64{10, 30, 60}
	if len(filtered) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(filtered))
	}
	for i, f := range want {
		if filtered[i].Frequency != f {
			t.Errorf("sample %d: expected frequency %g, got %g", i, f, filtered[i].Frequency)
		}
	}

	if again := Filter(filtered); !reflect.DeepEqual(again, filtered) {
		t.Errorf("filtering twice changed the result: %v", again)
	}
}

func TestImpedance(t *testing.T) {
	s := Sample{Frequency: 1000, InputVpp: 1, OutputVpp: 0.5, Phase: -30}
	const r = 1000.0

	got := Impedance([]Sample{s}, r)
	if len(got) != 1 {
		t.Fatalf("expected one sample, got %d", len(got))
	}

	vIn := cmplx.Rect(0.5, -30*math.Pi/180)
	z := vIn * r / (1 - vIn)

	if math.Abs(got[0].Module-cmplx.Abs(z)) > 1e-9 {
		t.Errorf("expected module %g, got %g", cmplx.Abs(z), got[0].Module)
	}
	if want := cmplx.Phase(z) * 180 / math.Pi; math.Abs(got[0].Phase-want) > 1e-9 {
		t.Errorf("expected phase %g, got %g", want, got[0].Phase)
	}
	if math.Abs(got[0].Module-806.898) > 1e-3 || math.Abs(got[0].Phase+53.794) > 1e-3 {
		t.Errorf("unexpected impedance %g ohm at %g degrees", got[0].Module, got[0].Phase)
	}

	if got[0].GeneratorVpp != 1 || got[0].InputVpp != 0.5 || got[0].InputPhase != -30 || got[0].Frequency != 1000 {
		t.Errorf("source readings not carried over: %+v", got[0])
	}
}

func TestImpedance_PureResistance(t *testing.T) {
	// equal resistors halve the generator voltage with no phase shift
	got := Impedance([]Sample{{Frequency: 100, InputVpp: 2, OutputVpp: 1}}, 470)

	if math.Abs(got[0].Module-470) > 1e-9 || math.Abs(got[0].Phase) > 1e-9 {
		t.Errorf("expected 470 ohm at 0 degrees, got %g at %g", got[0].Module, got[0].Phase)
	}
}
