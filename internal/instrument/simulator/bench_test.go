package simulator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/roman-kulish/labtool/internal/instrument"
	"github.com/roman-kulish/labtool/internal/instrument/generator"
	"github.com/roman-kulish/labtool/internal/instrument/scope"
)

func resolve(t *testing.T, b *Bench) (*scope.Driver, *generator.Driver) {
	t.Helper()

	ctx := context.Background()
	osc, _, err := scope.NewRegistry().Resolve(ctx, b.Scope())
	if err != nil {
		t.Fatalf("resolving scope: %v", err)
	}
	gen, _, err := generator.NewRegistry().Resolve(ctx, b.Generator())
	if err != nil {
		t.Fatalf("resolving generator: %v", err)
	}
	return osc, gen
}

func TestBench_LowPassAtCutoff(t *testing.T) {
	b := NewBench(WithTransfer(LowPass(1000)))
	osc, gen := resolve(t, b)
	ctx := context.Background()

	steps := []error{
		gen.SetFrequency(ctx, 1000),
		gen.SetAmplitude(ctx, 2),
		gen.SetOutput(ctx, true),
		osc.SetTimebaseRange(ctx, 2e-3),
	}
	if err := errors.Join(steps...); err != nil {
		t.Fatal(err)
	}

	in, err := osc.MeasureVpp(ctx, scope.SourceChannel1)
	if err != nil || in != 2 {
		t.Fatalf("input vpp: %v, %v", in, err)
	}

	ratio, err := osc.MeasureVratio(ctx, scope.SourceChannel2, scope.SourceChannel1)
	if err != nil || math.Abs(ratio+3.0103) > 1e-3 {
		t.Errorf("expected -3.01 dB, got %v (%v)", ratio, err)
	}

	phase, err := osc.MeasurePhase(ctx, scope.SourceChannel2, scope.SourceChannel1)
	if err != nil || math.Abs(phase+45) > 1e-6 {
		t.Errorf("expected -45 degrees, got %v (%v)", phase, err)
	}
}

func TestBench_Saturation(t *testing.T) {
	b := NewBench()
	osc, gen := resolve(t, b)
	ctx := context.Background()

	if err := errors.Join(gen.SetAmplitude(ctx, 5), gen.SetOutput(ctx, true), osc.SetScale(ctx, 1, 0.1)); err != nil {
		t.Fatal(err)
	}

	vpp, err := osc.MeasureVpp(ctx, scope.SourceChannel1)
	if err != nil {
		t.Fatal(err)
	}
	rng, err := osc.Range(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if vpp != rng || rng != 0.8 {
		t.Errorf("expected reading saturated at 0.8, got vpp %v range %v", vpp, rng)
	}
}

func TestBench_PhaseNeedsPeriods(t *testing.T) {
	b := NewBench(WithMinPeriods(4))
	osc, gen := resolve(t, b)
	ctx := context.Background()

	if err := errors.Join(gen.SetFrequency(ctx, 100), gen.SetOutput(ctx, true), osc.SetTimebaseRange(ctx, 0.02)); err != nil {
		t.Fatal(err)
	}

	phase, err := osc.MeasurePhase(ctx, scope.SourceChannel2, scope.SourceChannel1)
	if err != nil || phase < invalidReading {
		t.Errorf("expected an invalid reading with two periods on screen, got %v (%v)", phase, err)
	}

	if err = osc.SetTimebaseRange(ctx, 0.05); err != nil {
		t.Fatal(err)
	}
	phase, err = osc.MeasurePhase(ctx, scope.SourceChannel2, scope.SourceChannel1)
	if err != nil || phase >= 180 || phase <= -180 {
		t.Errorf("expected a valid phase with five periods, got %v (%v)", phase, err)
	}
}

func TestBench_GeneratorState(t *testing.T) {
	b := NewBench()
	_, gen := resolve(t, b)
	ctx := context.Background()

	if err := errors.Join(
		gen.Reset(ctx),
		gen.SetOutputLoad(ctx, generator.HighZ),
		gen.SetPolarity(ctx, generator.PolarityInverted),
		gen.Apply(ctx, generator.WaveformSine, 5000, 1, 0),
	); err != nil {
		t.Fatal(err)
	}

	load, err := gen.OutputLoad(ctx)
	if err != nil || !load.IsHighZ() {
		t.Errorf("expected high-z load, got %v (%v)", load, err)
	}
	polarity, err := gen.Polarity(ctx)
	if err != nil || polarity != generator.PolarityInverted {
		t.Errorf("expected inverted polarity, got %v (%v)", polarity, err)
	}
	if b.frequency != 5000 || b.amplitude != 1 {
		t.Errorf("apply was not honoured: %v Hz, %v Vpp", b.frequency, b.amplitude)
	}
}

func TestBench_Backend(t *testing.T) {
	b := NewBench()
	m := instrument.NewManager(instrument.WithBackend(instrument.InterfaceSim, b.Backend))

	if _, err := m.Open(context.Background(), "SIM::scope"); err != nil {
		t.Errorf("opening scope: %v", err)
	}
	if _, err := m.Open(context.Background(), "SIM::dmm"); !errors.Is(err, instrument.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
}
