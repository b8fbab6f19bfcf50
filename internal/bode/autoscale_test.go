package bode

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/roman-kulish/labtool/internal/instrument/scope"
)

// fakeScope saturates readings at the channel range and only yields a
// valid phase when enough periods are on screen
type fakeScope struct {
	signal   float64
	ranges   map[int]float64
	envelope bool

	frequency  float64
	timebase   float64
	minPeriods float64
	phase      float64

	rangeSet float64
	scales   []float64
}

func (f *fakeScope) MeasureVpp(_ context.Context, source scope.Source) (float64, error) {
	ch, _ := scope.SourceToChannel(source)
	return math.Min(f.signal, f.ranges[ch]), nil
}

func (f *fakeScope) Range(_ context.Context, channel int) (float64, error) {
	return f.ranges[channel], nil
}

func (f *fakeScope) SetRange(_ context.Context, channel int, volts float64) error {
	f.ranges[channel] = volts
	f.rangeSet = volts
	return nil
}

func (f *fakeScope) SetScale(_ context.Context, channel int, volts float64) error {
	f.ranges[channel] = volts * 8
	f.scales = append(f.scales, volts)
	return nil
}

func (f *fakeScope) HasEnvelope() bool {
	return f.envelope
}

func (f *fakeScope) MeasureVmax(ctx context.Context, source scope.Source) (float64, error) {
	vpp, _ := f.MeasureVpp(ctx, source)
	return vpp / 2, nil
}

func (f *fakeScope) MeasureVmin(ctx context.Context, source scope.Source) (float64, error) {
	vpp, _ := f.MeasureVpp(ctx, source)
	return -vpp / 2, nil
}

func (f *fakeScope) MeasurePhase(context.Context, scope.Source, scope.Source) (float64, error) {
	if f.timebase*f.frequency+1e-9 < f.minPeriods {
		return 9.9e37, nil
	}
	return f.phase, nil
}

func (f *fakeScope) SetTimebaseRange(_ context.Context, seconds float64) error {
	f.timebase = seconds
	return nil
}

func TestVerticalScale(t *testing.T) {
	tests := []struct {
		name         string
		signal       float64
		initial      float64
		envelope     bool
		wantAdvances int
		wantScales   []float64
	}{
		{"fits immediately", 1, 20, false, 0, nil},
		{"one advance", 6, 4, false, 1, []float64{1}},
		{"one advance with envelope", 6, 4, true, 1, []float64{1}},
		{"three advances", 30, 4, false, 3, []float64{1, 2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := &fakeScope{signal: tt.signal, ranges: map[int]float64{1: tt.initial}, envelope: tt.envelope}

			advances, err := VerticalScale(context.Background(), osc, scope.SourceChannel1, ScaleLadder)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if advances != tt.wantAdvances {
				t.Errorf("expected %d advances, got %d", tt.wantAdvances, advances)
			}
			if len(osc.scales) != len(tt.wantScales) {
				t.Fatalf("expected scales %v, got %v", tt.wantScales, osc.scales)
			}
			for i := range tt.wantScales {
				if osc.scales[i] != tt.wantScales[i] {
					t.Errorf("expected scales %v, got %v", tt.wantScales, osc.scales)
				}
			}
			if want := tt.signal * (1 + RangeMargin); math.Abs(osc.rangeSet-want) > 1e-9 {
				t.Errorf("expected range %g, got %g", want, osc.rangeSet)
			}
		})
	}
}

func TestVerticalScale_Exhausted(t *testing.T) {
	osc := &fakeScope{signal: 1000, ranges: map[int]float64{2: 4}}

	advances, err := VerticalScale(context.Background(), osc, scope.SourceChannel2, ScaleLadder)
	if !errors.Is(err, ErrVerticalRangeExhausted) {
		t.Fatalf("expected ErrVerticalRangeExhausted, got %v", err)
	}
	if advances != len(ScaleLadder) {
		t.Errorf("expected %d advances, got %d", len(ScaleLadder), advances)
	}
	if osc.rangeSet != 0 {
		t.Errorf("range must not be set on failure, got %g", osc.rangeSet)
	}
}

func TestVerticalScale_NotAChannel(t *testing.T) {
	osc := &fakeScope{signal: 1, ranges: map[int]float64{}}
	if _, err := VerticalScale(context.Background(), osc, scope.SourceExternal, ScaleLadder); err == nil {
		t.Error("expected an error for a non-channel source")
	}
}

func TestHorizontalScale(t *testing.T) {
	tests := []struct {
		name            string
		minPeriods      float64
		wantAdjustments int
	}{
		{"valid at two periods", 2, 0},
		{"needs three periods", 3, 1},
		{"needs five periods", 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := &fakeScope{frequency: 1000, timebase: 2.0 / 1000, minPeriods: tt.minPeriods, phase: -45}

			adjustments, err := HorizontalScale(context.Background(), osc, scope.SourceChannel2, scope.SourceChannel1, 1000, MaxPeriods)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if adjustments != tt.wantAdjustments {
				t.Errorf("expected %d adjustments, got %d", tt.wantAdjustments, adjustments)
			}
		})
	}
}

func TestHorizontalScale_Exhausted(t *testing.T) {
	osc := &fakeScope{frequency: 1000, timebase: 2.0 / 1000, minPeriods: 50}

	adjustments, err := HorizontalScale(context.Background(), osc, scope.SourceChannel2, scope.SourceChannel1, 1000, MaxPeriods)
	if !errors.Is(err, ErrHorizontalRangeExhausted) {
		t.Fatalf("expected ErrHorizontalRangeExhausted, got %v", err)
	}
	if want := MaxPeriods - InitialPeriods + 1; adjustments != want {
		t.Errorf("expected %d adjustments, got %d", want, adjustments)
	}
	if want := float64(MaxPeriods) / 1000; math.Abs(osc.timebase-want) > 1e-12 {
		t.Errorf("expected the widest timebase %g, got %g", want, osc.timebase)
	}
}
