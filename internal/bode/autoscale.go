package bode

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/roman-kulish/labtool/internal/instrument/scope"
)

const (
	// RangeMargin is the headroom left above the measured amplitude
	RangeMargin = 0.1

	// InitialPeriods is the first number of periods tried by the horizontal scaling
	InitialPeriods = 3

	// MaxPeriods bounds the horizontal scaling
	MaxPeriods = 20
)

// ScaleLadder is the ordered list of vertical scales tried, in volts per division
var ScaleLadder = []float64{1, 2, 5, 10, 20, 50}

var (
	// ErrVerticalRangeExhausted is returned when no vertical scale fits the signal
	ErrVerticalRangeExhausted = errors.New("vertical autoscale exhausted the scale ladder")

	// ErrHorizontalRangeExhausted is returned when no timebase gives a valid phase reading
	ErrHorizontalRangeExhausted = errors.New("horizontal autoscale exhausted the timebase candidates")
)

// VerticalScaler is the part of an oscilloscope used by VerticalScale
type VerticalScaler interface {
	MeasureVpp(ctx context.Context, source scope.Source) (float64, error)
	Range(ctx context.Context, channel int) (float64, error)
	SetRange(ctx context.Context, channel int, volts float64) error
	SetScale(ctx context.Context, channel int, volts float64) error
}

// EnvelopeMeter is implemented by oscilloscopes that measure the signal
// maximum and minimum. HasEnvelope may report false for models without them.
type EnvelopeMeter interface {
	HasEnvelope() bool
	MeasureVmax(ctx context.Context, source scope.Source) (float64, error)
	MeasureVmin(ctx context.Context, source scope.Source) (float64, error)
}

// HorizontalScaler is the part of an oscilloscope used by HorizontalScale
type HorizontalScaler interface {
	MeasurePhase(ctx context.Context, target, reference scope.Source) (float64, error)
	SetTimebaseRange(ctx context.Context, seconds float64) error
}

// envelope returns the largest of the peak-to-peak, maximum and minimum
// magnitudes. Only the peak-to-peak reading is mandatory.
func envelope(ctx context.Context, osc VerticalScaler, source scope.Source) (float64, error) {
	vpp, err := osc.MeasureVpp(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("measuring Vpp: %w", err)
	}

	em, ok := osc.(EnvelopeMeter)
	if !ok || !em.HasEnvelope() {
		return vpp, nil
	}

	vmax, err := em.MeasureVmax(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("measuring Vmax: %w", err)
	}
	vmin, err := em.MeasureVmin(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("measuring Vmin: %w", err)
	}
	return math.Max(vpp, math.Max(math.Abs(vmax), math.Abs(vmin))), nil
}

// VerticalScale steps the channel through ladder until the signal fits in
// the vertical range, then sets the range to the signal amplitude plus
// RangeMargin. It returns the number of ladder steps taken.
func VerticalScale(ctx context.Context, osc VerticalScaler, source scope.Source, ladder []float64) (int, error) {
	channel, ok := scope.SourceToChannel(source)
	if !ok {
		return 0, fmt.Errorf("vertical scale: %q is not an analog channel", source)
	}

	for advances := 0; ; advances++ {
		signal, err := envelope(ctx, osc, source)
		if err != nil {
			return advances, err
		}
		current, err := osc.Range(ctx, channel)
		if err != nil {
			return advances, fmt.Errorf("reading range: %w", err)
		}

		if signal < current {
			vpp, err := osc.MeasureVpp(ctx, source)
			if err != nil {
				return advances, fmt.Errorf("measuring Vpp: %w", err)
			}
			if err = osc.SetRange(ctx, channel, vpp*(1+RangeMargin)); err != nil {
				return advances, fmt.Errorf("setting range: %w", err)
			}
			return advances, nil
		}

		if advances >= len(ladder) {
			return advances, fmt.Errorf("%w: %s reads %g V with range %g V", ErrVerticalRangeExhausted, source, signal, current)
		}
		if err = osc.SetScale(ctx, channel, ladder[advances]); err != nil {
			return advances, fmt.Errorf("setting scale: %w", err)
		}
	}
}

// HorizontalScale widens the timebase one period at a time, starting at
// InitialPeriods, until the phase of output against input reads strictly
// within (-180, 180) degrees. It returns the number of adjustments made.
func HorizontalScale(ctx context.Context, osc HorizontalScaler, output, input scope.Source, frequency float64, maxPeriods int) (int, error) {
	periods := InitialPeriods

	for adjustments := 0; ; adjustments++ {
		phase, err := osc.MeasurePhase(ctx, output, input)
		if err != nil {
			return adjustments, fmt.Errorf("measuring phase: %w", err)
		}
		if -180 < phase && phase < 180 {
			return adjustments, nil
		}

		if periods > maxPeriods {
			return adjustments, fmt.Errorf("%w: phase reads %g at %d periods", ErrHorizontalRangeExhausted, phase, periods-1)
		}
		if err = osc.SetTimebaseRange(ctx, float64(periods)/frequency); err != nil {
			return adjustments, fmt.Errorf("setting timebase range: %w", err)
		}
		periods++
	}
}
