// Package plot renders measurement results as two-panel charts, the module
// on top of the phase, over a logarithmic frequency axis
package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/roman-kulish/labtool/internal/bode"
)

var (
	// ErrNoData is returned when a chart has no samples
	ErrNoData = errors.New("no data to plot")

	// ErrInvalidChart is returned for charts that cannot be drawn
	ErrInvalidChart = errors.New("invalid chart")
)

// Panel is one of the two stacked plots of a chart
type Panel struct {
	Label  string
	Values []float64
}

// Chart is a pair of panels sharing a frequency axis
type Chart struct {
	Title     string
	Frequency []float64
	Top       Panel
	Bottom    Panel
}

// BodeChart charts the module in dB and the phase in degrees of a Bode sweep
func BodeChart(title string, samples []bode.Sample) Chart {
	c := Chart{
		Title:  title,
		Top:    Panel{Label: "Module [dB]"},
		Bottom: Panel{Label: "Phase [°]"},
	}
	for _, s := range samples {
		c.Frequency = append(c.Frequency, s.Frequency)
		c.Top.Values = append(c.Top.Values, s.Module)
		c.Bottom.Values = append(c.Bottom.Values, s.Phase)
	}
	return c
}

// ImpedanceChart charts the impedance module in ohms and its phase in degrees
func ImpedanceChart(title string, samples []bode.ImpedanceSample) Chart {
	c := Chart{
		Title:  title,
		Top:    Panel{Label: "Impedance [Ω]"},
		Bottom: Panel{Label: "Phase [°]"},
	}
	for _, s := range samples {
		c.Frequency = append(c.Frequency, s.Frequency)
		c.Top.Values = append(c.Top.Values, s.Module)
		c.Bottom.Values = append(c.Bottom.Values, s.Phase)
	}
	return c
}

func (c *Chart) validate() error {
	if len(c.Frequency) == 0 {
		return ErrNoData
	}
	if len(c.Top.Values) != len(c.Frequency) || len(c.Bottom.Values) != len(c.Frequency) {
		return fmt.Errorf("%w: %d frequencies, %d and %d values", ErrInvalidChart, len(c.Frequency), len(c.Top.Values), len(c.Bottom.Values))
	}
	for _, f := range c.Frequency {
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("%w: frequency %g cannot be drawn on a log axis", ErrInvalidChart, f)
		}
	}
	return nil
}
