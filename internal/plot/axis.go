package plot

import (
	"math"
	"slices"
)

const pixelsPerTick = 50.0

// axis maps values onto the pixel span [lo, hi]. hi may be below lo.
type axis struct {
	min, max float64
	lo, hi   float64
	log      bool
}

func frequencyAxis(frequency []float64, lo, hi int) axis {
	fmin, fmax := slices.Min(frequency), slices.Max(frequency)
	if fmin == fmax {
		fmin, fmax = fmin/math.Sqrt(10), fmax*math.Sqrt(10)
	}
	return axis{min: fmin, max: fmax, lo: float64(lo), hi: float64(hi), log: true}
}

// valueAxis rounds the range of values out to whole ticks and returns the
// axis with its tick step
func valueAxis(values []float64, lo, hi int) (axis, float64) {
	vmin, vmax := finiteRange(values)
	if vmin == vmax {
		vmin, vmax = vmin-1, vmax+1
	}

	step := niceStep(vmax-vmin, int(math.Abs(float64(hi-lo))))
	return axis{
		min: math.Floor(vmin/step) * step,
		max: math.Ceil(vmax/step) * step,
		lo:  float64(lo),
		hi:  float64(hi),
	}, step
}

func finiteRange(values []float64) (float64, float64) {
	vmin, vmax := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		vmin, vmax = math.Min(vmin, v), math.Max(vmax, v)
	}
	if math.IsInf(vmin, 1) {
		return 0, 0
	}
	return vmin, vmax
}

func (a axis) pixel(v float64) float64 {
	var ratio float64
	if a.log {
		ratio = (math.Log10(v) - math.Log10(a.min)) / (math.Log10(a.max) - math.Log10(a.min))
	} else {
		ratio = (v - a.min) / (a.max - a.min)
	}
	return a.lo + ratio*(a.hi-a.lo)
}

// decades returns the powers of ten within the axis
func (a axis) decades() []float64 {
	var ticks []float64
	for k := math.Ceil(math.Log10(a.min)); math.Pow(10, k) <= a.max*(1+1e-9); k++ {
		ticks = append(ticks, math.Pow(10, k))
	}
	if len(ticks) == 0 {
		ticks = []float64{a.min, a.max}
	}
	return ticks
}

// ticks returns the multiples of step within the axis
func (a axis) ticks(step float64) []float64 {
	var ticks []float64
	first, last := int(math.Round(a.min/step)), int(math.Round(a.max/step))
	for i := first; i <= last; i++ {
		ticks = append(ticks, float64(i)*step)
	}
	return ticks
}

// niceStep picks a 1, 2 or 5 times a power of ten step giving roughly one
// tick every pixelsPerTick pixels
func niceStep(span float64, pixels int) float64 {
	target := span / math.Max(1, float64(pixels)/pixelsPerTick)
	magnitude := math.Pow(10, math.Floor(math.Log10(target)))

	for _, m := range []float64{1, 2, 5} {
		if step := m * magnitude; step >= target {
			return step
		}
	}
	return 10 * magnitude
}
