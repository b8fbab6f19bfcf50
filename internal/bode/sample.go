package bode

import (
	"math"
	"math/cmplx"
)

// OutlierThreshold is the module and phase magnitude above which a sample
// is treated as a failed instrument reading
const OutlierThreshold = 1e3

// Sample is one step of a Bode sweep
type Sample struct {
	Frequency float64 `json:"frequency"`
	InputVpp  float64 `json:"input-vpp"`
	OutputVpp float64 `json:"output-vpp"`

	// Module is the output to input voltage ratio in dB
	Module float64 `json:"bode-module"`

	// Phase is the phase of the output relative to the input in degrees
	Phase float64 `json:"bode-phase"`
}

// ImpedanceSample is one step of an input impedance sweep
type ImpedanceSample struct {
	Frequency    float64 `json:"frequency"`
	GeneratorVpp float64 `json:"generator-vpp"`
	InputVpp     float64 `json:"input-vpp"`
	InputPhase   float64 `json:"input-phase"`
	Module       float64 `json:"impedance-module"`
	Phase        float64 `json:"impedance-phase"`
}

// Filter drops the samples whose module or phase magnitude exceeds
// OutlierThreshold, keeping the order of the rest
func Filter(samples []Sample) []Sample {
	filtered := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if math.Abs(s.Module) > OutlierThreshold || math.Abs(s.Phase) > OutlierThreshold {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// Impedance derives the impedance seen at the input channel of a sweep
// measured with the generator channel as input and a series resistance r.
// The generator voltage is the phase reference.
func Impedance(samples []Sample, r float64) []ImpedanceSample {
	out := make([]ImpedanceSample, 0, len(samples))
	for _, s := range samples {
		vGen := complex(s.InputVpp, 0)
		vIn := cmplx.Rect(s.OutputVpp, s.Phase*math.Pi/180)
		z := vIn * complex(r, 0) / (vGen - vIn)

		out = append(out, ImpedanceSample{
			Frequency:    s.Frequency,
			GeneratorVpp: s.InputVpp,
			InputVpp:     s.OutputVpp,
			InputPhase:   s.Phase,
			Module:       cmplx.Abs(z),
			Phase:        cmplx.Phase(z) * 180 / math.Pi,
		})
	}
	return out
}
