package bode

import (
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ScaleLinear Scale = "linear"
	ScaleLog    Scale = "log"
)

var validScales = map[Scale]struct{}{
	ScaleLinear: {},
	ScaleLog:    {},
}

// Scale is the spacing of the swept frequencies
type Scale string

func (s Scale) String() string {
	return string(s)
}

func (s *Scale) UnmarshalYAML(value *yaml.Node) error {
	v := Scale(value.Value)
	if _, ok := validScales[v]; !ok {
		return fmt.Errorf("line %d: invalid scale %q", value.Line, value.Value)
	}
	*s = v
	return nil
}

// Preferences describes one sweep
type Preferences struct {
	// Delay is the settle time after every instrument command
	Delay time.Duration `json:"delay"`

	// StableTime is the settle time between scaling and acquisition
	StableTime time.Duration `json:"stable-time"`

	Scale          Scale   `json:"scale"`
	StartFrequency float64 `json:"start-frequency"`
	StopFrequency  float64 `json:"stop-frequency"`
	Samples        int     `json:"samples"`
}

func (p *Preferences) Validate() error {
	if _, ok := validScales[p.Scale]; !ok {
		return newConfigError("bode.Preferences: invalid scale %q", p.Scale)
	}
	if p.StartFrequency <= 0 {
		return newConfigError("bode.Preferences: start frequency must be positive: %g given", p.StartFrequency)
	}
	if p.StartFrequency >= p.StopFrequency {
		return newConfigError("bode.Preferences: start frequency %g must be below stop frequency %g", p.StartFrequency, p.StopFrequency)
	}
	if p.Samples < 1 {
		return newConfigError("bode.Preferences: samples must be at least 1: %d given", p.Samples)
	}
	if p.Delay < 0 || p.StableTime < 0 {
		return newConfigError("bode.Preferences: delays must not be negative")
	}
	return nil
}

// ComputeFrequency returns the target frequency of a sweep step, for step
// in [0, samples-1]. Linear sweeps are an arithmetic progression from the
// start frequency that stops one increment short of the stop frequency. Log
// sweeps are a geometric sequence spanning both ends.
func ComputeFrequency(step int, p Preferences) float64 {
	start, stop := p.StartFrequency, p.StopFrequency

	switch p.Scale {
	case ScaleLog:
		if p.Samples < 2 {
			return start
		}
		if step == p.Samples-1 {
			return stop
		}
		return start * math.Pow(stop/start, float64(step)/float64(p.Samples-1))

	default:
		return start + (stop-start)*float64(step)/float64(p.Samples)
	}
}
