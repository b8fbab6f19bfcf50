package generator

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	WaveformSine   Waveform = "sine"
	WaveformSquare Waveform = "square"
	WaveformRamp   Waveform = "ramp"

	PolarityNormal   Polarity = "normal"
	PolarityInverted Polarity = "inverted"

	highZReply = 9.9e37
)

// HighZ is the high-impedance output load
var HighZ = OutputLoad(math.Inf(1))

var validWaveforms = map[Waveform]struct{}{
	WaveformSine:   {},
	WaveformSquare: {},
	WaveformRamp:   {},
}

type Waveform string

func (w Waveform) String() string {
	return string(w)
}

func (w *Waveform) UnmarshalYAML(value *yaml.Node) error {
	v := Waveform(value.Value)
	if _, ok := validWaveforms[v]; !ok {
		return fmt.Errorf("line %d: invalid waveform %q", value.Line, value.Value)
	}
	*w = v
	return nil
}

type Polarity string

func (p Polarity) String() string {
	return string(p)
}

// OutputLoad is the expected load in ohms, HighZ for high impedance
type OutputLoad float64

func (l OutputLoad) IsHighZ() bool {
	return math.IsInf(float64(l), 1)
}

func (l OutputLoad) String() string {
	if l.IsHighZ() {
		return "high-z"
	}
	return strconv.FormatFloat(float64(l), 'g', -1, 64) + " Ω"
}

func (l *OutputLoad) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "high-z" {
		*l = HighZ
		return nil
	}
	ohms, err := strconv.ParseFloat(value.Value, 64)
	if err != nil || ohms <= 0 {
		return fmt.Errorf("line %d: invalid output load %q", value.Line, value.Value)
	}
	*l = OutputLoad(ohms)
	return nil
}
