package scope

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	SourceChannel1 Source = "channel-1"
	SourceChannel2 Source = "channel-2"
	SourceChannel3 Source = "channel-3"
	SourceChannel4 Source = "channel-4"
	SourceExternal Source = "external"
	SourceLine     Source = "line"
	SourceMath     Source = "math"
	SourceFunction Source = "function"

	CouplingAC Coupling = "ac"
	CouplingDC Coupling = "dc"

	AcquireNormal         AcquireMode = "normal"
	AcquireAverage        AcquireMode = "average"
	AcquireHighResolution AcquireMode = "high-resolution"
	AcquirePeakDetect     AcquireMode = "peak-detect"

	TimebaseMain    TimebaseMode = "main"
	TimebaseDelayed TimebaseMode = "delayed"
	TimebaseXY      TimebaseMode = "xy"
	TimebaseRoll    TimebaseMode = "roll"

	TriggerEdge TriggerMode = "edge"

	SweepAuto   TriggerSweep = "auto"
	SweepNormal TriggerSweep = "normal"

	SlopeNegative  TriggerSlope = "negative"
	SlopePositive  TriggerSlope = "positive"
	SlopeEither    TriggerSlope = "either"
	SlopeAlternate TriggerSlope = "alternate"

	// Channels is the number of analog input channels
	Channels = 4
)

var (
	validSources = map[Source]struct{}{
		SourceChannel1: {},
		SourceChannel2: {},
		SourceChannel3: {},
		SourceChannel4: {},
		SourceExternal: {},
		SourceLine:     {},
		SourceMath:     {},
		SourceFunction: {},
	}

	validCouplings = map[Coupling]struct{}{
		CouplingAC: {},
		CouplingDC: {},
	}

	validAcquireModes = map[AcquireMode]struct{}{
		AcquireNormal:         {},
		AcquireAverage:        {},
		AcquireHighResolution: {},
		AcquirePeakDetect:     {},
	}

	validTimebaseModes = map[TimebaseMode]struct{}{
		TimebaseMain:    {},
		TimebaseDelayed: {},
		TimebaseXY:      {},
		TimebaseRoll:    {},
	}

	validTriggerModes = map[TriggerMode]struct{}{
		TriggerEdge: {},
	}

	validTriggerSweeps = map[TriggerSweep]struct{}{
		SweepAuto:   {},
		SweepNormal: {},
	}

	validTriggerSlopes = map[TriggerSlope]struct{}{
		SlopeNegative:  {},
		SlopePositive:  {},
		SlopeEither:    {},
		SlopeAlternate: {},
	}

	numberedSources = [Channels]Source{SourceChannel1, SourceChannel2, SourceChannel3, SourceChannel4}
)

// Source is a signal source of the oscilloscope
type Source string

func (s Source) String() string {
	return string(s)
}

func (s *Source) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalEnum(value, s, validSources)
}

// SourceToChannel returns the hardware channel number of a source, or false
// for sources that are not numbered channels.
func SourceToChannel(s Source) (int, bool) {
	for i, src := range numberedSources {
		if src == s {
			return i + 1, true
		}
	}
	return 0, false
}

// ChannelToSource is the inverse of SourceToChannel
func ChannelToSource(channel int) (Source, bool) {
	if channel < 1 || channel > Channels {
		return "", false
	}
	return numberedSources[channel-1], true
}

type Coupling string

func (c Coupling) String() string {
	return string(c)
}

func (c *Coupling) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalEnum(value, c, validCouplings)
}

type AcquireMode string

func (m AcquireMode) String() string {
	return string(m)
}

func (m *AcquireMode) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalEnum(value, m, validAcquireModes)
}

type TimebaseMode string

func (m TimebaseMode) String() string {
	return string(m)
}

func (m *TimebaseMode) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalEnum(value, m, validTimebaseModes)
}

type TriggerMode string

func (m TriggerMode) String() string {
	return string(m)
}

func (m *TriggerMode) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalEnum(value, m, validTriggerModes)
}

type TriggerSweep string

func (s TriggerSweep) String() string {
	return string(s)
}

func (s *TriggerSweep) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalEnum(value, s, validTriggerSweeps)
}

type TriggerSlope string

func (s TriggerSlope) String() string {
	return string(s)
}

func (s *TriggerSlope) UnmarshalYAML(value *yaml.Node) error {
	return unmarshalEnum(value, s, validTriggerSlopes)
}

func unmarshalEnum[T ~string](value *yaml.Node, dst *T, valid map[T]struct{}) error {
	v := T(value.Value)
	if _, ok := valid[v]; !ok {
		return fmt.Errorf("line %d: invalid value %q", value.Line, value.Value)
	}
	*dst = v
	return nil
}
