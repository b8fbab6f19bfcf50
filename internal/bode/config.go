package bode

import (
	"fmt"
	"strings"
	"time"

	"github.com/roman-kulish/labtool/internal/instrument"
	"github.com/roman-kulish/labtool/internal/instrument/scope"
)

const (
	ModeBode      Mode = "bode"
	ModeImpedance Mode = "impedance"
)

// Mode selects what a measurement reports
type Mode string

func (m Mode) String() string {
	return string(m)
}

func newConfigError(format string, args ...any) error {
	return instrument.NewConfigError(fmt.Sprintf(format, args...))
}

// Requirements selects the scope channels used by a measurement. Bode
// measurements use the input and output channels, impedance measurements
// use the generator and input channels and the series resistance.
type Requirements struct {
	InputChannel     *scope.Source `yaml:"input-channel" json:"input-channel,omitempty"`
	OutputChannel    *scope.Source `yaml:"output-channel" json:"output-channel,omitempty"`
	GeneratorChannel *scope.Source `yaml:"generator-channel" json:"generator-channel,omitempty"`
	Resistance       *float64      `yaml:"resistance" json:"resistance,omitempty"`
}

type GeneratorSetup struct {
	Amplitude *float64 `yaml:"amplitude" json:"amplitude,omitempty"`
}

// PreferencesSetup holds the sweep preferences as configured. Every key is
// required.
type PreferencesSetup struct {
	Delay          *float64 `yaml:"delay"`
	StableTime     *float64 `yaml:"stable-time"`
	Scale          *Scale   `yaml:"scale"`
	StartFrequency *float64 `yaml:"start-frequency"`
	StopFrequency  *float64 `yaml:"stop-frequency"`
	Samples        *int     `yaml:"samples"`
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Preferences checks that every key is present and converts the setup
func (s PreferencesSetup) Preferences() (Preferences, error) {
	var missing []string
	for _, key := range []struct {
		name    string
		present bool
	}{
		{"delay", s.Delay != nil},
		{"stable-time", s.StableTime != nil},
		{"scale", s.Scale != nil},
		{"start-frequency", s.StartFrequency != nil},
		{"stop-frequency", s.StopFrequency != nil},
		{"samples", s.Samples != nil},
	} {
		if !key.present {
			missing = append(missing, key.name)
		}
	}
	if len(missing) > 0 {
		return Preferences{}, newConfigError("bode.Preferences: missing required keys: %s", strings.Join(missing, ", "))
	}

	p := Preferences{
		Delay:          seconds(*s.Delay),
		StableTime:     seconds(*s.StableTime),
		Scale:          *s.Scale,
		StartFrequency: *s.StartFrequency,
		StopFrequency:  *s.StopFrequency,
		Samples:        *s.Samples,
	}
	return p, p.Validate()
}

// Setup is the complete configuration of a measurement as read from a file
type Setup struct {
	Requirements Requirements        `yaml:"requirements"`
	Channel      scope.ChannelSetup  `yaml:"channel"`
	Trigger      scope.TriggerSetup  `yaml:"trigger"`
	Timebase     scope.TimebaseSetup `yaml:"timebase"`
	Acquire      scope.AcquireSetup  `yaml:"acquire"`
	Generator    GeneratorSetup      `yaml:"generator"`
	Preferences  PreferencesSetup    `yaml:"preferences"`
}

func ptr[T any](v T) *T {
	return &v
}

// DefaultSetup returns a setup with the usual channel, acquire and timebase
// settings. Requirements, generator and preferences are left empty.
func DefaultSetup() Setup {
	return Setup{
		Channel: scope.ChannelSetup{
			Range:   ptr(20.0),
			Offset:  ptr(0.0),
			Display: ptr(true),
		},
		Acquire: scope.AcquireSetup{
			Mode:         ptr(scope.AcquireAverage),
			AverageCount: ptr(2),
		},
		Timebase: scope.TimebaseSetup{
			Mode: ptr(scope.TimebaseMain),
		},
	}
}

// Bode builds a validated Bode measurement configuration
func (s Setup) Bode() (Config, error) {
	if s.Requirements.InputChannel == nil || s.Requirements.OutputChannel == nil {
		return Config{}, newConfigError("bode.Setup: input-channel and output-channel are required")
	}
	return s.config(ModeBode, *s.Requirements.InputChannel, *s.Requirements.OutputChannel, 0)
}

// Impedance builds a validated impedance measurement configuration. The
// generator channel is measured as input and the input channel as output.
func (s Setup) Impedance() (Config, error) {
	r := s.Requirements
	if r.GeneratorChannel == nil || r.InputChannel == nil || r.Resistance == nil {
		return Config{}, newConfigError("bode.Setup: generator-channel, input-channel and resistance are required")
	}
	return s.config(ModeImpedance, *r.GeneratorChannel, *r.InputChannel, *r.Resistance)
}

func (s Setup) config(mode Mode, input, output scope.Source, resistance float64) (Config, error) {
	if s.Generator.Amplitude == nil {
		return Config{}, newConfigError("bode.Setup: generator amplitude is required")
	}

	prefs, err := s.Preferences.Preferences()
	if err != nil {
		return Config{}, err
	}

	c := Config{
		Mode:          mode,
		InputChannel:  input,
		OutputChannel: output,
		Resistance:    resistance,
		Channel:       s.Channel,
		Trigger:       s.Trigger,
		Timebase:      s.Timebase,
		Acquire:       s.Acquire,
		Amplitude:     *s.Generator.Amplitude,
		Preferences:   prefs,
	}
	return c, c.Validate()
}

// Config is a validated measurement configuration
type Config struct {
	Mode          Mode                `json:"mode"`
	InputChannel  scope.Source        `json:"input-channel"`
	OutputChannel scope.Source        `json:"output-channel"`
	Resistance    float64             `json:"resistance,omitempty"`
	Channel       scope.ChannelSetup  `json:"channel"`
	Trigger       scope.TriggerSetup  `json:"trigger"`
	Timebase      scope.TimebaseSetup `json:"timebase"`
	Acquire       scope.AcquireSetup  `json:"acquire"`
	Amplitude     float64             `json:"amplitude"`
	Preferences   Preferences         `json:"preferences"`
}

// Validate reports configuration errors, none of which needs the instruments
func (c *Config) Validate() error {
	if _, ok := scope.SourceToChannel(c.InputChannel); !ok {
		return newConfigError("bode.Config: input channel %q is not an analog channel", c.InputChannel)
	}
	if _, ok := scope.SourceToChannel(c.OutputChannel); !ok {
		return newConfigError("bode.Config: output channel %q is not an analog channel", c.OutputChannel)
	}
	if c.InputChannel == c.OutputChannel {
		return newConfigError("bode.Config: channels must be different, %s used twice", c.InputChannel)
	}

	if src := c.Trigger.EdgeSource; src != nil {
		switch *src {
		case c.InputChannel, c.OutputChannel, scope.SourceExternal, scope.SourceLine:
		default:
			return newConfigError("bode.Config: trigger source %q must be the input, the output, external or line", *src)
		}
	}

	if c.Mode == ModeImpedance && c.Resistance <= 0 {
		return newConfigError("bode.Config: resistance must be positive: %g given", c.Resistance)
	}
	if c.Amplitude <= 0 {
		return newConfigError("bode.Config: amplitude must be positive: %g given", c.Amplitude)
	}

	if err := c.Channel.Validate(); err != nil {
		return instrument.NewConfigError(err.Error())
	}
	if err := c.Acquire.Validate(); err != nil {
		return fmt.Errorf("%w: %w", instrument.NewConfigError("bode.Config: invalid acquire setup"), err)
	}

	return c.Preferences.Validate()
}
