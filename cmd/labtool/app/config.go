package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/labtool/internal/bode"
	"github.com/roman-kulish/labtool/internal/instrument"
	"github.com/roman-kulish/labtool/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	defaultDataDirectory = "data"
	defaultScope         = "SIM::scope"
	defaultGenerator     = "SIM::generator"
)

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Instruments InstrumentsConfig `yaml:"instruments"`
	Storage     StorageConfig     `yaml:"storage"`
	Measurement bode.Setup        `yaml:"measurement"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel"`
}

// InstrumentsConfig names the instruments by resource string
type InstrumentsConfig struct {
	Oscilloscope string       `yaml:"oscilloscope"`
	Generator    string       `yaml:"generator"`
	Timeout      TimeDuration `yaml:"timeout"`

	// Simulator configures the SIM:: bench
	Simulator SimulatorConfig `yaml:"simulator"`
}

// SimulatorConfig describes the device under test of the simulated bench, a
// first-order RC low-pass filter. Seen from an impedance measurement its
// capacitor is the unknown impedance.
type SimulatorConfig struct {
	Cutoff float64 `yaml:"cutoff"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

// NewConfig returns the configuration used for keys a file leaves out
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: slog.LevelInfo,
		},
		Instruments: InstrumentsConfig{
			Oscilloscope: defaultScope,
			Generator:    defaultGenerator,
			Timeout:      TimeDuration(instrument.DefaultTimeout),
			Simulator: SimulatorConfig{
				Cutoff: 1000,
			},
		},
		Storage: StorageConfig{
			DataDirectory: defaultDataDirectory,
			MaxBatchSize:  storage.DefaultMaxBatchSize,
		},
		Measurement: bode.DefaultSetup(),
	}
}

// LoadConfig reads the configuration file at path over the defaults
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration: %w", err)
	}
	defer f.Close()

	c := NewConfig()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(c); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Instruments.Oscilloscope == "" {
		return errors.New("app.Config: oscilloscope resource is required")
	}
	if c.Instruments.Generator == "" {
		return errors.New("app.Config: generator resource is required")
	}
	if c.Instruments.Timeout <= 0 {
		return errors.New("app.Config: instrument timeout must be positive")
	}
	if c.Instruments.Simulator.Cutoff <= 0 {
		return errors.New("app.Config: simulator cutoff must be positive")
	}
	if c.Storage.MaxBatchSize <= 0 {
		return errors.New("app.Config: maxBatchSize must be positive")
	}
	return nil
}
