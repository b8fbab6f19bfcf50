package bode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/roman-kulish/labtool/internal/instrument/generator"
	"github.com/roman-kulish/labtool/internal/instrument/scope"
)

const (
	StateInitialSetup State = iota
	StateStepSetup
	StateDownloadData
	StateDone
)

// State of a measurement
type State int

func (s State) String() string {
	switch s {
	case StateInitialSetup:
		return "initial setup"
	case StateStepSetup:
		return "step setup"
	case StateDownloadData:
		return "download data"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Oscilloscope is the capability set a measurement needs from an oscilloscope
type Oscilloscope interface {
	VerticalScaler
	HorizontalScaler

	SetDelay(delay time.Duration)
	Reset(ctx context.Context) error
	Autoscale(ctx context.Context) error
	SetupChannel(ctx context.Context, channel int, s scope.ChannelSetup) error
	SetupTrigger(ctx context.Context, s scope.TriggerSetup) error
	SetupTimebase(ctx context.Context, s scope.TimebaseSetup) error
	SetupAcquire(ctx context.Context, s scope.AcquireSetup) error
	SetAcquireMode(ctx context.Context, mode scope.AcquireMode) error
	MeasureVratio(ctx context.Context, target, reference scope.Source) (float64, error)
}

// Generator is the capability set a measurement needs from a function generator
type Generator interface {
	Reset(ctx context.Context) error
	SetWaveform(ctx context.Context, waveform generator.Waveform) error
	SetFrequency(ctx context.Context, hz float64) error
	SetOutputLoad(ctx context.Context, load generator.OutputLoad) error
	SetAmplitude(ctx context.Context, vpp float64) error
	SetOutput(ctx context.Context, on bool) error
}

// WithLogger sets the logger for the measurement
func WithLogger(logger *slog.Logger) func(m *Measurement) {
	return func(m *Measurement) {
		m.logger = logger.With(slog.String("mode", m.config.Mode.String()))
	}
}

// WithLadder sets the vertical scale candidates
func WithLadder(ladder []float64) func(m *Measurement) {
	return func(m *Measurement) {
		m.ladder = ladder
	}
}

// WithMaxPeriods sets the bound of the horizontal scaling
func WithMaxPeriods(periods int) func(m *Measurement) {
	return func(m *Measurement) {
		m.maxPeriods = periods
	}
}

// Measurement is a Bode sweep state machine. Each call to Step performs the
// work of exactly one state. A Measurement is not safe for concurrent use
// and must be the only user of its instruments while it runs.
type Measurement struct {
	osc    Oscilloscope
	gen    Generator
	config Config

	state       State
	step        int
	accumulated []Sample
	result      []Sample
	finished    bool

	ladder     []float64
	maxPeriods int

	emit   func(Event)
	logger *slog.Logger
}

// NewMeasurement validates the configuration and creates a measurement in
// its initial state. Nothing is sent to the instruments.
func NewMeasurement(osc Oscilloscope, gen Generator, config Config, options ...func(m *Measurement)) (*Measurement, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := Measurement{
		osc:        osc,
		gen:        gen,
		config:     config,
		ladder:     ScaleLadder,
		maxPeriods: MaxPeriods,
		emit:       func(Event) {},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&m)
	}

	return &m, nil
}

// Describe returns what the measurement does
func (m *Measurement) Describe() string {
	if m.config.Mode == ModeImpedance {
		return "Measuring input impedance of the system"
	}
	return "Measuring bode plots of the system"
}

func (m *Measurement) Config() Config {
	return m.config
}

func (m *Measurement) State() State {
	return m.state
}

// Steps returns the number of samples acquired so far
func (m *Measurement) Steps() int {
	return m.step
}

// Accumulated returns the samples acquired so far, before filtering
func (m *Measurement) Accumulated() []Sample {
	return m.accumulated
}

// Finished reports whether the Done state has been processed
func (m *Measurement) Finished() bool {
	return m.finished
}

// Result returns the filtered samples once finished
func (m *Measurement) Result() []Sample {
	return m.result
}

// Reset discards all progress and returns to the initial state
func (m *Measurement) Reset() {
	m.state = StateInitialSetup
	m.step = 0
	m.accumulated = nil
	m.result = nil
	m.finished = false
}

func (m *Measurement) progress(percent int) {
	m.emit(Event{Kind: EventProgress, Progress: percent})
}

func (m *Measurement) log(msg string, attrs ...any) {
	m.logger.Info(msg, attrs...)
	m.emit(Event{Kind: EventLog, Message: msg})
}

func humanHz(hz float64) string {
	v, prefix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%0.2f %sHz", v, prefix)
}

// Step performs the work of the current state and moves to the next one
func (m *Measurement) Step(ctx context.Context) error {
	var err error

	switch m.state {
	case StateInitialSetup:
		err = m.initialSetup(ctx)
	case StateStepSetup:
		err = m.stepSetup(ctx)
	case StateDownloadData:
		err = m.downloadData(ctx)
	case StateDone:
		m.done()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", m.state, err)
	}
	return nil
}

func (m *Measurement) frequency() float64 {
	return ComputeFrequency(m.step, m.config.Preferences)
}

func (m *Measurement) initialSetup(ctx context.Context) error {
	m.progress(0)
	m.log(m.Describe())

	c := &m.config
	input, _ := scope.SourceToChannel(c.InputChannel)
	output, _ := scope.SourceToChannel(c.OutputChannel)

	m.osc.SetDelay(c.Preferences.Delay)

	ops := []struct {
		msg string
		fn  func() error
	}{
		{"resetting oscilloscope", func() error { return m.osc.Reset(ctx) }},
		{"autoscaling oscilloscope", func() error { return m.osc.Autoscale(ctx) }},
		{"setting up timebase", func() error { return m.osc.SetupTimebase(ctx, c.Timebase) }},
		{"setting up input channel", func() error { return m.osc.SetupChannel(ctx, input, c.Channel) }},
		{"setting up output channel", func() error { return m.osc.SetupChannel(ctx, output, c.Channel) }},
		{"setting up trigger", func() error { return m.osc.SetupTrigger(ctx, c.Trigger) }},
		{"resetting generator", func() error { return m.gen.Reset(ctx) }},
		{"setting waveform", func() error { return m.gen.SetWaveform(ctx, generator.WaveformSine) }},
		{"setting frequency", func() error { return m.gen.SetFrequency(ctx, m.frequency()) }},
		{"setting output load", func() error { return m.gen.SetOutputLoad(ctx, generator.HighZ) }},
		{"setting amplitude", func() error { return m.gen.SetAmplitude(ctx, c.Amplitude) }},
		{"enabling output", func() error { return m.gen.SetOutput(ctx, true) }},
	}
	for _, op := range ops {
		if err := op.fn(); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	m.state = StateStepSetup
	return nil
}

func (m *Measurement) stepSetup(ctx context.Context) error {
	c := &m.config
	samples := c.Preferences.Samples
	frequency := m.frequency()

	m.progress(m.step * 100 / samples)
	m.log(fmt.Sprintf("Step %d of %d at %s", m.step+1, samples, humanHz(frequency)),
		slog.Int("step", m.step), slog.Float64("frequency", frequency))

	if err := m.gen.SetFrequency(ctx, frequency); err != nil {
		return fmt.Errorf("setting frequency: %w", err)
	}
	if err := m.osc.SetTimebaseRange(ctx, 2/frequency); err != nil {
		return fmt.Errorf("setting timebase range: %w", err)
	}

	// averaging would bias the readings taken while scaling
	if err := m.osc.SetAcquireMode(ctx, scope.AcquireNormal); err != nil {
		return fmt.Errorf("setting acquire mode: %w", err)
	}

	for _, source := range []scope.Source{c.InputChannel, c.OutputChannel} {
		advances, err := VerticalScale(ctx, m.osc, source, m.ladder)
		if err != nil {
			return err
		}
		m.logger.Debug("vertical scale converged", slog.String("source", source.String()), slog.Int("advances", advances))
	}

	adjustments, err := HorizontalScale(ctx, m.osc, c.OutputChannel, c.InputChannel, frequency, m.maxPeriods)
	if err != nil {
		return err
	}
	m.logger.Debug("horizontal scale converged", slog.Int("adjustments", adjustments))

	if c.Preferences.StableTime > 0 {
		timer := time.NewTimer(c.Preferences.StableTime)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.state = StateDownloadData
	return nil
}

func (m *Measurement) downloadData(ctx context.Context) error {
	c := &m.config

	if err := m.osc.SetupAcquire(ctx, c.Acquire); err != nil {
		return fmt.Errorf("setting up acquisition: %w", err)
	}

	inputVpp, err := m.osc.MeasureVpp(ctx, c.InputChannel)
	if err != nil {
		return fmt.Errorf("measuring input Vpp: %w", err)
	}
	outputVpp, err := m.osc.MeasureVpp(ctx, c.OutputChannel)
	if err != nil {
		return fmt.Errorf("measuring output Vpp: %w", err)
	}
	ratio, err := m.osc.MeasureVratio(ctx, c.OutputChannel, c.InputChannel)
	if err != nil {
		return fmt.Errorf("measuring ratio: %w", err)
	}
	phase, err := m.osc.MeasurePhase(ctx, c.OutputChannel, c.InputChannel)
	if err != nil {
		return fmt.Errorf("measuring phase: %w", err)
	}

	m.accumulated = append(m.accumulated, Sample{
		Frequency: m.frequency(),
		InputVpp:  inputVpp,
		OutputVpp: outputVpp,
		Module:    ratio,
		Phase:     phase,
	})

	m.step++
	if m.step >= c.Preferences.Samples {
		m.state = StateDone
		m.progress(100)
		return nil
	}

	m.state = StateStepSetup
	return nil
}

func (m *Measurement) done() {
	m.result = Filter(m.accumulated)
	m.finished = true

	if dropped := len(m.accumulated) - len(m.result); dropped > 0 {
		m.log(fmt.Sprintf("Discarded %d invalid readings", dropped), slog.Int("dropped", dropped))
	}
}
