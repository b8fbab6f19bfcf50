// Package simulator provides an in-process oscilloscope and function
// generator pair wired to a simulated device under test. It speaks the same
// command set as the Agilent DSO6014A and 33220A drivers.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"
	"sync"

	"github.com/roman-kulish/labtool/internal/instrument"
)

const (
	// invalidReading is what the instrument reports for a failed measurement
	invalidReading = 9.9e37

	divisions     = 8
	defaultRange  = 8.0
	defaultCutoff = 1000.0

	scopeIdentity     = "AGILENT TECHNOLOGIES,DSO6014A,SIM00001,05.16.0001"
	generatorIdentity = "Agilent Technologies,33220A,SIM00002,2.02-2.02-22-2"

	scopeAddress     = "scope"
	generatorAddress = "generator"
)

// ErrUnknownCommand is returned for commands the simulator does not implement
var ErrUnknownCommand = errors.New("unknown command")

// LowPass returns the transfer function of a first-order RC low-pass filter
func LowPass(cutoff float64) func(hz float64) complex128 {
	return func(hz float64) complex128 {
		return 1 / complex(1, hz/cutoff)
	}
}

// Divider returns the transfer function seen across an impedance z in
// series with a resistance r, as in an input impedance measurement
func Divider(r float64, z func(hz float64) complex128) func(hz float64) complex128 {
	return func(hz float64) complex128 {
		zz := z(hz)
		return zz / (complex(r, 0) + zz)
	}
}

// WithTransfer sets the transfer function of the device under test
func WithTransfer(h func(hz float64) complex128) func(b *Bench) {
	return func(b *Bench) {
		b.transfer = h
	}
}

// WithChannels sets which scope channels see the stimulus and the response
func WithChannels(reference, response int) func(b *Bench) {
	return func(b *Bench) {
		b.reference = reference
		b.response = response
	}
}

// WithMinPeriods sets how many periods must be on screen for a phase reading
func WithMinPeriods(periods float64) func(b *Bench) {
	return func(b *Bench) {
		b.minPeriods = periods
	}
}

// Bench is a simulated oscilloscope and generator sharing one device under test
type Bench struct {
	mu sync.Mutex

	transfer   func(hz float64) complex128
	reference  int
	response   int
	minPeriods float64

	// generator state
	frequency float64
	amplitude float64
	output    bool
	syncOut   bool
	inverted  bool
	load      float64

	// scope state
	ranges        map[int]float64
	timebaseRange float64
	writes        []string
}

func NewBench(options ...func(b *Bench)) *Bench {
	b := Bench{
		transfer:   LowPass(defaultCutoff),
		reference:  1,
		response:   2,
		minPeriods: 1,
	}

	for _, option := range options {
		option(&b)
	}

	b.resetScope()
	b.resetGenerator()
	return &b
}

func (b *Bench) resetScope() {
	b.ranges = map[int]float64{1: defaultRange, 2: defaultRange, 3: defaultRange, 4: defaultRange}
	b.timebaseRange = 1e-3
}

func (b *Bench) resetGenerator() {
	b.frequency = 1000
	b.amplitude = 0.1
	b.output = false
	b.syncOut = true
	b.inverted = false
	b.load = 50
}

// Backend opens the scope for "SIM::scope" and the generator for "SIM::generator"
func (b *Bench) Backend(_ context.Context, r instrument.Resource) (instrument.Transport, error) {
	switch r.Address {
	case scopeAddress:
		return &port{bench: b, write: b.scopeWrite, query: b.scopeQuery}, nil
	case generatorAddress:
		return &port{bench: b, write: b.generatorWrite, query: b.generatorQuery}, nil
	}
	return nil, fmt.Errorf("no simulated instrument %q", r.Address)
}

// Scope returns a transport connected to the simulated oscilloscope
func (b *Bench) Scope() instrument.Transport {
	t, _ := b.Backend(context.Background(), instrument.Resource{Address: scopeAddress})
	return t
}

// Generator returns a transport connected to the simulated generator
func (b *Bench) Generator() instrument.Transport {
	t, _ := b.Backend(context.Background(), instrument.Resource{Address: generatorAddress})
	return t
}

// Writes returns every command written to either instrument, in order
func (b *Bench) Writes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.writes...)
}

// port is one instrument's end of the bench
type port struct {
	bench *Bench
	write func(cmd string) error
	query func(cmd string) (string, error)
}

func (p *port) Write(_ context.Context, cmd string) error {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()

	p.bench.writes = append(p.bench.writes, cmd)
	return p.write(cmd)
}

func (p *port) Query(_ context.Context, cmd string) (string, error) {
	p.bench.mu.Lock()
	defer p.bench.mu.Unlock()

	reply, err := p.query(cmd)
	if err != nil {
		return "", err
	}
	return reply + "\n", nil
}

func (p *port) Close() error {
	return nil
}

// signal returns the peak-to-peak amplitude and phase in degrees on a channel
func (b *Bench) signal(channel int) (vpp, phase float64) {
	if !b.output {
		return 0, 0
	}
	switch channel {
	case b.reference:
		return b.amplitude, 0
	case b.response:
		h := b.transfer(b.frequency)
		return b.amplitude * cmplx.Abs(h), cmplx.Phase(h) * 180 / math.Pi
	}
	return 0, 0
}

func (b *Bench) scopeWrite(cmd string) error {
	header, arg, _ := strings.Cut(strings.ToUpper(cmd), " ")

	switch {
	case header == "*RST":
		b.resetScope()
		return nil

	case header == "*CLS", header == ":AUTOSCALE", header == ":RUN", header == ":STOP":
		return nil

	case strings.HasPrefix(header, ":CHAN"):
		var channel int
		var what string
		if _, err := fmt.Sscanf(header, ":CHAN%d:%s", &channel, &what); err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
		}
		switch what {
		case "RANG":
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return err
			}
			b.ranges[channel] = v
		case "SCAL":
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return err
			}
			b.ranges[channel] = v * divisions
		}
		return nil

	case header == ":TIMEBASE:RANGE":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return err
		}
		b.timebaseRange = v
		return nil

	case strings.HasPrefix(header, ":TIMEBASE"), strings.HasPrefix(header, ":TRIG"), strings.HasPrefix(header, ":ACQUIRE"):
		return nil
	}

	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func parseSources(arg string) ([]int, error) {
	var channels []int
	for _, f := range strings.Split(arg, ",") {
		f = strings.TrimSpace(f)
		n, err := strconv.Atoi(strings.TrimPrefix(f, "CHANNEL"))
		if err != nil {
			return nil, fmt.Errorf("unsupported source %q", f)
		}
		channels = append(channels, n)
	}
	return channels, nil
}

// reading returns the measured amplitude, saturated at the channel range
func (b *Bench) reading(channel int) float64 {
	vpp, _ := b.signal(channel)
	return math.Min(vpp, b.ranges[channel])
}

func (b *Bench) scopeQuery(cmd string) (string, error) {
	header, arg, _ := strings.Cut(strings.ToUpper(cmd), " ")

	if header == "*IDN?" {
		return scopeIdentity, nil
	}

	var channel int
	if _, err := fmt.Sscanf(header, ":CHAN%d:RANG?", &channel); err == nil {
		return format(b.ranges[channel]), nil
	}

	sources, err := parseSources(arg)
	if err != nil {
		return format(invalidReading), nil
	}

	switch header {
	case ":MEAS:VPP?":
		return format(b.reading(sources[0])), nil

	case ":MEAS:VMAX?":
		return format(b.reading(sources[0]) / 2), nil

	case ":MEAS:VMIN?":
		return format(-b.reading(sources[0]) / 2), nil

	case ":MEAS:VRAT?":
		if len(sources) != 2 {
			break
		}
		target, reference := b.reading(sources[0]), b.reading(sources[1])
		if target <= 0 || reference <= 0 {
			return format(invalidReading), nil
		}
		return format(20 * math.Log10(target/reference)), nil

	case ":MEAS:PHAS?":
		if len(sources) != 2 {
			break
		}
		if b.timebaseRange*b.frequency < b.minPeriods {
			return format(invalidReading), nil
		}
		_, target := b.signal(sources[0])
		_, reference := b.signal(sources[1])
		return format(target - reference), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func onOff(arg string) (bool, error) {
	switch arg {
	case "ON", "1":
		return true, nil
	case "OFF", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch state %q", arg)
}

func (b *Bench) generatorWrite(cmd string) (err error) {
	header, arg, _ := strings.Cut(strings.ToUpper(cmd), " ")

	switch header {
	case "*RST":
		b.resetGenerator()
	case "*CLS", "FUNCTION", "OFFSET", "FUNCTION:SQUARE:DCYCLE", "FUNCTION:RAMP:SYMMETRY":
	case "FREQUENCY":
		b.frequency, err = strconv.ParseFloat(arg, 64)
	case "VOLTAGE":
		b.amplitude, err = strconv.ParseFloat(arg, 64)
	case "OUTPUT":
		b.output, err = onOff(arg)
	case "OUTPUT:SYNC":
		b.syncOut, err = onOff(arg)
	case "OUTPUT:POLARITY":
		b.inverted = strings.HasPrefix(arg, "INV")
	case "OUTPUT:LOAD":
		if strings.HasPrefix(arg, "INF") {
			b.load = invalidReading
		} else {
			b.load, err = strconv.ParseFloat(arg, 64)
		}
	default:
		if !strings.HasPrefix(header, "APPLY:") {
			return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
		}
		var f, a float64
		if _, err = fmt.Sscanf(arg, "%g, %g", &f, &a); err == nil {
			b.frequency, b.amplitude = f, a
		}
	}
	return err
}

func (b *Bench) generatorQuery(cmd string) (string, error) {
	switch strings.ToUpper(cmd) {
	case "*IDN?":
		return generatorIdentity, nil
	case "OUTPUT?":
		return boolReply(b.output), nil
	case "OUTPUT:SYNC?":
		return boolReply(b.syncOut), nil
	case "OUTPUT:POLARITY?":
		if b.inverted {
			return "INV", nil
		}
		return "NORM", nil
	case "OUTPUT:LOAD?":
		return format(b.load), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func boolReply(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'E', 12, 64)
}
