package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roman-kulish/labtool/internal/instrument"
)

// ErrUnsupported is returned when the model has no token for a value
var ErrUnsupported = errors.New("not supported by this model")

// Commands holds the command templates of a model
type Commands struct {
	Reset       string
	ClearStatus string
	Identify    string

	Apply     string
	Waveform  string
	Frequency string
	Amplitude string
	Offset    string
	DutyCycle string
	Symmetry  string

	Output        string
	OutputQuery   string
	Polarity      string
	PolarityQuery string
	Load          string
	LoadQuery     string
	Sync          string
	SyncQuery     string
}

// Table translates abstract values to the wire tokens of one model
type Table struct {
	Commands Commands

	Waveforms  map[Waveform]string
	Polarities map[Polarity]string
	Switch     map[bool]string
	HighZ      string
}

// Agilent33220A is the Agilent 33220A 20 MHz function generator
var Agilent33220A = &Table{
	Commands: Commands{
		Reset:       "*RST",
		ClearStatus: "*CLS",
		Identify:    "*IDN?",

		Apply:     "APPLy:%s %s, %s, %s",
		Waveform:  "FUNCtion %s",
		Frequency: "FREQuency %s",
		Amplitude: "VOLTage %s",
		Offset:    "OFFSet %s",
		DutyCycle: "FUNCtion:SQUare:DCYCle %s",
		Symmetry:  "FUNCtion:RAMP:SYMMetry %s",

		Output:        "OUTPut %s",
		OutputQuery:   "OUTPut?",
		Polarity:      "OUTPut:POLarity %s",
		PolarityQuery: "OUTPut:POLarity?",
		Load:          "OUTPut:LOAD %s",
		LoadQuery:     "OUTPut:LOAD?",
		Sync:          "OUTPut:SYNC %s",
		SyncQuery:     "OUTPut:SYNC?",
	},
	Waveforms: map[Waveform]string{
		WaveformSine:   "SINusoid",
		WaveformSquare: "SQUare",
		WaveformRamp:   "RAMP",
	},
	Polarities: map[Polarity]string{
		PolarityNormal:   "NORMal",
		PolarityInverted: "INVerted",
	},
	Switch: map[bool]string{true: "ON", false: "OFF"},
	HighZ:  "INFinity",
}

// Driver controls a function generator through a model command table
type Driver struct {
	transport instrument.Transport
	identity  instrument.Identity
	table     *Table
}

func New(t instrument.Transport, id instrument.Identity, table *Table) *Driver {
	return &Driver{
		transport: t,
		identity:  id,
		table:     table,
	}
}

// NewRegistry returns a registry populated with the supported generators
func NewRegistry() *instrument.Registry[*Driver] {
	return instrument.NewRegistry(instrument.RoleGenerator,
		instrument.Entry[*Driver]{
			Brand: "Agilent",
			Model: "33220A",
			New: func(t instrument.Transport, id instrument.Identity) *Driver {
				return New(t, id, Agilent33220A)
			},
		},
	)
}

func (d *Driver) Identity() instrument.Identity {
	return d.identity
}

func (d *Driver) Close() error {
	return d.transport.Close()
}

func (d *Driver) write(ctx context.Context, format string, args ...any) error {
	if format == "" {
		return ErrUnsupported
	}
	return d.transport.Write(ctx, fmt.Sprintf(format, args...))
}

func (d *Driver) query(ctx context.Context, cmd string) (string, error) {
	if cmd == "" {
		return "", ErrUnsupported
	}
	return d.transport.Query(ctx, cmd)
}

func lookup[K comparable](m map[K]string, k K) (string, error) {
	tok, ok := m[k]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, k)
	}
	return tok, nil
}

// reverse finds the key for a reply given in long or short form,
// so "SIN" and "SINusoid" both match
func reverse[K comparable](m map[K]string, reply string) (K, error) {
	reply = strings.ToUpper(strings.TrimSpace(reply))
	for k, tok := range m {
		full := strings.ToUpper(tok)
		short := strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' {
				return -1
			}
			return r
		}, tok)
		if reply == full || reply == short {
			return k, nil
		}
	}
	var zero K
	return zero, fmt.Errorf("%w: unexpected token %q", instrument.ErrMalformedReply, reply)
}

func (d *Driver) Reset(ctx context.Context) error {
	return d.write(ctx, d.table.Commands.Reset)
}

func (d *Driver) ClearStatus(ctx context.Context) error {
	return d.write(ctx, d.table.Commands.ClearStatus)
}

func (d *Driver) Identify(ctx context.Context) (instrument.Identity, error) {
	reply, err := d.query(ctx, d.table.Commands.Identify)
	if err != nil {
		return instrument.Identity{}, err
	}
	return instrument.ParseIdentity(reply)
}

// Apply sets waveform, frequency, amplitude and offset in one command
func (d *Driver) Apply(ctx context.Context, waveform Waveform, hz, vpp, offset float64) error {
	tok, err := lookup(d.table.Waveforms, waveform)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.Apply, tok,
		instrument.FormatFloat(hz), instrument.FormatFloat(vpp), instrument.FormatFloat(offset))
}

func (d *Driver) SetWaveform(ctx context.Context, waveform Waveform) error {
	tok, err := lookup(d.table.Waveforms, waveform)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.Waveform, tok)
}

func (d *Driver) SetFrequency(ctx context.Context, hz float64) error {
	return d.write(ctx, d.table.Commands.Frequency, instrument.FormatFloat(hz))
}

// SetAmplitude sets the peak-to-peak amplitude in volts
func (d *Driver) SetAmplitude(ctx context.Context, vpp float64) error {
	return d.write(ctx, d.table.Commands.Amplitude, instrument.FormatFloat(vpp))
}

func (d *Driver) SetOffset(ctx context.Context, volts float64) error {
	return d.write(ctx, d.table.Commands.Offset, instrument.FormatFloat(volts))
}

// SetDutyCycle sets the square wave duty cycle in percent
func (d *Driver) SetDutyCycle(ctx context.Context, percent float64) error {
	return d.write(ctx, d.table.Commands.DutyCycle, instrument.FormatFloat(percent))
}

// SetSymmetry sets the ramp symmetry in percent
func (d *Driver) SetSymmetry(ctx context.Context, percent float64) error {
	return d.write(ctx, d.table.Commands.Symmetry, instrument.FormatFloat(percent))
}

func (d *Driver) SetOutput(ctx context.Context, on bool) error {
	tok, err := lookup(d.table.Switch, on)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.Output, tok)
}

func (d *Driver) Output(ctx context.Context) (bool, error) {
	return d.queryBool(ctx, d.table.Commands.OutputQuery)
}

func (d *Driver) SetSync(ctx context.Context, on bool) error {
	tok, err := lookup(d.table.Switch, on)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.Sync, tok)
}

func (d *Driver) Sync(ctx context.Context) (bool, error) {
	return d.queryBool(ctx, d.table.Commands.SyncQuery)
}

func (d *Driver) queryBool(ctx context.Context, cmd string) (bool, error) {
	reply, err := d.query(ctx, cmd)
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(strings.TrimSpace(reply)) {
	case "1", "ON":
		return true, nil
	case "0", "OFF":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a switch state", instrument.ErrMalformedReply, reply)
}

func (d *Driver) SetPolarity(ctx context.Context, polarity Polarity) error {
	tok, err := lookup(d.table.Polarities, polarity)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.Polarity, tok)
}

func (d *Driver) Polarity(ctx context.Context) (Polarity, error) {
	reply, err := d.query(ctx, d.table.Commands.PolarityQuery)
	if err != nil {
		return "", err
	}
	return reverse(d.table.Polarities, reply)
}

func (d *Driver) SetOutputLoad(ctx context.Context, load OutputLoad) error {
	arg := d.table.HighZ
	if !load.IsHighZ() {
		if load <= 0 {
			return fmt.Errorf("invalid output load: %s", load)
		}
		arg = instrument.FormatFloat(float64(load))
	}
	return d.write(ctx, d.table.Commands.Load, arg)
}

func (d *Driver) OutputLoad(ctx context.Context) (OutputLoad, error) {
	reply, err := d.query(ctx, d.table.Commands.LoadQuery)
	if err != nil {
		return 0, err
	}
	ohms, err := instrument.ParseFloat(reply)
	if err != nil {
		return 0, err
	}
	if ohms >= highZReply {
		return HighZ, nil
	}
	return OutputLoad(ohms), nil
}
