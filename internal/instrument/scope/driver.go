package scope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/labtool/internal/instrument"
)

var (
	// ErrUnsupported is returned when the model has no token for a value
	ErrUnsupported = errors.New("not supported by this model")

	// ErrInvalidChannel is returned for channel numbers out of range
	ErrInvalidChannel = errors.New("invalid channel number")
)

// delayer is implemented by transports with an adjustable post-operation delay
type delayer interface {
	SetDelay(d time.Duration)
}

// Driver controls an oscilloscope through a model command table
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

func (d *Driver) Identity() instrument.Identity {
	return d.identity
}

// SetDelay changes the transport's post-operation delay when it has one
func (d *Driver) SetDelay(delay time.Duration) {
	if t, ok := d.transport.(delayer); ok {
		t.SetDelay(delay)
	}
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

func (d *Driver) queryFloat(ctx context.Context, format string, args ...any) (float64, error) {
	if format == "" {
		return 0, ErrUnsupported
	}
	reply, err := d.transport.Query(ctx, fmt.Sprintf(format, args...))
	if err != nil {
		return 0, err
	}
	return instrument.ParseFloat(reply)
}

func lookup[K comparable](m map[K]string, k K) (string, error) {
	tok, ok := m[k]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, k)
	}
	return tok, nil
}

func checkChannel(channel int) error {
	if channel < 1 || channel > Channels {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	return nil
}

// Common commands

func (d *Driver) Reset(ctx context.Context) error {
	return d.write(ctx, d.table.Commands.Reset)
}

func (d *Driver) ClearStatus(ctx context.Context) error {
	return d.write(ctx, d.table.Commands.ClearStatus)
}

// Identify queries the instrument identity
func (d *Driver) Identify(ctx context.Context) (instrument.Identity, error) {
	reply, err := d.transport.Query(ctx, d.table.Commands.Identify)
	if err != nil {
		return instrument.Identity{}, err
	}
	return instrument.ParseIdentity(reply)
}

func (d *Driver) Autoscale(ctx context.Context) error {
	return d.write(ctx, d.table.Commands.Autoscale)
}

func (d *Driver) Run(ctx context.Context) error {
	return d.write(ctx, d.table.Commands.Run)
}

func (d *Driver) Stop(ctx context.Context) error {
	return d.write(ctx, d.table.Commands.Stop)
}

// Channel commands

func (d *Driver) SetBandwidthLimit(ctx context.Context, channel int, on bool) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	tok, err := lookup(d.table.BandwidthLimit, on)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.ChannelBandwidthLimit, channel, tok)
}

func (d *Driver) SetCoupling(ctx context.Context, channel int, coupling Coupling) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	tok, err := lookup(d.table.Couplings, coupling)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.ChannelCoupling, channel, tok)
}

func (d *Driver) SetProbe(ctx context.Context, channel int, factor int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.ChannelProbe, channel, fmt.Sprint(factor))
}

// SetRange sets the full-scale vertical range in volts
func (d *Driver) SetRange(ctx context.Context, channel int, volts float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.ChannelRange, channel, instrument.FormatFloat(volts))
}

// Range returns the full-scale vertical range in volts
func (d *Driver) Range(ctx context.Context, channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	return d.queryFloat(ctx, d.table.Commands.ChannelRangeQuery, channel)
}

// SetScale sets the vertical scale in volts per division
func (d *Driver) SetScale(ctx context.Context, channel int, volts float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.ChannelScale, channel, instrument.FormatFloat(volts))
}

func (d *Driver) SetDisplay(ctx context.Context, channel int, on bool) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	tok, err := lookup(d.table.Display, on)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.ChannelDisplay, channel, tok)
}

func (d *Driver) SetOffset(ctx context.Context, channel int, volts float64) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.ChannelOffset, channel, instrument.FormatFloat(volts))
}

// Timebase commands

func (d *Driver) SetTimebaseMode(ctx context.Context, mode TimebaseMode) error {
	tok, err := lookup(d.table.TimebaseModes, mode)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.TimebaseMode, tok)
}

// SetTimebaseRange sets the full-scale horizontal range in seconds
func (d *Driver) SetTimebaseRange(ctx context.Context, seconds float64) error {
	return d.write(ctx, d.table.Commands.TimebaseRange, instrument.FormatFloat(seconds))
}

func (d *Driver) SetTimebaseScale(ctx context.Context, seconds float64) error {
	return d.write(ctx, d.table.Commands.TimebaseScale, instrument.FormatFloat(seconds))
}

// Trigger commands

func (d *Driver) SetTriggerMode(ctx context.Context, mode TriggerMode) error {
	tok, err := lookup(d.table.TriggerModes, mode)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.TriggerMode, tok)
}

func (d *Driver) SetTriggerSweep(ctx context.Context, sweep TriggerSweep) error {
	tok, err := lookup(d.table.TriggerSweeps, sweep)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.TriggerSweep, tok)
}

func (d *Driver) SetTriggerEdgeLevel(ctx context.Context, volts float64) error {
	return d.write(ctx, d.table.Commands.TriggerEdgeLevel, instrument.FormatFloat(volts))
}

func (d *Driver) SetTriggerEdgeSource(ctx context.Context, source Source) error {
	tok, err := lookup(d.table.Sources, source)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.TriggerEdgeSource, tok)
}

func (d *Driver) SetTriggerEdgeSlope(ctx context.Context, slope TriggerSlope) error {
	tok, err := lookup(d.table.TriggerSlopes, slope)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.TriggerEdgeSlope, tok)
}

func (d *Driver) SetTriggerHFReject(ctx context.Context, on bool) error {
	tok, err := lookup(d.table.Reject, on)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.TriggerHFReject, tok)
}

func (d *Driver) SetTriggerNReject(ctx context.Context, on bool) error {
	tok, err := lookup(d.table.Reject, on)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.TriggerNReject, tok)
}

// Acquire commands

func (d *Driver) SetAcquireMode(ctx context.Context, mode AcquireMode) error {
	tok, err := lookup(d.table.AcquireModes, mode)
	if err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.AcquireMode, tok)
}

// SetAcquireCount sets the number of averaged acquisitions, a power of two
func (d *Driver) SetAcquireCount(ctx context.Context, count int) error {
	if err := ValidateAverageCount(count); err != nil {
		return err
	}
	return d.write(ctx, d.table.Commands.AcquireCount, fmt.Sprint(count))
}

// Measure commands

func (d *Driver) MeasureVpp(ctx context.Context, source Source) (float64, error) {
	tok, err := lookup(d.table.Sources, source)
	if err != nil {
		return 0, err
	}
	return d.queryFloat(ctx, d.table.Commands.MeasureVpp, tok)
}

// HasEnvelope reports whether MeasureVmax and MeasureVmin are available
func (d *Driver) HasEnvelope() bool {
	return d.table.Envelope
}

func (d *Driver) MeasureVmax(ctx context.Context, source Source) (float64, error) {
	if !d.table.Envelope {
		return 0, ErrUnsupported
	}
	tok, err := lookup(d.table.Sources, source)
	if err != nil {
		return 0, err
	}
	return d.queryFloat(ctx, d.table.Commands.MeasureVmax, tok)
}

func (d *Driver) MeasureVmin(ctx context.Context, source Source) (float64, error) {
	if !d.table.Envelope {
		return 0, ErrUnsupported
	}
	tok, err := lookup(d.table.Sources, source)
	if err != nil {
		return 0, err
	}
	return d.queryFloat(ctx, d.table.Commands.MeasureVmin, tok)
}

// MeasureVratio returns the voltage ratio of target over reference in dB
func (d *Driver) MeasureVratio(ctx context.Context, target, reference Source) (float64, error) {
	return d.measurePair(ctx, d.table.Commands.MeasureVratio, target, reference)
}

// MeasurePhase returns the phase of target relative to reference in degrees
func (d *Driver) MeasurePhase(ctx context.Context, target, reference Source) (float64, error) {
	return d.measurePair(ctx, d.table.Commands.MeasurePhase, target, reference)
}

func (d *Driver) measurePair(ctx context.Context, format string, target, reference Source) (float64, error) {
	t, err := lookup(d.table.Sources, target)
	if err != nil {
		return 0, err
	}
	r, err := lookup(d.table.Sources, reference)
	if err != nil {
		return 0, err
	}
	return d.queryFloat(ctx, format, t, r)
}

// Setups

// SetupChannel applies the fields present in s to the channel
func (d *Driver) SetupChannel(ctx context.Context, channel int, s ChannelSetup) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	if s.BandwidthLimit != nil {
		if err := d.SetBandwidthLimit(ctx, channel, *s.BandwidthLimit); err != nil {
			return fmt.Errorf("setting bandwidth limit: %w", err)
		}
	}
	if s.Coupling != nil {
		if err := d.SetCoupling(ctx, channel, *s.Coupling); err != nil {
			return fmt.Errorf("setting coupling: %w", err)
		}
	}
	if s.Probe != nil {
		if err := d.SetProbe(ctx, channel, *s.Probe); err != nil {
			return fmt.Errorf("setting probe: %w", err)
		}
	}
	if s.Range != nil {
		if err := d.SetRange(ctx, channel, *s.Range); err != nil {
			return fmt.Errorf("setting range: %w", err)
		}
	}
	if s.Scale != nil {
		if err := d.SetScale(ctx, channel, *s.Scale); err != nil {
			return fmt.Errorf("setting scale: %w", err)
		}
	}
	if s.Display != nil {
		if err := d.SetDisplay(ctx, channel, *s.Display); err != nil {
			return fmt.Errorf("setting display: %w", err)
		}
	}
	if s.Offset != nil {
		if err := d.SetOffset(ctx, channel, *s.Offset); err != nil {
			return fmt.Errorf("setting offset: %w", err)
		}
	}
	return nil
}

// SetupTrigger applies the fields present in s
func (d *Driver) SetupTrigger(ctx context.Context, s TriggerSetup) error {
	if s.Mode != nil {
		if err := d.SetTriggerMode(ctx, *s.Mode); err != nil {
			return fmt.Errorf("setting trigger mode: %w", err)
		}
	}
	if s.Sweep != nil {
		if err := d.SetTriggerSweep(ctx, *s.Sweep); err != nil {
			return fmt.Errorf("setting trigger sweep: %w", err)
		}
	}
	if s.EdgeLevel != nil {
		if err := d.SetTriggerEdgeLevel(ctx, *s.EdgeLevel); err != nil {
			return fmt.Errorf("setting trigger edge level: %w", err)
		}
	}
	if s.EdgeSource != nil {
		if err := d.SetTriggerEdgeSource(ctx, *s.EdgeSource); err != nil {
			return fmt.Errorf("setting trigger edge source: %w", err)
		}
	}
	if s.EdgeSlope != nil {
		if err := d.SetTriggerEdgeSlope(ctx, *s.EdgeSlope); err != nil {
			return fmt.Errorf("setting trigger edge slope: %w", err)
		}
	}
	if s.HFReject != nil {
		if err := d.SetTriggerHFReject(ctx, *s.HFReject); err != nil {
			return fmt.Errorf("setting HF reject: %w", err)
		}
	}
	if s.NReject != nil {
		if err := d.SetTriggerNReject(ctx, *s.NReject); err != nil {
			return fmt.Errorf("setting noise reject: %w", err)
		}
	}
	return nil
}

// SetupTimebase applies the fields present in s
func (d *Driver) SetupTimebase(ctx context.Context, s TimebaseSetup) error {
	if s.Mode != nil {
		if err := d.SetTimebaseMode(ctx, *s.Mode); err != nil {
			return fmt.Errorf("setting timebase mode: %w", err)
		}
	}
	if s.Range != nil {
		if err := d.SetTimebaseRange(ctx, *s.Range); err != nil {
			return fmt.Errorf("setting timebase range: %w", err)
		}
	}
	if s.Scale != nil {
		if err := d.SetTimebaseScale(ctx, *s.Scale); err != nil {
			return fmt.Errorf("setting timebase scale: %w", err)
		}
	}
	return nil
}

// SetupAcquire applies the fields present in s. The average count is
// validated before anything is written.
func (d *Driver) SetupAcquire(ctx context.Context, s AcquireSetup) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if s.Mode != nil {
		if err := d.SetAcquireMode(ctx, *s.Mode); err != nil {
			return fmt.Errorf("setting acquire mode: %w", err)
		}
	}
	if s.AverageCount != nil {
		if err := d.SetAcquireCount(ctx, *s.AverageCount); err != nil {
			return fmt.Errorf("setting average count: %w", err)
		}
	}
	return nil
}
