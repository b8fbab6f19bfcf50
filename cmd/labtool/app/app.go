package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/labtool/internal/bode"
	"github.com/roman-kulish/labtool/internal/instrument"
	"github.com/roman-kulish/labtool/internal/instrument/generator"
	"github.com/roman-kulish/labtool/internal/instrument/scope"
	"github.com/roman-kulish/labtool/internal/instrument/simulator"
	"github.com/roman-kulish/labtool/internal/storage"
)

const dbFile = "labtool.sqlite"

// Result is the outcome of a stored measurement run. Samples are the Bode
// samples as stored, in either mode.
type Result struct {
	SessionID int64
	Config    bode.Config
	Samples   []bode.Sample

	// Impedance holds the derived samples of impedance runs
	Impedance []bode.ImpedanceSample
}

// OpenStore opens the measurement database in the configured data directory,
// creating the directory when missing
func OpenStore(config *StorageConfig) (*storage.SqliteStore, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = defaultDataDirectory
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory '%s': %w", dir, err)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("checking storage directory '%s': %w", dir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dir)
	}

	return storage.NewSqliteStore(filepath.Join(dir, dbFile), storage.WithMaxBatchSize(config.MaxBatchSize)), nil
}

// NewManager builds the resource manager with the simulated bench behind SIM::
func NewManager(config *InstrumentsConfig, logger *slog.Logger) *instrument.Manager {
	bench := simulator.NewBench(simulator.WithTransfer(simulator.LowPass(config.Simulator.Cutoff)))

	return instrument.NewManager(
		instrument.WithBackend(instrument.InterfaceSim, bench.Backend),
		instrument.WithManagerLogger(logger),
		instrument.WithTransportOptions(instrument.WithTimeout(time.Duration(config.Timeout))),
	)
}

// Instruments is an opened and identified oscilloscope and generator pair
type Instruments struct {
	Scope     *scope.Driver
	Generator *generator.Driver
}

func (i *Instruments) Close() error {
	var errs []error
	if i.Scope != nil {
		errs = append(errs, i.Scope.Close())
	}
	if i.Generator != nil {
		errs = append(errs, i.Generator.Close())
	}
	return errors.Join(errs...)
}

// OpenInstruments opens both resources and resolves their drivers
func OpenInstruments(ctx context.Context, m *instrument.Manager, config *InstrumentsConfig) (*Instruments, error) {
	var instruments Instruments

	t, err := m.Open(ctx, config.Oscilloscope)
	if err != nil {
		return nil, fmt.Errorf("opening oscilloscope: %w", err)
	}
	if instruments.Scope, _, err = scope.NewRegistry().Resolve(ctx, t); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("resolving oscilloscope: %w", err)
	}

	if t, err = m.Open(ctx, config.Generator); err != nil {
		_ = instruments.Close()
		return nil, fmt.Errorf("opening generator: %w", err)
	}
	if instruments.Generator, _, err = generator.NewRegistry().Resolve(ctx, t); err != nil {
		_ = t.Close()
		_ = instruments.Close()
		return nil, fmt.Errorf("resolving generator: %w", err)
	}

	return &instruments, nil
}

// Run performs one measurement in the given mode and stores the result as
// a new session
func Run(ctx context.Context, config *Config, mode bode.Mode, logger *slog.Logger) (*Result, error) {
	var build func(bode.Setup) (bode.Config, error)
	switch mode {
	case bode.ModeBode:
		build = bode.Setup.Bode
	case bode.ModeImpedance:
		build = bode.Setup.Impedance
	default:
		return nil, fmt.Errorf("unknown measurement mode '%s'", mode)
	}

	// configuration errors surface before any instrument is touched
	measurement, err := build(config.Measurement)
	if err != nil {
		return nil, fmt.Errorf("invalid measurement configuration: %w", err)
	}

	store, err := OpenStore(&config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	instruments, err := OpenInstruments(ctx, NewManager(&config.Instruments, logger), &config.Instruments)
	if err != nil {
		return nil, err
	}
	defer instruments.Close()

	logger.Info("instruments ready",
		slog.String("oscilloscope", instruments.Scope.Identity().String()),
		slog.String("generator", instruments.Generator.Identity().String()))

	m, err := bode.NewMeasurement(instruments.Scope, instruments.Generator, measurement, bode.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	samples, err := collect(ctx, m, logger)
	if err != nil {
		return nil, err
	}

	sessionID, err := store.CreateSession(ctx, string(mode), instruments.Scope.Identity().String(), instruments.Generator.Identity().String(), measurement)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if err = store.StoreSamples(ctx, sessionID, samples); err != nil {
		return nil, fmt.Errorf("storing samples: %w", err)
	}

	logger.Info("session stored", slog.Int64("session", sessionID), slog.Int("samples", len(samples)))

	result := &Result{
		SessionID: sessionID,
		Config:    measurement,
		Samples:   samples,
	}
	if mode == bode.ModeImpedance {
		result.Impedance = bode.Impedance(samples, measurement.Resistance)
	}
	return result, nil
}

// collect runs m on a background runner, logging its events
func collect(ctx context.Context, m *bode.Measurement, logger *slog.Logger) ([]bode.Sample, error) {
	runner := bode.NewRunner(bode.WithRunnerLogger(logger))

	events, err := runner.Start(ctx, m)
	if err != nil {
		return nil, err
	}
	defer runner.Stop()

	started := time.Now()

	var samples []bode.Sample
	var runErr error
	for e := range events {
		switch e.Kind {
		case bode.EventProgress:
			logger.Debug("progress", slog.Int("percent", e.Progress))
		case bode.EventLog:
			logger.Info(e.Message)
		case bode.EventResult:
			samples = e.Samples
		case bode.EventError:
			runErr = e.Err
		case bode.EventFinished:
			logger.Info("measurement finished", slog.Duration("elapsed", time.Since(started)))
		}
	}

	if runErr != nil {
		return nil, fmt.Errorf("measurement failed: %w", runErr)
	}
	return samples, nil
}
