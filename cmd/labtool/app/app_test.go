package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/labtool/internal/bode"
	"github.com/roman-kulish/labtool/internal/export"
	"github.com/roman-kulish/labtool/internal/instrument/scope"
	"github.com/roman-kulish/labtool/internal/plot"
	"github.com/roman-kulish/labtool/internal/storage"
)

const testConfig = `
settings:
  logLevel: debug
instruments:
  timeout: 2s
  simulator:
    cutoff: 1000
storage:
  maxBatchSize: 4
measurement:
  requirements:
    input-channel: channel-1
    output-channel: channel-2
    generator-channel: channel-1
    resistance: 1000
  generator:
    amplitude: 2
  preferences:
    delay: 0
    stable-time: 0
    scale: log
    start-frequency: 100
    stop-frequency: 10000
    samples: 5
`

var nilLogger = slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "labtool.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadTestConfig(t *testing.T) *Config {
	t.Helper()

	c, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	c.Storage.DataDirectory = filepath.Join(t.TempDir(), "data")
	return c
}

func TestLoadConfig(t *testing.T) {
	c := loadTestConfig(t)

	if c.Settings.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", c.Settings.LogLevel)
	}
	if time.Duration(c.Instruments.Timeout) != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", time.Duration(c.Instruments.Timeout))
	}
	if c.Instruments.Oscilloscope != defaultScope || c.Instruments.Generator != defaultGenerator {
		t.Errorf("resources = %q, %q, want the simulator defaults", c.Instruments.Oscilloscope, c.Instruments.Generator)
	}
	if c.Storage.MaxBatchSize != 4 {
		t.Errorf("max batch size = %d, want 4", c.Storage.MaxBatchSize)
	}
	if c.Measurement.Channel.Range == nil || *c.Measurement.Channel.Range != 20 {
		t.Errorf("channel range default was not kept")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "settings:\n  color: red\n"},
		{"bad duration", "instruments:\n  timeout: soon\n"},
		{"bad level", "settings:\n  logLevel: loud\n"},
		{"empty resource", "instruments:\n  oscilloscope: \"\"\n"},
		{"zero cutoff", "instruments:\n  simulator:\n    cutoff: 0\n"},
		{"zero batch", "storage:\n  maxBatchSize: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRun_Bode(t *testing.T) {
	c := loadTestConfig(t)
	ctx := context.Background()

	res, err := Run(ctx, c, bode.ModeBode, nilLogger)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Samples) != 5 {
		t.Fatalf("got %d samples, want 5", len(res.Samples))
	}
	if res.Impedance != nil {
		t.Errorf("bode run carries impedance samples")
	}

	for _, s := range res.Samples {
		want := -10 * math.Log10(1+(s.Frequency/1000)*(s.Frequency/1000))
		if math.Abs(s.Module-want) > 1e-6 {
			t.Errorf("module at %g Hz = %g, want %g", s.Frequency, s.Module, want)
		}
	}

	store, err := OpenStore(&c.Storage)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	report, err := LoadReport(ctx, store, res.SessionID)
	if err != nil {
		t.Fatalf("loading report: %v", err)
	}
	if report.Session.Mode != "bode" || !strings.Contains(report.Session.Scope, "DSO6014A") {
		t.Errorf("unexpected session %+v", report.Session)
	}
	if len(report.Samples) != 5 {
		t.Fatalf("stored %d samples, want 5", len(report.Samples))
	}

	var out bytes.Buffer
	if err = report.WriteCSV(&out); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 || rows[0][0] != export.BodeHeader[0] {
		t.Errorf("unexpected csv rows: %v", rows)
	}

	out.Reset()
	if err = report.WritePlot(&out, plot.ImagePNG); err != nil {
		t.Fatal(err)
	}
	if _, err = png.Decode(&out); err != nil {
		t.Errorf("decoding plot: %v", err)
	}
}

func TestRun_Impedance(t *testing.T) {
	c := loadTestConfig(t)
	ctx := context.Background()

	// the generator stays on channel 1, the load is measured on channel 2
	input := scope.SourceChannel2
	c.Measurement.Requirements.InputChannel = &input

	res, err := Run(ctx, c, bode.ModeImpedance, nilLogger)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Impedance) != 5 {
		t.Fatalf("got %d impedance samples, want 5", len(res.Impedance))
	}
	for _, s := range res.Impedance {
		if want := 1000 * 1000 / s.Frequency; math.Abs(s.Module-want) > want*1e-6 {
			t.Errorf("result |Z| at %g Hz = %g, want %g", s.Frequency, s.Module, want)
		}
	}

	store, err := OpenStore(&c.Storage)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	report, err := LoadReport(ctx, store, res.SessionID)
	if err != nil {
		t.Fatalf("loading report: %v", err)
	}
	if report.Resistance != 1000 {
		t.Fatalf("resistance = %g, want 1000", report.Resistance)
	}

	var out bytes.Buffer
	if err = report.WriteCSV(&out); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d csv rows, want 6", len(rows))
	}

	// the simulated load is the capacitor of an RC low-pass whose resistor is
	// the series resistance, so |Z| = R * cutoff / f at -90 degrees
	for _, row := range rows[1:] {
		f, _ := strconv.ParseFloat(row[0], 64)
		module, _ := strconv.ParseFloat(row[4], 64)
		phase, _ := strconv.ParseFloat(row[5], 64)

		if want := 1000 * 1000 / f; math.Abs(module-want) > want*1e-6 {
			t.Errorf("|Z| at %g Hz = %g, want %g", f, module, want)
		}
		if math.Abs(phase+90) > 1e-6 {
			t.Errorf("phase at %g Hz = %g, want -90", f, phase)
		}
	}
}

func TestRun_InvalidConfiguration(t *testing.T) {
	c := loadTestConfig(t)
	c.Measurement.Requirements.Resistance = nil

	if _, err := Run(context.Background(), c, bode.ModeImpedance, nilLogger); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(c.Storage.DataDirectory); !os.IsNotExist(err) {
		t.Errorf("storage was created for an invalid configuration")
	}
}

func TestRun_UnknownInstrument(t *testing.T) {
	c := loadTestConfig(t)
	c.Instruments.Oscilloscope = "SIM::unknown"

	if _, err := Run(context.Background(), c, bode.ModeBode, nilLogger); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadReport_NotFound(t *testing.T) {
	c := loadTestConfig(t)

	store, err := OpenStore(&c.Storage)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err = LoadReport(context.Background(), store, 42); err == nil {
		t.Fatal("expected an error")
	}
	var _ storage.Store = store
}
