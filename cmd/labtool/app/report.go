package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roman-kulish/labtool/internal/bode"
	"github.com/roman-kulish/labtool/internal/export"
	"github.com/roman-kulish/labtool/internal/plot"
	"github.com/roman-kulish/labtool/internal/storage"
)

// Report is a stored session loaded back for export
type Report struct {
	Session *storage.Session
	Samples []bode.Sample

	// Resistance is the series resistance of impedance sessions
	Resistance float64
}

// LoadReport reads session id and its samples from the store
func LoadReport(ctx context.Context, store storage.Store, id int64) (*Report, error) {
	session, err := store.Session(ctx, id)
	if err != nil {
		return nil, err
	}

	samples, err := store.Samples(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading samples of session %d: %w", id, err)
	}

	report := &Report{
		Session: session,
		Samples: samples,
	}

	if bode.Mode(session.Mode) == bode.ModeImpedance {
		if session.Config == nil {
			return nil, fmt.Errorf("session %d: impedance session without configuration", id)
		}

		var config struct {
			Resistance float64 `json:"resistance"`
		}
		if err = json.Unmarshal([]byte(*session.Config), &config); err != nil {
			return nil, fmt.Errorf("session %d: decoding configuration: %w", id, err)
		}
		if config.Resistance <= 0 {
			return nil, fmt.Errorf("session %d: invalid series resistance %g", id, config.Resistance)
		}
		report.Resistance = config.Resistance
	}

	return report, nil
}

func (r *Report) impedance() bool {
	return bode.Mode(r.Session.Mode) == bode.ModeImpedance
}

func (r *Report) title() string {
	return fmt.Sprintf("Session %d, %s, %s", r.Session.ID, r.Session.Mode, r.Session.StartTime.Format("2006-01-02 15:04:05"))
}

// WriteCSV exports the report, converted to impedance for impedance sessions
func (r *Report) WriteCSV(w io.Writer) error {
	if r.impedance() {
		return export.Impedance(w, bode.Impedance(r.Samples, r.Resistance))
	}
	return export.Bode(w, r.Samples)
}

// WritePlot renders the report chart and encodes it in the given format
func (r *Report) WritePlot(w io.Writer, format plot.ImageFormat) error {
	chart := plot.BodeChart(r.title(), r.Samples)
	if r.impedance() {
		chart = plot.ImpedanceChart(r.title(), bode.Impedance(r.Samples, r.Resistance))
	}

	img, err := plot.NewRenderer(plot.RenderConfig{}).Render(chart)
	if err != nil {
		return fmt.Errorf("rendering session %d: %w", r.Session.ID, err)
	}
	return plot.Encode(w, img, format)
}
