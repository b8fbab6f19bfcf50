// Package export writes measurement results as CSV sheets, one row per
// sample in sweep order
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/roman-kulish/labtool/internal/bode"
)

var (
	BodeHeader      = []string{"Frequency [Hz]", "Input VPP", "Output VPP", "Bode Module [dB]", "Bode Phase [°]"}
	ImpedanceHeader = []string{"Frequency [Hz]", "Generator VPP", "Input VPP", "Input Phase [°]", "Impedance Module [Ω]", "Impedance Phase [°]"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// Bode writes Bode samples with BodeHeader
func Bode(w io.Writer, samples []bode.Sample) error {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			formatFloat(s.Frequency),
			formatFloat(s.InputVpp),
			formatFloat(s.OutputVpp),
			formatFloat(s.Module),
			formatFloat(s.Phase),
		})
	}
	return write(w, BodeHeader, rows)
}

// Impedance writes impedance samples with ImpedanceHeader
func Impedance(w io.Writer, samples []bode.ImpedanceSample) error {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			formatFloat(s.Frequency),
			formatFloat(s.GeneratorVpp),
			formatFloat(s.InputVpp),
			formatFloat(s.InputPhase),
			formatFloat(s.Module),
			formatFloat(s.Phase),
		})
	}
	return write(w, ImpedanceHeader, rows)
}
