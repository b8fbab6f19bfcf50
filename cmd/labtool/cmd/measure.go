package cmd

import (
	"fmt"

	"github.com/roman-kulish/labtool/cmd/labtool/app"
	"github.com/roman-kulish/labtool/internal/bode"
	"github.com/spf13/cobra"
)

var bodeCmd = &cobra.Command{
	Use:   "bode",
	Short: "Measure gain and phase over a frequency sweep",
	Long: `Sweep the generator over the configured frequencies and measure the ratio and
phase of the output channel against the input channel. The result is stored as
a new session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMeasurement(cmd, bode.ModeBode)
	},
}

var impedanceCmd = &cobra.Command{
	Use:   "impedance",
	Short: "Measure the input impedance of a circuit over a frequency sweep",
	Long: `Sweep the generator through a known series resistance into the circuit and
derive its impedance from the generator and input channels. The result is
stored as a new session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMeasurement(cmd, bode.ModeImpedance)
	},
}

func init() {
	rootCmd.AddCommand(bodeCmd)
	rootCmd.AddCommand(impedanceCmd)
}

func runMeasurement(cmd *cobra.Command, mode bode.Mode) error {
	config, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := app.Run(ctx, config, mode, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session %d: %d samples\n", result.SessionID, len(result.Samples))
	return nil
}
