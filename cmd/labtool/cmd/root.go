package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/labtool/cmd/labtool/app"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "labtool",
	Short: "Bode and impedance measurements with a bench oscilloscope and generator",
	Long: `Drive a SCPI oscilloscope and function generator through a frequency sweep,
measuring the gain and phase of a circuit or the impedance it presents.
Results are stored as sessions and can be exported to CSV or plotted.

Instruments are addressed by resource strings:
  USB::0x0957::0x1796::MY12345678::INSTR   USBTMC
  TCPIP::192.168.1.10::5025::SOCKET        raw socket
  ASRL::/dev/ttyUSB0::9600::INSTR          serial port
  GPIB::/dev/ttyUSB0::10::INSTR            Prologix GPIB-USB controller
  SIM::scope, SIM::generator               built-in simulated bench

Examples:
  labtool bode -c bench.yaml          # Run a Bode sweep
  labtool sessions -c bench.yaml      # List stored sessions
  labtool plot 3 -o session-3.png     # Plot session 3`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads the configuration, falling back to the defaults when no file is
// given, and builds the logger at the configured level
func setup() (*app.Config, *slog.Logger, error) {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	config := app.NewConfig()
	if configPath != "" {
		var err error
		if config, err = app.LoadConfig(configPath); err != nil {
			return nil, nil, fmt.Errorf("failed to load configuration file '%s': %w", configPath, err)
		}
	}

	logLevel.Set(config.Settings.LogLevel)
	if verbose {
		logLevel.Set(slog.LevelDebug)
	}

	return config, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
