package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/roman-kulish/labtool/internal/instrument"
	"github.com/roman-kulish/labtool/internal/instrument/generator"
	"github.com/roman-kulish/labtool/internal/instrument/scope"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List supported models and attached USB instruments",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "Supported models:")
	for _, e := range scope.NewRegistry().Models() {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", instrument.RoleOscilloscope, e.Brand, e.Model)
	}
	for _, e := range generator.NewRegistry().Models() {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", instrument.RoleGenerator, e.Brand, e.Model)
	}

	devices, err := instrument.ListUSB()
	if err != nil {
		_ = w.Flush()
		return fmt.Errorf("list USB instruments: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(w, "No USB instruments found.")
		return w.Flush()
	}

	fmt.Fprintln(w, "USB instruments:")
	for _, d := range devices {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", d.Resource, d.Manufacturer, d.Product)
	}
	return w.Flush()
}
