package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/roman-kulish/labtool/cmd/labtool/app"
	"github.com/roman-kulish/labtool/internal/plot"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored measurement sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var exportCmd = &cobra.Command{
	Use:   "export <session>",
	Short: "Export a session to CSV",
	Long: `Write the samples of a session as CSV. Impedance sessions are converted to
impedance values using the series resistance they were measured with.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var plotCmd = &cobra.Command{
	Use:   "plot <session>",
	Short: "Plot a session",
	Long: `Render the module and phase of a session against a logarithmic frequency axis.
Bode sessions plot gain in dB, impedance sessions plot ohms.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

var (
	outputPath  string
	imageFormat string
)

func init() {
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file, standard output when empty")
	plotCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output image file (required)")
	plotCmd.Flags().StringVarP(&imageFormat, "format", "f", string(plot.ImagePNG), "image format, png or jpeg")
	_ = plotCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(plotCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	config, _, err := setup()
	if err != nil {
		return err
	}

	store, err := app.OpenStore(&config.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tMODE\tOSCILLOSCOPE\tGENERATOR")
	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.StartTime.Local().Format("2006-01-02 15:04:05"), s.Mode, s.Scope, s.Generator)
	}
	return w.Flush()
}

func loadReport(cmd *cobra.Command, arg string) (*app.Report, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid session id '%s'", arg)
	}

	config, _, err := setup()
	if err != nil {
		return nil, err
	}

	store, err := app.OpenStore(&config.Storage)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return app.LoadReport(cmd.Context(), store, id)
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	report, err := loadReport(cmd, args[0])
	if err != nil {
		return err
	}

	if outputPath == "" {
		return report.WriteCSV(cmd.OutOrStdout())
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return report.WriteCSV(f)
}

func runPlot(cmd *cobra.Command, args []string) (err error) {
	format, err := plot.ParseImageFormat(imageFormat)
	if err != nil {
		return err
	}

	report, err := loadReport(cmd, args[0])
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if err = report.WritePlot(f, format); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Session %d plotted to %s\n", report.Session.ID, outputPath)
	return nil
}
