package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportOut   string
	exportChart string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export readings and consumption to Excel",
	Long: `Writes an Excel workbook with the stored readings, the monthly rate series and the
yearly totals. Use --chart to also write the rate chart as a PNG file.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	addFilterFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "meterbook.xlsx", "Workbook output path")
	exportCmd.Flags().StringVar(&exportChart, "chart", "", "Also write the rate chart PNG to this path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	filter, err := getFilter()
	if err != nil {
		return err
	}

	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	readings, err := loadReadings(cmd.Context(), db, filter)
	if err != nil {
		return fmt.Errorf("loading readings: %w", err)
	}

	rs := analysisOptions(cfg).BuildRateSeries(readings, filter)
	table := consumption.BuildYearlyTable(readings, filter)

	f, err := export.Workbook(readings, rs, table)
	if err != nil {
		return fmt.Errorf("building workbook: %w", err)
	}
	defer f.Close()

	if err := f.SaveAs(exportOut); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	if info, err := os.Stat(exportOut); err == nil {
		logger.Info().Str("path", exportOut).Str("size", humanize.Bytes(uint64(info.Size()))).Msg("Workbook written")
	}
	logger.UserMessage("Exported %s readings to %s", humanize.Comma(int64(len(readings))), exportOut)

	if exportChart == "" {
		return nil
	}

	png, err := export.Chart(rs)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	if err := os.WriteFile(exportChart, png, 0644); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	logger.UserMessage("Chart written to %s", exportChart)

	return nil
}
