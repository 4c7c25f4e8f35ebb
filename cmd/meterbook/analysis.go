package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/spf13/cobra"
)

const rateRule = "----------------------------------------"

var yearlyAll bool

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show normalized monthly consumption rates",
	Long: `Computes the consumption between consecutive readings of every meter, normalized to
an average month, together with a smoothed trend.`,
	Args: cobra.NoArgs,
	RunE: runRates,
}

var yearlyCmd = &cobra.Command{
	Use:   "yearly",
	Short: "Show estimated consumption per calendar year",
	Long: `Estimates each meter's consumption per calendar year by interpolating the meter value
on January 1 and December 31. Years not bracketed by readings are shown as "-".`,
	Args: cobra.NoArgs,
	RunE: runYearly,
}

func init() {
	addFilterFlags(ratesCmd)
	addFilterFlags(yearlyCmd)
	yearlyCmd.Flags().BoolVar(&yearlyAll, "all", false, "Include years without any estimate")
	rootCmd.AddCommand(ratesCmd, yearlyCmd)
}

func formatAmount(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func runRates(cmd *cobra.Command, args []string) error {
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
	logger.LogDerivation("rates", len(readings), len(rs.Series), len(rs.Points))

	if rs.Empty() {
		logger.UserMessage("Not enough readings: each meter needs at least two readings on different dates")
		return nil
	}

	for _, s := range rs.Series {
		logger.UserMessage("\n%s (%s/month):", s.DisplayKey, s.Key.Utility.MeasurementUnit())
		logger.UserMessage(rateRule)
		logger.UserMessage("%-12s  %12s  %12s", "Date", "Rate", "Trend")
		logger.UserMessage(rateRule)

		for _, p := range rs.Points {
			v, ok := p.Values[s.Key]
			if !ok {
				continue
			}
			logger.UserMessage("%-12s  %12s  %12s", p.Date, formatAmount(v.Rate), formatAmount(v.Trend))
		}
	}

	return nil
}

func runYearly(cmd *cobra.Command, args []string) error {
	filter, err := getFilter()
	if err != nil {
		return err
	}

	_, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	readings, err := loadReadings(cmd.Context(), db, filter)
	if err != nil {
		return fmt.Errorf("loading readings: %w", err)
	}

	table := consumption.BuildYearlyTable(readings, filter)
	logger.LogDerivation("yearly", len(readings), len(table.GroupKeys), len(table.Rows))

	rows := table.Rows
	if !yearlyAll {
		rows = table.NonEmptyRows()
	}
	if len(rows) == 0 {
		logger.UserMessage("No complete calendar year is covered by readings")
		return nil
	}

	header := []string{fmt.Sprintf("%-6s", "Year")}
	for _, key := range table.GroupKeys {
		header = append(header, fmt.Sprintf("%24s", key.Label()))
	}
	headerLine := strings.Join(header, "  ")
	logger.UserMessage("%s", headerLine)
	logger.UserMessage("%s", strings.Repeat("-", len(headerLine)))

	for _, row := range rows {
		line := []string{fmt.Sprintf("%-6d", row.Year)}
		for _, key := range table.GroupKeys {
			cell := "-"
			if v, ok := row.Value(key); ok {
				cell = formatAmount(v) + " " + key.Utility.MeasurementUnit()
			}
			line = append(line, fmt.Sprintf("%24s", cell))
		}
		logger.UserMessage("%s", strings.Join(line, "  "))
	}

	return nil
}
