package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/database"
	"github.com/jgoulah/meterbook/pkg/models"
	"github.com/spf13/cobra"
)

const tableRule = "------------------------------------------------------------------"

var (
	readingDate    string
	readingUnit    int
	readingUtility string
	readingValue   float64
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a meter reading",
	Example: `  meterbook add --unit 1 --utility gas --value 1234.5
  meterbook add --date 2024-03-01 --unit 2 --utility water --value 87`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored readings",
	Long:  `Displays stored meter readings ordered by date.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a stored reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func addReadingFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&readingDate, "date", "", "Reading date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&readingUnit, "unit", 0, "Housing unit (1 or 2)")
	cmd.Flags().StringVar(&readingUtility, "utility", "", "Utility (gas, water or electricity)")
	cmd.Flags().Float64Var(&readingValue, "value", 0, "Cumulative meter value")
	cmd.MarkFlagRequired("unit")
	cmd.MarkFlagRequired("utility")
	cmd.MarkFlagRequired("value")
}

func init() {
	addReadingFlags(addCmd)
	addReadingFlags(updateCmd)
	updateCmd.MarkFlagRequired("date")
	addFilterFlags(listCmd)

	rootCmd.AddCommand(addCmd, listCmd, updateCmd, deleteCmd)
}

func readingInput() (models.ReadingInput, error) {
	input := models.ReadingInput{
		Date:    readingDate,
		Unit:    models.Unit(readingUnit),
		Utility: models.Utility(readingUtility),
		Value:   readingValue,
	}
	return input, input.Validate()
}

func parseReadingID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid reading id %q", s)
	}
	return id, nil
}

// loadReadings fetches the readings selected by the filter
func loadReadings(ctx context.Context, db *database.DB, f consumption.Filter) ([]models.Reading, error) {
	if f.Unit == 0 && f.Utility == "" {
		return db.ListAll(ctx)
	}
	return db.ListFiltered(ctx, f.Unit, f.Utility)
}

func formatReading(r *models.Reading) string {
	return fmt.Sprintf("#%d  %s  %s  %s  %s %s",
		r.ID, r.Date, r.Unit.Label(), r.Utility.Label(),
		humanize.CommafWithDigits(r.Value, 2), r.Utility.MeasurementUnit())
}

func runAdd(cmd *cobra.Command, args []string) error {
	// Readings are taken today unless stated otherwise
	if readingDate == "" {
		readingDate = time.Now().Format(models.DateLayout)
	}

	input, err := readingInput()
	if err != nil {
		return err
	}

	_, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	reading, err := db.Create(cmd.Context(), input)
	if err != nil {
		return fmt.Errorf("saving reading: %w", err)
	}
	logger.LogStorageOperation("create", reading.ID)

	logger.UserMessage("Saved %s", formatReading(reading))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("listing readings: %w", err)
	}

	if len(readings) == 0 {
		logger.UserMessage("No readings found")
		return nil
	}

	logger.UserMessage(tableRule)
	logger.UserMessage("%6s  %-10s  %-12s  %-8s  %16s", "ID", "Date", "Unit", "Utility", "Value")
	logger.UserMessage(tableRule)

	for _, r := range readings {
		value := humanize.CommafWithDigits(r.Value, 2) + " " + r.Utility.MeasurementUnit()
		logger.UserMessage("%6d  %-10s  %-12s  %-8s  %16s", r.ID, r.Date, r.Unit.Label(), r.Utility.Label(), value)
	}

	logger.UserMessage(tableRule)
	logger.UserMessage("%s readings", humanize.Comma(int64(len(readings))))
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseReadingID(args[0])
	if err != nil {
		return err
	}

	input, err := readingInput()
	if err != nil {
		return err
	}

	_, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	reading, err := db.Update(cmd.Context(), id, input)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("reading %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("updating reading: %w", err)
	}
	logger.LogStorageOperation("update", id)

	logger.UserMessage("Updated %s", formatReading(reading))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseReadingID(args[0])
	if err != nil {
		return err
	}

	_, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := db.Delete(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("deleting reading: %w", err)
	}
	if !deleted {
		return fmt.Errorf("reading %d not found", id)
	}
	logger.LogStorageOperation("delete", id)

	logger.UserMessage("Deleted reading #%d", id)
	return nil
}
