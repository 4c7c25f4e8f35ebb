package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jgoulah/meterbook/internal/config"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/database"
	"github.com/jgoulah/meterbook/internal/logging"
	"github.com/jgoulah/meterbook/internal/publisher"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish consumption summaries to MQTT and Home Assistant",
	Long: `Publishes the latest monthly rate, trend and yearly total of every meter to the sinks
enabled in the config: retained MQTT messages and/or Home Assistant sensor states.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	addFilterFlags(publishCmd)
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	filter, err := getFilter()
	if err != nil {
		return err
	}

	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	logger.UserMessage("=== Publish started at %s ===", time.Now().Format("2006-01-02 15:04:05 MST"))

	pub, err := publisher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	n, err := publishOnce(cmd.Context(), cfg, db, pub, filter, logger)
	if err != nil {
		return err
	}

	logger.UserMessage("Published %d meters", n)
	return nil
}

// publishOnce derives the current summary and sends it, returning the number of meters
func publishOnce(ctx context.Context, cfg *config.Config, db *database.DB, pub *publisher.Publisher, filter consumption.Filter, logger *logging.Logger) (int, error) {
	readings, err := loadReadings(ctx, db, filter)
	if err != nil {
		return 0, fmt.Errorf("loading readings: %w", err)
	}

	rs := analysisOptions(cfg).BuildRateSeries(readings, filter)
	table := consumption.BuildYearlyTable(readings, filter)
	logger.LogDerivation("summary", len(readings), len(table.GroupKeys), len(rs.Points))

	summary := publisher.BuildSummary(rs, table)
	if err := pub.Publish(ctx, summary); err != nil {
		return 0, fmt.Errorf("publishing summary: %w", err)
	}
	return len(summary.Groups), nil
}
