package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/meterbook/internal/importer"
	"github.com/spf13/cobra"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import readings from a CSV file",
	Long: `Imports readings from a CSV file with a header row naming the date, unit, utility and
value columns. Rows that fail validation are reported and skipped; the valid rows are
stored in a single transaction.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the file without storing anything")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening CSV file: %w", err)
	}
	defer file.Close()

	res, err := importer.ParseCSV(file)
	if err != nil {
		return fmt.Errorf("parsing CSV file: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	for _, rowErr := range res.Errors {
		logger.UserMessage("  skipped %s", rowErr)
	}
	logger.UserMessage("%s valid rows, %s skipped", humanize.Comma(int64(len(res.Inputs))), humanize.Comma(int64(len(res.Errors))))

	if importDryRun || len(res.Inputs) == 0 {
		return nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.CreateBatch(cmd.Context(), res.Inputs)
	if err != nil {
		return fmt.Errorf("storing readings: %w", err)
	}
	logger.Info().Int("count", n).Str("file", args[0]).Msg("Readings imported")

	logger.UserMessage("Imported %s readings", humanize.Comma(int64(n)))
	return nil
}
