package main

import (
	"fmt"

	"github.com/jgoulah/meterbook/internal/config"
	"github.com/jgoulah/meterbook/internal/consumption"
	"github.com/jgoulah/meterbook/internal/database"
	"github.com/jgoulah/meterbook/internal/logging"
	"github.com/jgoulah/meterbook/pkg/models"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags
var version = "dev"

var (
	cfgFile string
	dbPath  string
	debug   bool

	filterUnit    int
	filterUtility string
)

var rootCmd = &cobra.Command{
	Use:   "meterbook",
	Short: "Track utility meter readings and derive consumption",
	Long: `Meterbook records cumulative gas, water and electricity meter readings for the
housing units of a building and derives normalized monthly consumption rates, smoothed
trends and estimated yearly totals from them. Readings are stored in a local SQLite database.`,
	SilenceUsage: true,
	Version:      version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data/meter.db)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// addFilterFlags registers --unit and --utility on a command
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&filterUnit, "unit", 0, "Only include this housing unit (1 or 2)")
	cmd.Flags().StringVar(&filterUtility, "utility", "", "Only include this utility (gas, water or electricity)")
}

// getFilter validates the filter flags
func getFilter() (consumption.Filter, error) {
	var f consumption.Filter
	if filterUnit != 0 {
		f.Unit = models.Unit(filterUnit)
		if !f.Unit.Valid() {
			return f, fmt.Errorf("--unit must be 1 or 2")
		}
	}
	if filterUtility != "" {
		u, err := models.ParseUtility(filterUtility)
		if err != nil {
			return f, fmt.Errorf("--utility: %w", err)
		}
		f.Utility = u
	}
	return f, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads and validates the configuration file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates the process logger from config
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(cfg.GetLogLevel(), cfg.Log.JSON)
}

// analysisOptions returns the consumption constants from config
func analysisOptions(cfg *config.Config) consumption.Options {
	return consumption.Options{
		DaysPerMonth:     cfg.GetDaysPerMonth(),
		TrendWeightFloor: cfg.GetTrendWeightFloor(),
	}
}

// openDB opens the database connection
func openDB(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// setup loads config and opens the logger and database shared by most commands
func setup() (*config.Config, *logging.Logger, *database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug().Str("path", cfg.GetDatabasePath()).Msg("Database opened")

	return cfg, logger, db, nil
}
