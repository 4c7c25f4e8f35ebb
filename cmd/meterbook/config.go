package main

import (
	"fmt"
	"os"

	"github.com/jgoulah/meterbook/internal/config"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long: `Writes the default settings to the config file (--config, default config.yaml).
Publishing to MQTT and Home Assistant is left disabled. An existing file is only
replaced with --force.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// initConfigFile writes the default config to path
func initConfigFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking config file: %w", err)
		}
	}
	return config.Save(path, config.Default())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if err := initConfigFile(path, configForce); err != nil {
		return err
	}

	logger := newLogger(config.Default())
	logger.UserMessage("Wrote default config to %s", path)
	return nil
}
