package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fleet-sim",
	Short: "AGV fleet simulator",
	Long: `Fleet-sim simulates a fleet of autonomous patrol robots: it generates
missions with realistic sensor data, persists them idempotently to MongoDB,
and exposes an HTTP control surface for dashboards.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml, ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig configures logging and viper's env binding before any command runs
func initConfig() {
	logger.SetLevel(logger.ParseLevel(logLevel))
	logger.SetNoColor(noColor)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("FLEET")
	viper.AutomaticEnv() // read in environment variables that match

	_ = viper.ReadInConfig()
}

// loadConfig resolves the effective configuration for a command, applying
// the rotating file sink when one is configured.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigOrDefault(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Logging.Level != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	}
	if cfg.Logging.NoColor {
		logger.SetNoColor(true)
	}
	if cfg.Logging.File != "" {
		logger.EnableFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}
	return cfg, nil
}
