package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file. Malformed or invalid
// configuration is a startup fault: the error is returned and the caller
// is expected to abort.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Start from defaults so partial files only override what they name.
	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads config from the given path, falling back to the
// defaults (plus environment overrides) when no path is given or the file
// is missing.
func LoadConfigOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}

	for _, candidate := range []string{"config.yaml", "fleet-sim.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return LoadConfig(candidate)
		}
	}

	config := GetDefaultConfig()
	applyEnvOverrides(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyEnvOverrides lets deployment environments tune the config without
// editing the file. Only recognized FLEET_* variables are honored.
func applyEnvOverrides(config *Config) {
	if uri := os.Getenv("FLEET_MONGO_URI"); uri != "" {
		config.Database.URI = uri
	}

	if db := os.Getenv("FLEET_MONGO_DATABASE"); db != "" {
		config.Database.Database = db
	}

	if count := os.Getenv("FLEET_ROBOT_COUNT"); count != "" {
		if n, err := strconv.Atoi(count); err == nil && n > 0 {
			config.Simulation.RobotCount = n
		}
	}

	if seed := os.Getenv("FLEET_RANDOM_SEED"); seed != "" {
		if s, err := strconv.ParseInt(seed, 10, 64); err == nil {
			config.Simulation.RandomSeed = &s
		}
	}

	if strict := os.Getenv("FLEET_STRICT_MODE"); strict != "" {
		if b, err := strconv.ParseBool(strict); err == nil {
			config.Simulation.StrictMode = b
		}
	}

	if normalized := os.Getenv("FLEET_NORMALIZED_STORAGE"); normalized != "" {
		if b, err := strconv.ParseBool(normalized); err == nil {
			config.Simulation.NormalizedStorage = b
		}
	}

	if level := os.Getenv("FLEET_LOG_LEVEL"); level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		for _, valid := range validLevels {
			if strings.ToLower(level) == valid {
				config.Logging.Level = valid
				break
			}
		}
	}

	if addr := os.Getenv("FLEET_LISTEN_ADDR"); addr != "" {
		config.API.ListenAddr = addr
	}
}
