package config

import (
	"fmt"
	"time"
)

// Config holds the complete simulator configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Battery    BatteryConfig    `yaml:"battery"`
	Sensors    SensorRanges     `yaml:"sensor_ranges"`
	Locations  LocationsConfig  `yaml:"locations"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
}

// SimulationConfig holds fleet sizing and generation bounds.
type SimulationConfig struct {
	RobotCount         int    `yaml:"robot_count"`
	StrictMode         bool   `yaml:"strict_mode"`
	NormalizedStorage  bool   `yaml:"normalized_storage"`
	MissionDurationMin int    `yaml:"mission_duration_min"` // minutes
	MissionDurationMax int    `yaml:"mission_duration_max"` // minutes
	DataPointsMin      int    `yaml:"data_points_min"`
	DataPointsMax      int    `yaml:"data_points_max"`
	TimeGridMinutes    int    `yaml:"time_grid_minutes"`
	RandomSeed         *int64 `yaml:"random_seed,omitempty"` // nil means non-deterministic
}

// BatteryConfig bounds generated battery states, in percent.
type BatteryConfig struct {
	StartMin int `yaml:"start_min"`
	StartMax int `yaml:"start_max"`
	DrainMin int `yaml:"drain_min"`
	DrainMax int `yaml:"drain_max"`
}

// IntRange is an inclusive integer draw range.
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// FloatRange is an inclusive float draw range.
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// SensorRanges bounds every randomly drawn sensor field.
type SensorRanges struct {
	PosX              IntRange   `yaml:"pos_x"`
	PosY              IntRange   `yaml:"pos_y"`
	Theta             IntRange   `yaml:"theta"`
	LocalizationScore FloatRange `yaml:"localization_score"`
	TiltX             FloatRange `yaml:"tilt_x"`
	TiltY             FloatRange `yaml:"tilt_y"`
	NH3               FloatRange `yaml:"NH3"`
	H2S               FloatRange `yaml:"H2S"`
	VOCs              FloatRange `yaml:"VOCs"`
	F2                FloatRange `yaml:"F2"`
	HF                FloatRange `yaml:"HF"`
	Temperature       FloatRange `yaml:"temperature"`
	Humidity          FloatRange `yaml:"humidity"`
	Illuminance       FloatRange `yaml:"illuminance"`
	Noise             FloatRange `yaml:"noise"`
}

// LocationsConfig enumerates the curated plant locations. Strict mode draws
// only from these; free mode additionally permits the legacy values.
type LocationsConfig struct {
	Sites  []string `yaml:"sites"`
	Lines  []string `yaml:"lines"`
	Floors []string `yaml:"floors"`
	Area   string   `yaml:"area"`
}

// DatabaseConfig points at the MongoDB deployment.
type DatabaseConfig struct {
	URI                  string        `yaml:"connection_string"`
	Database             string        `yaml:"database_name"`
	MissionsCollection   string        `yaml:"collection_name"`
	DataPointsCollection string        `yaml:"data_points_collection"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
}

// SchedulingConfig controls the per-robot generation cadence.
type SchedulingConfig struct {
	MissionInterval time.Duration `yaml:"mission_interval"`
}

// LoggingConfig defines console and rotating-file logging.
type LoggingConfig struct {
	Level      string `yaml:"level"` // "debug", "info", "warn", "error"
	File       string `yaml:"file"`  // empty disables file output
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"backup_count"`
	NoColor    bool   `yaml:"no_color"`
}

// APIConfig defines the HTTP control surface.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Validate checks the configuration for values the simulator cannot run on.
func (c *Config) Validate() error {
	if c.Simulation.RobotCount <= 0 {
		return fmt.Errorf("robot count must be positive")
	}

	if c.Simulation.MissionDurationMin <= 0 || c.Simulation.MissionDurationMax < c.Simulation.MissionDurationMin {
		return fmt.Errorf("mission duration range [%d, %d] is invalid",
			c.Simulation.MissionDurationMin, c.Simulation.MissionDurationMax)
	}

	if c.Simulation.DataPointsMin <= 0 || c.Simulation.DataPointsMax < c.Simulation.DataPointsMin {
		return fmt.Errorf("data points range [%d, %d] is invalid",
			c.Simulation.DataPointsMin, c.Simulation.DataPointsMax)
	}

	if c.Simulation.TimeGridMinutes <= 0 {
		return fmt.Errorf("time grid must be positive")
	}

	if c.Battery.StartMin < 0 || c.Battery.StartMax > 100 || c.Battery.StartMax < c.Battery.StartMin {
		return fmt.Errorf("battery start range [%d, %d] must sit within [0, 100]",
			c.Battery.StartMin, c.Battery.StartMax)
	}

	if c.Battery.DrainMin < 0 || c.Battery.DrainMax < c.Battery.DrainMin {
		return fmt.Errorf("battery drain range [%d, %d] is invalid",
			c.Battery.DrainMin, c.Battery.DrainMax)
	}

	if c.Scheduling.MissionInterval <= 0 {
		return fmt.Errorf("mission interval must be positive")
	}

	if c.Database.URI == "" {
		return fmt.Errorf("database connection string is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if len(c.Locations.Sites) == 0 || len(c.Locations.Lines) == 0 || len(c.Locations.Floors) == 0 {
		return fmt.Errorf("location sets must not be empty")
	}

	return nil
}

// GetDefaultConfig returns the configuration used when no file is provided.
func GetDefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			RobotCount:         30,
			StrictMode:         true,
			NormalizedStorage:  false,
			MissionDurationMin: 4,
			MissionDurationMax: 10,
			DataPointsMin:      5,
			DataPointsMax:      15,
			TimeGridMinutes:    10,
		},
		Battery: BatteryConfig{
			StartMin: 60,
			StartMax: 100,
			DrainMin: 5,
			DrainMax: 20,
		},
		Sensors: SensorRanges{
			PosX:              IntRange{Min: 0, Max: 50000},
			PosY:              IntRange{Min: 0, Max: 30000},
			Theta:             IntRange{Min: 0, Max: 360},
			LocalizationScore: FloatRange{Min: 80, Max: 100},
			TiltX:             FloatRange{Min: -5, Max: 5},
			TiltY:             FloatRange{Min: -5, Max: 5},
			NH3:               FloatRange{Min: 0, Max: 25},
			H2S:               FloatRange{Min: 0, Max: 10},
			VOCs:              FloatRange{Min: 0, Max: 50},
			F2:                FloatRange{Min: 0, Max: 1},
			HF:                FloatRange{Min: 0, Max: 3},
			Temperature:       FloatRange{Min: 18, Max: 28},
			Humidity:          FloatRange{Min: 30, Max: 70},
			Illuminance:       FloatRange{Min: 100, Max: 1000},
			Noise:             FloatRange{Min: 40, Max: 90},
		},
		Locations: LocationsConfig{
			Sites:  []string{"P1", "P2", "P3"},
			Lines:  []string{"L1", "L2", "L3", "L4"},
			Floors: []string{"1F", "2F", "4F"},
			Area:   "FAB",
		},
		Database: DatabaseConfig{
			URI:                  "mongodb://localhost:27017/",
			Database:             "robot_data",
			MissionsCollection:   "robot_missions",
			DataPointsCollection: "robot_data_points",
			ConnectTimeout:       10 * time.Second,
		},
		Scheduling: SchedulingConfig{
			MissionInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
	}
}

// RobotIDs derives the stable fleet identifier list: AGV-001 .. AGV-NNN.
func (c *Config) RobotIDs() []string {
	ids := make([]string, 0, c.Simulation.RobotCount)
	for i := 1; i <= c.Simulation.RobotCount; i++ {
		ids = append(ids, fmt.Sprintf("AGV-%03d", i))
	}
	return ids
}
