package models

import "time"

// BasicCounts are the cheap always-available aggregates computed in the
// first stats phase. Everything richer builds on top of them.
type BasicCounts struct {
	TotalMissions   int64 `json:"total_missions"`
	UniqueRobots    int64 `json:"unique_robots"`
	TotalDataPoints int64 `json:"total_data_points"`
}

// BatteryAnalysis summarizes fleet battery behavior across stored missions.
type BatteryAnalysis struct {
	AvgStartBattery float64 `json:"avg_start_battery"`
	AvgEndBattery   float64 `json:"avg_end_battery"`
	AvgBatteryDrain float64 `json:"avg_battery_drain"`
	MinBattery      float64 `json:"min_battery"`
	MaxBattery      float64 `json:"max_battery"`
}

// LocationBucket is one (site, line) pair with its mission count.
type LocationBucket struct {
	Site  string `bson:"site" json:"site"`
	Line  string `bson:"line" json:"line"`
	Count int64  `bson:"count" json:"count"`
}

// LocationAnalysis ranks plant locations by mission traffic.
type LocationAnalysis struct {
	BusiestLocations []LocationBucket `json:"busiest_locations"`
	TotalLocations   int              `json:"total_locations"`
}

// MissionPerformance describes mission duration characteristics.
type MissionPerformance struct {
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
	MinDurationMinutes float64 `json:"min_duration_minutes"`
	MaxDurationMinutes float64 `json:"max_duration_minutes"`
}

// RobotPerformance describes per-robot productivity.
type RobotPerformance struct {
	ActiveRobotsToday   int64   `json:"active_robots_today"`
	TopPerformers       []any   `json:"top_performers"`
	AvgMissionsPerRobot float64 `json:"avg_missions_per_robot"`
}

// SensorAnalysis carries environment averages, populated in normalized mode
// where data points are directly aggregatable.
type SensorAnalysis struct {
	AvgTemperature       float64 `json:"avg_temperature"`
	AvgHumidity          float64 `json:"avg_humidity"`
	AvgLocalizationScore float64 `json:"avg_localization_score"`
}

// RealTimeStats is the full statistics snapshot served from the TTL cache.
// Error marks a phase-1 failure (no usable data); Partial marks a phase-2
// failure (basic counts valid, rich fields are neutral defaults).
type RealTimeStats struct {
	TotalMissions   int64 `json:"total_missions"`
	TotalDataPoints int64 `json:"total_data_points"`
	UniqueRobots    int64 `json:"unique_robots"`

	RecentMissions int64 `json:"recent_missions"`

	BatteryAnalysis    BatteryAnalysis    `json:"battery_analysis"`
	LocationAnalysis   LocationAnalysis   `json:"location_analysis"`
	MissionPerformance MissionPerformance `json:"mission_performance"`
	RobotPerformance   RobotPerformance   `json:"robot_performance"`
	SensorAnalysis     SensorAnalysis     `json:"sensor_analysis"`

	DataEfficiency float64 `json:"data_efficiency"`
	StorageMode    string  `json:"storage_mode"`
	DataQuality    string  `json:"data_quality"`

	QueryExecutionTimeMS float64   `json:"query_execution_time"`
	LastUpdate           time.Time `json:"last_update"`
	Error                bool      `json:"error"`
	Partial              bool      `json:"partial"`
}

// DailyStats is the dashboard's daily rollup.
type DailyStats struct {
	CompletedMissions int     `json:"completed_missions"`
	TotalDataPoints   int     `json:"total_data_points"`
	SuccessRate       float64 `json:"success_rate"`
	AvgProcessTime    float64 `json:"avg_process_time"`
	Date              string  `json:"date"`
}

// RobotStatusCounts maps lifecycle states onto the dashboard's buckets.
type RobotStatusCounts struct {
	Working int `json:"working"`
	Moving  int `json:"moving"`
	Idle    int `json:"idle"`
	Error   int `json:"error"`
}

// BatteryStats summarizes live fleet battery levels.
type BatteryStats struct {
	Average       float64 `json:"average"`
	LowCount      int     `json:"low_count"`
	CriticalCount int     `json:"critical_count"`
}

// BatteryAlert flags one robot with a low or critical battery level.
type BatteryAlert struct {
	RobotID      string `json:"robot_id"`
	BatteryLevel int    `json:"battery_level"`
}

// ErrorAlert flags one robot in the error state.
type ErrorAlert struct {
	RobotID      string `json:"robot_id"`
	ErrorMessage string `json:"error_message"`
}

// Alerts groups the operational alerts for the dashboard.
type Alerts struct {
	LowBattery    []BatteryAlert `json:"low_battery"`
	Errors        []ErrorAlert   `json:"errors"`
	CriticalCount int            `json:"critical_count"`
}

// OperationalStats is the manager-side fleet rollup served to the dashboard.
type OperationalStats struct {
	Success      bool              `json:"success"`
	DailyStats   DailyStats        `json:"daily_stats"`
	RobotStatus  RobotStatusCounts `json:"robot_status"`
	BatteryStats BatteryStats      `json:"battery_stats"`
	Alerts       Alerts            `json:"alerts"`
	Timestamp    time.Time         `json:"timestamp"`
}

// HealthReport describes store reachability, independent of cached stats,
// so callers can tell "store down" from "store up but empty".
type HealthReport struct {
	Status       string    `json:"status"` // "healthy" or "unhealthy"
	Collections  []string  `json:"collections,omitempty"`
	HasData      bool      `json:"has_data"`
	DatabaseName string    `json:"database_name"`
	Error        string    `json:"error,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}
