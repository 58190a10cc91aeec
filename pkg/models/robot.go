package models

import "time"

// RobotStatus is the lifecycle state of a simulated robot.
type RobotStatus string

const (
	StatusStopped     RobotStatus = "stopped"
	StatusRunning     RobotStatus = "running"
	StatusIdle        RobotStatus = "idle"
	StatusError       RobotStatus = "error"
	StatusMaintenance RobotStatus = "maintenance"
)

// RobotSnapshot is a point-in-time copy of a robot's state, safe to hand to
// encoders and callers without further locking.
type RobotSnapshot struct {
	RobotID         string      `json:"robot_id"`
	Status          RobotStatus `json:"status"`
	LastSeen        *time.Time  `json:"last_seen"`
	BatteryLevel    int         `json:"battery_level"`
	LastMissionTime *time.Time  `json:"last_mission_time"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	MissionsToday   int         `json:"missions_today"`
	DataPointsToday int         `json:"data_points_today"`
	StartTime       *time.Time  `json:"start_time"`
	TotalRuntime    float64     `json:"total_runtime"` // seconds
	Uptime          float64     `json:"uptime"`        // seconds since StartTime
}

// ProgressSnapshot describes a robot's in-flight generation cycle.
type ProgressSnapshot struct {
	CycleID             string          `json:"cycle_id,omitempty"`
	CurrentStep         string          `json:"current_step,omitempty"`
	StepDuration        float64         `json:"step_duration"` // seconds
	ProcessedMissions   int             `json:"processed_missions"`
	GeneratedDataPoints int             `json:"generated_data_points"`
	Errors              []ProgressError `json:"errors"`
	StepsCompleted      []StepResult    `json:"steps_completed"`
}

// ProgressError is one captured per-cycle fault.
type ProgressError struct {
	Message   string    `json:"message"`
	Step      string    `json:"step,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StepResult records the outcome of one named cycle step.
type StepResult struct {
	Step      string    `json:"step"`
	Success   bool      `json:"success"`
	Duration  float64   `json:"duration"` // seconds
	Timestamp time.Time `json:"timestamp"`
}
