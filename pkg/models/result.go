package models

import "time"

// SaveOperation classifies what a mission save actually did at the store.
type SaveOperation string

const (
	OpInsert   SaveOperation = "insert"
	OpUpdate   SaveOperation = "update"
	OpNoChange SaveOperation = "no_change"
	OpError    SaveOperation = "error"
)

// SaveResult is the structured outcome of one persistence attempt. It is
// never stored; the lifecycle manager consumes it immediately to decide
// whether the owning robot keeps running or transitions to error.
type SaveResult struct {
	Success        bool          `json:"success"`
	Operation      SaveOperation `json:"operation_type"`
	MatchedCount   int64         `json:"matched_count"`
	ModifiedCount  int64         `json:"modified_count"`
	UpsertedID     string        `json:"upserted_id,omitempty"`
	InsertedPoints int           `json:"inserted_points,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	Elapsed        time.Duration `json:"-"`
	ElapsedSeconds float64       `json:"execution_time"`
	Timestamp      time.Time     `json:"timestamp"`
}
