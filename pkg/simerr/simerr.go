// Package simerr defines the closed set of error kinds the simulator
// surfaces across package boundaries. Callers branch on Kind rather than
// string-matching messages.
package simerr

import (
	"errors"
	"fmt"
)

// Kind classifies a simulator error.
type Kind int

const (
	// KindNotFound means the requested robot id is unknown.
	KindNotFound Kind = iota
	// KindConflict means the robot is in a state that rejects the operation.
	KindConflict
	// KindStoreUnavailable means the document store cannot be reached.
	KindStoreUnavailable
	// KindPersistenceFailed means a write was attempted and failed.
	KindPersistenceFailed
	// KindAggregationDegraded means statistics were computed partially.
	KindAggregationDegraded
)

// String returns the wire-friendly name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindPersistenceFailed:
		return "persistence_failed"
	case KindAggregationDegraded:
		return "aggregation_degraded"
	default:
		return "unknown"
	}
}

// Error carries a kind plus the context needed to act on it.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "start", "save_mission"
	RobotID string // affected robot, if any
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.RobotID != "" && e.Msg != "":
		return fmt.Sprintf("%s: robot %s: %s", e.Op, e.RobotID, e.Msg)
	case e.RobotID != "":
		return fmt.Sprintf("%s: robot %s: %s", e.Op, e.RobotID, e.Kind)
	case e.Err != nil && e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so callers can use errors.Is with sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the kind from err, if err is (or wraps) a simulator error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// NotFound reports an unknown robot id.
func NotFound(op, robotID string) *Error {
	return &Error{Kind: KindNotFound, Op: op, RobotID: robotID, Msg: "robot not found"}
}

// Conflict reports an operation rejected by the robot's current state.
func Conflict(op, robotID, msg string) *Error {
	return &Error{Kind: KindConflict, Op: op, RobotID: robotID, Msg: msg}
}

// StoreUnavailable reports an unreachable document store.
func StoreUnavailable(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Op: op, Err: err}
}

// PersistenceFailed reports a failed write.
func PersistenceFailed(op, robotID string, err error) *Error {
	return &Error{Kind: KindPersistenceFailed, Op: op, RobotID: robotID, Err: err}
}

// AggregationDegraded reports partially computed statistics.
func AggregationDegraded(op string, err error) *Error {
	return &Error{Kind: KindAggregationDegraded, Op: op, Err: err}
}
