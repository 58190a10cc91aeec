// Package manager owns the robot lifecycle: each started robot runs a
// background generation loop that periodically produces a mission and hands
// it to the persistence sink. All state transitions go through the manager,
// which is safe for concurrent use.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/generator"
	"github.com/agvsim/fleet-simulator/pkg/logger"
	"github.com/agvsim/fleet-simulator/pkg/models"
	"github.com/agvsim/fleet-simulator/pkg/simerr"
)

// stopJoinTimeout bounds how long Stop waits for a unit's loop to exit
// before abandoning it. An abandoned loop still terminates on its own; it
// is just no longer waited on.
const stopJoinTimeout = 5 * time.Second

// MissionSink receives generated missions. *store.Gateway is the production
// implementation.
type MissionSink interface {
	SaveMission(ctx context.Context, m *models.Mission) models.SaveResult
}

// Result is the outcome of a single-robot lifecycle operation.
type Result struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Robot   *models.RobotSnapshot `json:"robot,omitempty"`
}

// FleetResult is the outcome of a fleet-wide lifecycle operation.
type FleetResult struct {
	Success  bool   `json:"success"`
	Affected int    `json:"affected"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

// CycleResult is the outcome of a one-shot whole-fleet generation cycle.
type CycleResult struct {
	Success        bool     `json:"success"`
	Missions       int      `json:"missions"`
	Inserted       int      `json:"inserted"`
	Updated        int      `json:"updated"`
	Unchanged      int      `json:"unchanged"`
	Failed         int      `json:"failed"`
	DataPoints     int      `json:"data_points"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	Errors         []string `json:"errors,omitempty"`
}

// unit is the manager-internal state of one robot. Its mutex guards every
// mutable field; the run loop goroutine and API callers both go through it.
type unit struct {
	id string

	mu              sync.RWMutex
	status          models.RobotStatus
	batteryLevel    int
	errorMessage    string
	lastSeen        *time.Time
	lastMissionTime *time.Time
	startTime       *time.Time
	missionsToday   int
	dataPointsToday int
	totalRuntime    float64

	cancel   context.CancelFunc
	done     chan struct{}
	progress *progressTracker
}

// Manager coordinates the fleet. The unit set is fixed at construction from
// the configured robot count.
type Manager struct {
	cfg   *config.Config
	sink  MissionSink
	log   logger.Logger
	ids   []string
	units map[string]*unit
}

// New builds a manager with every robot in the stopped state.
func New(cfg *config.Config, sink MissionSink) *Manager {
	ids := cfg.RobotIDs()
	units := make(map[string]*unit, len(ids))
	for _, id := range ids {
		units[id] = &unit{
			id:           id,
			status:       models.StatusStopped,
			batteryLevel: estimateBattery(0),
			progress:     newProgressTracker(),
		}
	}

	return &Manager{
		cfg:   cfg,
		sink:  sink,
		log:   logger.WithPrefix("manager"),
		ids:   ids,
		units: units,
	}
}

// estimateBattery approximates charge from today's workload: each mission
// costs roughly two percent off a nominal 85% resting charge.
func estimateBattery(missionsToday int) int {
	level := 85 - 2*missionsToday
	if level < 0 {
		level = 0
	}
	return level
}

func (m *Manager) unit(id string) (*unit, bool) {
	u, ok := m.units[id]
	return u, ok
}

// Start transitions a robot to running and launches its generation loop.
func (m *Manager) Start(id string) (*Result, error) {
	u, ok := m.unit(id)
	if !ok {
		return nil, simerr.NotFound("start", id)
	}

	u.mu.Lock()
	if u.status == models.StatusRunning {
		u.mu.Unlock()
		return nil, simerr.Conflict("start", id, "robot is already running")
	}

	now := time.Now()
	u.status = models.StatusRunning
	u.errorMessage = ""
	u.startTime = &now
	u.lastSeen = &now

	// Restarting after an error: the previous loop exited on its own, but
	// its context is still held.
	if u.cancel != nil {
		u.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	u.done = make(chan struct{})
	u.mu.Unlock()

	go m.runUnit(ctx, u)

	m.log.Infof("robot %s started", id)
	snap := m.snapshot(u)
	return &Result{Success: true, Message: fmt.Sprintf("robot %s started", id), Robot: &snap}, nil
}

// Stop halts a running robot's loop and waits for it to exit. Only running
// robots can be stopped; recovery from the error state goes through Reset.
func (m *Manager) Stop(id string) (*Result, error) {
	u, ok := m.unit(id)
	if !ok {
		return nil, simerr.NotFound("stop", id)
	}

	u.mu.Lock()
	if u.status != models.StatusRunning {
		u.mu.Unlock()
		return nil, simerr.Conflict("stop", id, "robot is not running")
	}

	cancel := u.cancel
	done := u.done
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(stopJoinTimeout):
			m.log.Warnf("robot %s loop did not exit within %s, abandoning", id, stopJoinTimeout)
		}
	}

	now := time.Now()
	u.mu.Lock()
	if u.startTime != nil {
		u.totalRuntime += now.Sub(*u.startTime).Seconds()
	}
	u.status = models.StatusStopped
	u.errorMessage = ""
	u.startTime = nil
	u.lastSeen = &now
	u.cancel = nil
	u.done = nil
	u.mu.Unlock()

	m.log.Infof("robot %s stopped", id)
	snap := m.snapshot(u)
	return &Result{Success: true, Message: fmt.Sprintf("robot %s stopped", id), Robot: &snap}, nil
}

// Reset returns a robot to its initial state, zeroing daily counters and
// runtime. A running robot is stopped first.
func (m *Manager) Reset(id string) (*Result, error) {
	u, ok := m.unit(id)
	if !ok {
		return nil, simerr.NotFound("reset", id)
	}

	u.mu.RLock()
	running := u.status == models.StatusRunning
	u.mu.RUnlock()
	if running {
		if _, err := m.Stop(id); err != nil {
			return nil, err
		}
	}

	u.mu.Lock()
	// An errored robot's loop already exited; release its context here.
	if u.cancel != nil {
		u.cancel()
		u.cancel = nil
		u.done = nil
	}
	u.status = models.StatusStopped
	u.batteryLevel = estimateBattery(0)
	u.errorMessage = ""
	u.lastSeen = nil
	u.lastMissionTime = nil
	u.startTime = nil
	u.missionsToday = 0
	u.dataPointsToday = 0
	u.totalRuntime = 0
	u.mu.Unlock()

	u.progress.Reset()

	m.log.Infof("robot %s reset", id)
	snap := m.snapshot(u)
	return &Result{Success: true, Message: fmt.Sprintf("robot %s reset", id), Robot: &snap}, nil
}

// StartAll starts every robot that is not already running.
func (m *Manager) StartAll() *FleetResult {
	return m.fleetOp("started", func(id string) error {
		_, err := m.Start(id)
		return err
	})
}

// StopAll stops every running or errored robot.
func (m *Manager) StopAll() *FleetResult {
	return m.fleetOp("stopped", func(id string) error {
		_, err := m.Stop(id)
		return err
	})
}

// ResetAll resets every robot that is not running.
func (m *Manager) ResetAll() *FleetResult {
	return m.fleetOp("reset", func(id string) error {
		_, err := m.Reset(id)
		return err
	})
}

// fleetOp applies op to every robot; conflicts count as skips rather than
// failures so fleet operations are idempotent.
func (m *Manager) fleetOp(verb string, op func(id string) error) *FleetResult {
	affected, skipped := 0, 0
	for _, id := range m.ids {
		if err := op(id); err != nil {
			skipped++
			continue
		}
		affected++
	}
	return &FleetResult{
		Success:  true,
		Affected: affected,
		Skipped:  skipped,
		Message:  fmt.Sprintf("%d robots %s, %d skipped", affected, verb, skipped),
	}
}

// Status returns the snapshot of one robot.
func (m *Manager) Status(id string) (*models.RobotSnapshot, error) {
	u, ok := m.unit(id)
	if !ok {
		return nil, simerr.NotFound("status", id)
	}
	snap := m.snapshot(u)
	return &snap, nil
}

// AllStatus returns snapshots for the whole fleet in robot id order.
func (m *Manager) AllStatus() []models.RobotSnapshot {
	snaps := make([]models.RobotSnapshot, 0, len(m.ids))
	for _, id := range m.ids {
		snaps = append(snaps, m.snapshot(m.units[id]))
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].RobotID < snaps[j].RobotID })
	return snaps
}

// Progress returns the in-flight cycle snapshot of one robot.
func (m *Manager) Progress(id string) (models.ProgressSnapshot, error) {
	u, ok := m.unit(id)
	if !ok {
		return models.ProgressSnapshot{}, simerr.NotFound("progress", id)
	}
	return u.progress.Snapshot(), nil
}

func (m *Manager) snapshot(u *unit) models.RobotSnapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()

	snap := models.RobotSnapshot{
		RobotID:         u.id,
		Status:          u.status,
		BatteryLevel:    u.batteryLevel,
		ErrorMessage:    u.errorMessage,
		LastSeen:        u.lastSeen,
		LastMissionTime: u.lastMissionTime,
		StartTime:       u.startTime,
		MissionsToday:   u.missionsToday,
		DataPointsToday: u.dataPointsToday,
		TotalRuntime:    u.totalRuntime,
	}
	// Uptime covers only the current run; it folds into TotalRuntime when
	// the robot stops.
	if u.startTime != nil {
		snap.Uptime = time.Since(*u.startTime).Seconds()
	}
	return snap
}

// runUnit is the per-robot generation loop. It exits on cancellation or on
// the first persistence failure, which leaves the robot in the error state
// with no automatic retry.
func (m *Manager) runUnit(ctx context.Context, u *unit) {
	defer close(u.done)

	gen := generator.NewForRobot(m.cfg, u.id)
	interval := m.cfg.Scheduling.MissionInterval

	for {
		u.progress.Reset()
		if !m.runMission(ctx, u, gen) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// runMission generates and persists one mission, returning false when the
// loop must exit.
func (m *Manager) runMission(ctx context.Context, u *unit, gen *generator.Generator) bool {
	if ctx.Err() != nil {
		return false
	}

	u.progress.StartStep("generate_mission")
	mission := gen.Mission(u.id, gen.MissionStart(time.Now()))
	u.progress.CompleteStep(true)

	u.progress.StartStep("persist_mission")
	result := m.sink.SaveMission(ctx, mission)
	if !result.Success {
		u.progress.AddError(result.ErrorMessage)
		u.progress.CompleteStep(false)
		m.failUnit(u, result.ErrorMessage)
		return false
	}
	u.progress.CompleteStep(true)
	u.progress.AddMission(len(mission.DataPoints))

	now := time.Now()
	u.mu.Lock()
	u.missionsToday++
	u.dataPointsToday += len(mission.DataPoints)
	u.lastMissionTime = &now
	u.lastSeen = &now
	u.batteryLevel = estimateBattery(u.missionsToday)
	u.mu.Unlock()

	m.log.Debugf("robot %s persisted mission (%s, %d points)",
		u.id, result.Operation, len(mission.DataPoints))
	return true
}

// failUnit transitions a unit to the error state after a persistence fault.
func (m *Manager) failUnit(u *unit, message string) {
	now := time.Now()
	u.mu.Lock()
	if u.startTime != nil {
		u.totalRuntime += now.Sub(*u.startTime).Seconds()
		u.startTime = nil
	}
	u.status = models.StatusError
	u.errorMessage = message
	u.lastSeen = &now
	u.mu.Unlock()

	m.log.Errorf("robot %s entered error state: %s", u.id, message)
}

// RunCycle generates and persists one mission for every robot, in robot id
// order with a single generator, so a fixed seed reproduces the exact same
// fleet output.
func (m *Manager) RunCycle(ctx context.Context) *CycleResult {
	started := time.Now()
	gen := generator.NewFromConfig(m.cfg)
	missions := gen.FleetMissions(m.ids, time.Now())

	result := &CycleResult{Success: true, Missions: len(missions)}
	for _, mission := range missions {
		save := m.sink.SaveMission(ctx, mission)
		if !save.Success {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: %s", mission.RobotID, save.ErrorMessage))
			continue
		}

		switch save.Operation {
		case models.OpInsert:
			result.Inserted++
		case models.OpUpdate:
			result.Updated++
		default:
			result.Unchanged++
		}
		result.DataPoints += len(mission.DataPoints)

		if u, ok := m.unit(mission.RobotID); ok {
			now := time.Now()
			u.mu.Lock()
			u.missionsToday++
			u.dataPointsToday += len(mission.DataPoints)
			u.lastMissionTime = &now
			u.lastSeen = &now
			u.batteryLevel = estimateBattery(u.missionsToday)
			u.mu.Unlock()
		}
	}

	result.Success = result.Failed == 0
	result.ElapsedSeconds = time.Since(started).Seconds()
	m.log.Infof("fleet cycle complete: %d missions (%d inserted, %d updated, %d unchanged, %d failed)",
		result.Missions, result.Inserted, result.Updated, result.Unchanged, result.Failed)
	return result
}

// OperationalStats builds the dashboard rollup from live unit state.
func (m *Manager) OperationalStats() *models.OperationalStats {
	snaps := m.AllStatus()

	stats := &models.OperationalStats{
		Success:   true,
		Timestamp: time.Now(),
	}
	stats.DailyStats.Date = time.Now().Format("2006-01-02")
	stats.Alerts.LowBattery = []models.BatteryAlert{}
	stats.Alerts.Errors = []models.ErrorAlert{}

	batterySum, batteryCount := 0, 0
	for _, snap := range snaps {
		stats.DailyStats.CompletedMissions += snap.MissionsToday
		stats.DailyStats.TotalDataPoints += snap.DataPointsToday

		switch snap.Status {
		case models.StatusRunning:
			stats.RobotStatus.Working++
		case models.StatusError:
			stats.RobotStatus.Error++
			stats.Alerts.Errors = append(stats.Alerts.Errors, models.ErrorAlert{
				RobotID:      snap.RobotID,
				ErrorMessage: snap.ErrorMessage,
			})
		default:
			// stopped, idle, and maintenance all count as idle; moving is
			// reserved for a future motion model.
			stats.RobotStatus.Idle++
		}

		// A zero battery level means "not yet observed" and is excluded
		// from averages and alerting.
		if snap.BatteryLevel == 0 {
			continue
		}
		batterySum += snap.BatteryLevel
		batteryCount++

		alert := models.BatteryAlert{RobotID: snap.RobotID, BatteryLevel: snap.BatteryLevel}
		if snap.BatteryLevel < 20 {
			stats.BatteryStats.CriticalCount++
			stats.Alerts.LowBattery = append(stats.Alerts.LowBattery, alert)
		} else if snap.BatteryLevel < 30 {
			stats.BatteryStats.LowCount++
			stats.Alerts.LowBattery = append(stats.Alerts.LowBattery, alert)
		}
	}

	stats.Alerts.CriticalCount = stats.BatteryStats.CriticalCount + stats.RobotStatus.Error

	if batteryCount > 0 {
		stats.BatteryStats.Average = float64(batterySum) / float64(batteryCount)
	}
	if len(snaps) > 0 {
		stats.DailyStats.SuccessRate =
			100 * float64(len(snaps)-stats.RobotStatus.Error) / float64(len(snaps))
	}
	return stats
}
