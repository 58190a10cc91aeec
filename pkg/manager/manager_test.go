package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/models"
	"github.com/agvsim/fleet-simulator/pkg/simerr"
)

// fakeSink records saved missions and can be scripted to fail.
type fakeSink struct {
	mu    sync.Mutex
	saved []*models.Mission
	fail  bool
	op    models.SaveOperation
}

func (f *fakeSink) SaveMission(_ context.Context, m *models.Mission) models.SaveResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return models.SaveResult{
			Success:      false,
			Operation:    models.OpError,
			ErrorMessage: "store offline",
			Timestamp:    time.Now(),
		}
	}

	f.saved = append(f.saved, m)
	op := f.op
	if op == "" {
		op = models.OpInsert
	}
	return models.SaveResult{
		Success:        true,
		Operation:      op,
		InsertedPoints: len(m.DataPoints),
		Timestamp:      time.Now(),
	}
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func (f *fakeSink) missions() []*models.Mission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Mission(nil), f.saved...)
}

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Simulation.RobotCount = 3
	seed := int64(42)
	cfg.Simulation.RandomSeed = &seed
	cfg.Scheduling.MissionInterval = 50 * time.Millisecond
	return cfg
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, message)
}

func TestStartUnknownRobot(t *testing.T) {
	m := New(testConfig(), &fakeSink{})

	_, err := m.Start("AGV-999")
	if err == nil {
		t.Fatal("expected error for unknown robot")
	}
	if kind, ok := simerr.KindOf(err); !ok || kind != simerr.KindNotFound {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestStartRunningRobotConflicts(t *testing.T) {
	m := New(testConfig(), &fakeSink{})
	defer m.StopAll()

	if _, err := m.Start("AGV-001"); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	_, err := m.Start("AGV-001")
	if kind, ok := simerr.KindOf(err); !ok || kind != simerr.KindConflict {
		t.Errorf("expected conflict on double start, got %v", err)
	}
}

func TestStopStoppedRobotConflicts(t *testing.T) {
	m := New(testConfig(), &fakeSink{})

	_, err := m.Stop("AGV-001")
	if kind, ok := simerr.KindOf(err); !ok || kind != simerr.KindConflict {
		t.Errorf("expected conflict stopping a stopped robot, got %v", err)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	sink := &fakeSink{}
	m := New(testConfig(), sink)

	result, err := m.Start("AGV-001")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if result.Robot.Status != models.StatusRunning {
		t.Errorf("expected running, got %s", result.Robot.Status)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap, _ := m.Status("AGV-001")
		return snap != nil && snap.MissionsToday >= 1
	}, "robot never completed a mission")

	if _, err := m.Stop("AGV-001"); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	snap, err := m.Status("AGV-001")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if snap.Status != models.StatusStopped {
		t.Errorf("expected stopped, got %s", snap.Status)
	}
	if snap.StartTime != nil {
		t.Error("stopped robot must not report a start time")
	}
	if snap.TotalRuntime <= 0 {
		t.Error("expected accumulated runtime after a run")
	}
	if sink.count() == 0 {
		t.Error("expected at least one persisted mission")
	}
}

func TestPersistenceFailureEntersErrorState(t *testing.T) {
	sink := &fakeSink{fail: true}
	m := New(testConfig(), sink)

	if _, err := m.Start("AGV-001"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap, _ := m.Status("AGV-001")
		return snap != nil && snap.Status == models.StatusError
	}, "robot never entered error state")

	snap, _ := m.Status("AGV-001")
	if snap.ErrorMessage == "" {
		t.Error("expected error message on errored robot")
	}

	// The loop exits on failure; no retry may follow.
	time.Sleep(150 * time.Millisecond)
	if sink.count() != 0 {
		t.Errorf("expected no persisted missions, got %d", sink.count())
	}

	// An errored robot is not running, so Stop is rejected; Reset is the
	// recovery path.
	_, err := m.Stop("AGV-001")
	if kind, ok := simerr.KindOf(err); !ok || kind != simerr.KindConflict {
		t.Errorf("expected conflict stopping an errored robot, got %v", err)
	}

	if _, err := m.Reset("AGV-001"); err != nil {
		t.Fatalf("reset after error failed: %v", err)
	}
	snap, _ = m.Status("AGV-001")
	if snap.Status != models.StatusStopped || snap.ErrorMessage != "" {
		t.Errorf("expected clean stopped state after reset, got %s %q", snap.Status, snap.ErrorMessage)
	}

	// And the robot can run again.
	if _, err := m.Start("AGV-001"); err != nil {
		t.Fatalf("restart after reset failed: %v", err)
	}
	m.Reset("AGV-001")
}

func TestResetZeroesCounters(t *testing.T) {
	sink := &fakeSink{}
	m := New(testConfig(), sink)

	m.Start("AGV-002")
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := m.Status("AGV-002")
		return snap != nil && snap.MissionsToday >= 1
	}, "robot never completed a mission")
	m.Stop("AGV-002")

	if _, err := m.Reset("AGV-002"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	snap, _ := m.Status("AGV-002")
	if snap.MissionsToday != 0 || snap.DataPointsToday != 0 || snap.TotalRuntime != 0 {
		t.Errorf("reset left counters populated: %+v", snap)
	}
	if snap.Status != models.StatusStopped {
		t.Errorf("expected stopped after reset, got %s", snap.Status)
	}
}

func TestResetStopsRunningRobot(t *testing.T) {
	m := New(testConfig(), &fakeSink{})

	m.Start("AGV-001")
	result, err := m.Reset("AGV-001")
	if err != nil {
		t.Fatalf("reset of running robot failed: %v", err)
	}
	if result.Robot.Status != models.StatusStopped {
		t.Errorf("expected stopped after reset, got %s", result.Robot.Status)
	}
	if result.Robot.MissionsToday != 0 || result.Robot.TotalRuntime != 0 {
		t.Errorf("reset left counters populated: %+v", result.Robot)
	}
}

func TestFleetOperations(t *testing.T) {
	m := New(testConfig(), &fakeSink{})

	started := m.StartAll()
	if started.Affected != 3 || started.Skipped != 0 {
		t.Errorf("expected 3 started, got %+v", started)
	}

	// Already running: everything skips.
	again := m.StartAll()
	if again.Affected != 0 || again.Skipped != 3 {
		t.Errorf("expected 3 skipped on second start-all, got %+v", again)
	}

	stopped := m.StopAll()
	if stopped.Affected != 3 {
		t.Errorf("expected 3 stopped, got %+v", stopped)
	}

	for _, snap := range m.AllStatus() {
		if snap.Status != models.StatusStopped {
			t.Errorf("robot %s not stopped after stop-all: %s", snap.RobotID, snap.Status)
		}
	}
}

func TestRunCycleGeneratesWholeFleet(t *testing.T) {
	sink := &fakeSink{}
	m := New(testConfig(), sink)

	result := m.RunCycle(context.Background())

	if !result.Success {
		t.Fatalf("cycle failed: %v", result.Errors)
	}
	if result.Missions != 3 || result.Inserted != 3 {
		t.Errorf("expected 3 inserted missions, got %+v", result)
	}

	keys := make(map[models.MissionKey]bool)
	for _, mission := range sink.missions() {
		if keys[mission.Key()] {
			t.Errorf("duplicate natural key %+v", mission.Key())
		}
		keys[mission.Key()] = true
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 unique natural keys, got %d", len(keys))
	}

	snap, _ := m.Status("AGV-001")
	if snap.MissionsToday != 1 {
		t.Errorf("expected counter update from cycle, got %d", snap.MissionsToday)
	}
}

func TestRunCycleDeterministicWithSeed(t *testing.T) {
	sinkA := &fakeSink{}
	New(testConfig(), sinkA).RunCycle(context.Background())

	sinkB := &fakeSink{}
	New(testConfig(), sinkB).RunCycle(context.Background())

	a, b := sinkA.missions(), sinkB.missions()
	if len(a) != len(b) {
		t.Fatalf("cycle sizes differ: %d vs %d", len(a), len(b))
	}

	// Wall-clock-independent draws must match exactly under a fixed seed.
	for i := range a {
		if a[i].RobotID != b[i].RobotID {
			t.Errorf("mission %d robot mismatch: %s vs %s", i, a[i].RobotID, b[i].RobotID)
		}
		if a[i].RouteName != b[i].RouteName {
			t.Errorf("mission %d route mismatch: %s vs %s", i, a[i].RouteName, b[i].RouteName)
		}
		if a[i].BatteryStart != b[i].BatteryStart || a[i].BatteryEnd != b[i].BatteryEnd {
			t.Errorf("mission %d battery mismatch", i)
		}
		if len(a[i].DataPoints) != len(b[i].DataPoints) {
			t.Errorf("mission %d point count mismatch: %d vs %d",
				i, len(a[i].DataPoints), len(b[i].DataPoints))
		}
	}
}

func TestRunCycleReportsFailures(t *testing.T) {
	sink := &fakeSink{fail: true}
	m := New(testConfig(), sink)

	result := m.RunCycle(context.Background())

	if result.Success {
		t.Error("expected failed cycle when every save fails")
	}
	if result.Failed != 3 {
		t.Errorf("expected 3 failures, got %d", result.Failed)
	}
	if len(result.Errors) != 3 {
		t.Errorf("expected 3 error messages, got %d", len(result.Errors))
	}
}

func TestOperationalStats(t *testing.T) {
	sink := &fakeSink{}
	m := New(testConfig(), sink)

	m.RunCycle(context.Background())
	stats := m.OperationalStats()

	if !stats.Success {
		t.Error("expected success flag")
	}
	if stats.DailyStats.CompletedMissions != 3 {
		t.Errorf("expected 3 completed missions, got %d", stats.DailyStats.CompletedMissions)
	}
	if stats.RobotStatus.Idle != 3 {
		t.Errorf("expected 3 idle robots, got %+v", stats.RobotStatus)
	}
	if stats.BatteryStats.Average <= 0 {
		t.Errorf("expected positive average battery, got %v", stats.BatteryStats.Average)
	}
	if stats.DailyStats.SuccessRate != 100 {
		t.Errorf("expected 100%% success rate, got %v", stats.DailyStats.SuccessRate)
	}
}

func TestOperationalStatsAlertFormulas(t *testing.T) {
	m := New(testConfig(), &fakeSink{})

	setUnit := func(id string, status models.RobotStatus, battery int, errMsg string) {
		u := m.units[id]
		u.mu.Lock()
		u.status = status
		u.batteryLevel = battery
		u.errorMessage = errMsg
		u.mu.Unlock()
	}
	setUnit("AGV-001", models.StatusError, 25, "store offline")
	setUnit("AGV-002", models.StatusMaintenance, 18, "")
	setUnit("AGV-003", models.StatusStopped, 0, "")

	stats := m.OperationalStats()

	// Maintenance counts as idle; moving is unused.
	if stats.RobotStatus.Working != 0 || stats.RobotStatus.Moving != 0 ||
		stats.RobotStatus.Idle != 2 || stats.RobotStatus.Error != 1 {
		t.Errorf("unexpected status buckets: %+v", stats.RobotStatus)
	}

	// Low and critical are disjoint, and zero battery levels are skipped.
	if stats.BatteryStats.LowCount != 1 || stats.BatteryStats.CriticalCount != 1 {
		t.Errorf("expected low=1 critical=1, got %+v", stats.BatteryStats)
	}
	if len(stats.Alerts.LowBattery) != 2 {
		t.Errorf("expected 2 battery alerts, got %d", len(stats.Alerts.LowBattery))
	}

	// Critical alert count folds in errored robots.
	if stats.Alerts.CriticalCount != 2 {
		t.Errorf("expected critical count 2 (1 battery + 1 error), got %d", stats.Alerts.CriticalCount)
	}
	if len(stats.Alerts.Errors) != 1 || stats.Alerts.Errors[0].RobotID != "AGV-001" {
		t.Errorf("unexpected error alerts: %+v", stats.Alerts.Errors)
	}

	// Average over the two robots with an observed battery level.
	if stats.BatteryStats.Average != 21.5 {
		t.Errorf("expected average 21.5, got %v", stats.BatteryStats.Average)
	}
}

func TestUptimeReportedSeparatelyFromTotalRuntime(t *testing.T) {
	m := New(testConfig(), &fakeSink{})

	m.Start("AGV-001")
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := m.Status("AGV-001")
		return snap != nil && snap.Uptime > 0
	}, "running robot never reported uptime")

	snap, _ := m.Status("AGV-001")
	if snap.TotalRuntime != 0 {
		t.Errorf("first run must not accrue total runtime until stop, got %v", snap.TotalRuntime)
	}

	m.Stop("AGV-001")
	snap, _ = m.Status("AGV-001")
	if snap.TotalRuntime <= 0 {
		t.Error("expected accumulated runtime after stop")
	}
	if snap.Uptime != 0 {
		t.Errorf("stopped robot must report zero uptime, got %v", snap.Uptime)
	}
}

func TestProgressTracking(t *testing.T) {
	sink := &fakeSink{}
	m := New(testConfig(), sink)

	m.Start("AGV-003")
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := m.Progress("AGV-003")
		return snap.ProcessedMissions >= 1
	}, "progress never recorded a mission")
	m.Stop("AGV-003")

	snap, err := m.Progress("AGV-003")
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if snap.CycleID == "" {
		t.Error("expected a cycle id")
	}
	if snap.GeneratedDataPoints == 0 {
		t.Error("expected generated data points in progress")
	}

	if _, err := m.Progress("AGV-999"); !errors.Is(err, simerr.NotFound("progress", "AGV-999")) {
		t.Errorf("expected not_found for unknown robot, got %v", err)
	}
}
