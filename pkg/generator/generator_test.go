package generator

import (
	"fmt"
	"testing"
	"time"

	"github.com/agvsim/fleet-simulator/pkg/config"
)

func testConfig() *config.Config {
	return config.GetDefaultConfig()
}

func TestGridFloor(t *testing.T) {
	g := New(testConfig(), 1)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "mid slot",
			in:   time.Date(2026, 8, 23, 10, 7, 33, 0, time.UTC),
			want: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "exact boundary",
			in:   time.Date(2026, 8, 23, 10, 20, 0, 0, time.UTC),
			want: time.Date(2026, 8, 23, 10, 20, 0, 0, time.UTC),
		},
		{
			name: "just before boundary",
			in:   time.Date(2026, 8, 23, 10, 19, 59, 999999999, time.UTC),
			want: time.Date(2026, 8, 23, 10, 10, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.GridFloor(tt.in); !got.Equal(tt.want) {
				t.Errorf("GridFloor(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMissionStartStaysInGridSlot(t *testing.T) {
	cfg := testConfig()
	g := New(cfg, 7)
	base := time.Date(2026, 8, 23, 14, 3, 21, 0, time.UTC)
	floor := g.GridFloor(base)
	slot := time.Duration(cfg.Simulation.TimeGridMinutes) * time.Minute

	for i := 0; i < 200; i++ {
		start := g.MissionStart(base)
		if start.Before(floor) || !start.Before(floor.Add(slot)) {
			t.Fatalf("start %v escaped slot [%v, %v)", start, floor, floor.Add(slot))
		}
	}
}

func TestMissionInvariants(t *testing.T) {
	cfg := testConfig()
	g := New(cfg, 99)
	start := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		m := g.Mission("AGV-001", start)

		if m.BatteryEnd < 0 || m.BatteryEnd > m.BatteryStart || m.BatteryStart > 100 {
			t.Fatalf("battery invariant violated: start=%d end=%d", m.BatteryStart, m.BatteryEnd)
		}

		duration := m.MissionEndDate.Sub(m.MissionStartDate)
		minDur := time.Duration(cfg.Simulation.MissionDurationMin) * time.Minute
		maxDur := time.Duration(cfg.Simulation.MissionDurationMax) * time.Minute
		if duration < minDur || duration > maxDur {
			t.Fatalf("duration %v outside [%v, %v]", duration, minDur, maxDur)
		}

		n := len(m.DataPoints)
		if n < cfg.Simulation.DataPointsMin || n > cfg.Simulation.DataPointsMax {
			t.Fatalf("point count %d outside [%d, %d]",
				n, cfg.Simulation.DataPointsMin, cfg.Simulation.DataPointsMax)
		}
	}
}

func TestDataPointsSpreadEvenly(t *testing.T) {
	g := New(testConfig(), 3)
	start := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	m := g.Mission("AGV-001", start)

	points := m.DataPoints
	if !points[0].Timestamp.Equal(m.MissionStartDate) {
		t.Errorf("first point at %v, want mission start %v", points[0].Timestamp, m.MissionStartDate)
	}
	if !points[len(points)-1].Timestamp.Equal(m.MissionEndDate) {
		t.Errorf("last point at %v, want mission end %v", points[len(points)-1].Timestamp, m.MissionEndDate)
	}

	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			t.Fatalf("points not strictly increasing at index %d", i)
		}
	}

	for _, p := range points {
		want := float64(p.Timestamp.UnixNano()) / float64(time.Second)
		if p.UnixTime != want {
			t.Errorf("unix_time %v does not match timestamp %v", p.UnixTime, p.Timestamp)
		}
	}
}

func TestSensorReadingsWithinRanges(t *testing.T) {
	cfg := testConfig()
	g := New(cfg, 11)
	m := g.Mission("AGV-001", time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC))

	for _, p := range m.DataPoints {
		if p.Temperature < cfg.Sensors.Temperature.Min || p.Temperature > cfg.Sensors.Temperature.Max {
			t.Errorf("temperature %v outside configured range", p.Temperature)
		}
		if p.LocalizationScore < cfg.Sensors.LocalizationScore.Min ||
			p.LocalizationScore > cfg.Sensors.LocalizationScore.Max {
			t.Errorf("localization score %v outside configured range", p.LocalizationScore)
		}
		if p.PosX < cfg.Sensors.PosX.Min || p.PosX > cfg.Sensors.PosX.Max {
			t.Errorf("pos_x %d outside configured range", p.PosX)
		}
		if p.SPMFlex1 != 0 || p.GTD5000 != 0 || p.ThermalCamPan != 0 {
			t.Error("placeholder fields must stay zero")
		}
		if p.VRImage.IsZero() {
			t.Error("media references must be populated")
		}
	}
}

func TestSameSeedReproducesIdenticalMissions(t *testing.T) {
	start := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)

	a := New(testConfig(), 42).Mission("AGV-001", start)
	b := New(testConfig(), 42).Mission("AGV-001", start)

	if a.RouteName != b.RouteName || a.BatteryStart != b.BatteryStart ||
		a.BatteryEnd != b.BatteryEnd || !a.MissionEndDate.Equal(b.MissionEndDate) {
		t.Errorf("mission headers differ under identical seed:\n%+v\n%+v", a, b)
	}
	if a.Location != b.Location {
		t.Errorf("locations differ: %+v vs %+v", a.Location, b.Location)
	}
	if len(a.DataPoints) != len(b.DataPoints) {
		t.Fatalf("point counts differ: %d vs %d", len(a.DataPoints), len(b.DataPoints))
	}
	for i := range a.DataPoints {
		if a.DataPoints[i].PosX != b.DataPoints[i].PosX ||
			a.DataPoints[i].Temperature != b.DataPoints[i].Temperature {
			t.Fatalf("point %d differs under identical seed", i)
		}
	}
}

func TestPerRobotGeneratorsDiverge(t *testing.T) {
	cfg := testConfig()
	seed := int64(42)
	cfg.Simulation.RandomSeed = &seed
	start := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)

	a := NewForRobot(cfg, "AGV-001").Mission("AGV-001", start)
	b := NewForRobot(cfg, "AGV-002").Mission("AGV-002", start)

	// Derived seeds differ, so at least one drawn attribute should too.
	if a.RouteName == b.RouteName && a.BatteryStart == b.BatteryStart &&
		len(a.DataPoints) == len(b.DataPoints) && a.Location == b.Location {
		t.Error("expected per-robot draws to diverge")
	}
}

func TestStrictModeLocations(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.StrictMode = true
	g := New(cfg, 5)

	allowed := func(values []string, v string) bool {
		for _, x := range values {
			if x == v {
				return true
			}
		}
		return false
	}

	for i := 0; i < 100; i++ {
		loc := g.Mission("AGV-001", time.Now()).Location
		if !allowed(cfg.Locations.Sites, loc.Site) {
			t.Fatalf("strict mode produced site %q", loc.Site)
		}
		if !allowed(cfg.Locations.Lines, loc.Line) {
			t.Fatalf("strict mode produced line %q", loc.Line)
		}
		if !allowed(cfg.Locations.Floors, loc.Floor) {
			t.Fatalf("strict mode produced floor %q", loc.Floor)
		}
		if loc.Area != cfg.Locations.Area {
			t.Fatalf("strict mode produced area %q", loc.Area)
		}
	}
}

func TestFreeModeEventuallyDrawsLegacyValues(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.StrictMode = false
	g := New(cfg, 5)

	seenLegacySite := false
	for i := 0; i < 500 && !seenLegacySite; i++ {
		if g.Mission("AGV-001", time.Now()).Location.Site == "P" {
			seenLegacySite = true
		}
	}
	if !seenLegacySite {
		t.Error("free mode never drew a legacy site in 500 missions")
	}
}

func TestFleetMissionsCoverEveryRobot(t *testing.T) {
	cfg := testConfig()
	g := New(cfg, 42)

	ids := []string{"AGV-001", "AGV-002", "AGV-003"}
	missions := g.FleetMissions(ids, time.Date(2026, 8, 23, 9, 2, 0, 0, time.UTC))

	if len(missions) != len(ids) {
		t.Fatalf("expected %d missions, got %d", len(ids), len(missions))
	}
	for i, m := range missions {
		if m.RobotID != ids[i] {
			t.Errorf("mission %d for %s, want %s", i, m.RobotID, ids[i])
		}
	}
}

func TestRouteNames(t *testing.T) {
	g := New(testConfig(), 13)
	valid := make(map[string]bool)
	for i := 1; i <= 20; i++ {
		valid[fmt.Sprintf("ROUTE%d", i)] = true
	}

	for i := 0; i < 50; i++ {
		m := g.Mission("AGV-001", time.Now())
		if !valid[m.RouteName] {
			t.Fatalf("unexpected route name %q", m.RouteName)
		}
	}
}
