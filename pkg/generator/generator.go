// Package generator produces synthetic mission and sensor data bounded by
// the configured ranges. All randomness flows through a generator-owned
// rand source so a fixed seed reproduces identical output.
package generator

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/models"
)

// Legacy location values permitted outside strict mode. These appeared in
// historical production data and are kept for realism testing.
var (
	legacySites  = []string{"P"}
	legacyLines  = []string{"P1L"}
	legacyFloors = []string{"3F", "5F"}
	legacyAreas  = []string{"FSF"}
)

// Placeholder media references. Real deployments attach captured imagery;
// the simulator points every reading at these fixed documents.
var (
	placeholderVRImage       = mustObjectID("689ad5a5869bfe5d99d68ccf")
	placeholderPTZImage      = mustObjectID("689ad5fdf1d60ed343922e4e")
	placeholderThermalImage  = mustObjectID("689ad6089fec0031f514f5e1")
	placeholderThermalRaw    = mustObjectID("689ad61606ac3c5ece7086c3")
	placeholderThermalReal   = mustObjectID("689ad62e3d11dabdfa4b881e")
	placeholderSonicOriginal = mustObjectID("689ad625abeb55500dde1efd")
	placeholderSonicRaw      = mustObjectID("689ad625abeb55500dde1efd")
)

// Generator synthesizes missions for one or more robots.
type Generator struct {
	cfg    *config.Config
	rng    *rand.Rand
	routes []string
}

// New creates a generator with an explicit seed.
func New(cfg *config.Config, seed int64) *Generator {
	routes := make([]string, 0, 20)
	for i := 1; i <= 20; i++ {
		routes = append(routes, fmt.Sprintf("ROUTE%d", i))
	}

	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		routes: routes,
	}
}

// NewFromConfig creates a generator seeded from the configured random seed,
// or from the clock when no seed is configured.
func NewFromConfig(cfg *config.Config) *Generator {
	if cfg.Simulation.RandomSeed != nil {
		return New(cfg, *cfg.Simulation.RandomSeed)
	}
	return New(cfg, time.Now().UnixNano())
}

// NewForRobot creates a generator whose seed is derived from the configured
// seed and the robot id. Each running robot owns its own generator, so
// goroutine interleaving cannot perturb the draw order of any one robot.
func NewForRobot(cfg *config.Config, robotID string) *Generator {
	if cfg.Simulation.RandomSeed == nil {
		return New(cfg, time.Now().UnixNano())
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(robotID))
	return New(cfg, *cfg.Simulation.RandomSeed+int64(h.Sum32()))
}

// GridFloor snaps t down to the nearest time-grid boundary.
func (g *Generator) GridFloor(t time.Time) time.Time {
	grid := g.cfg.Simulation.TimeGridMinutes
	return t.Truncate(time.Minute).Add(-time.Duration(t.Minute()%grid) * time.Minute)
}

// MissionStart returns a mission start time on the current grid slot:
// the grid floor of base plus a random offset within [0, grid) minutes,
// so robots do not all depart at the boundary.
func (g *Generator) MissionStart(base time.Time) time.Time {
	offset := g.rng.Intn(g.cfg.Simulation.TimeGridMinutes)
	return g.GridFloor(base).Add(time.Duration(offset) * time.Minute)
}

// Mission generates a single mission with its data points.
func (g *Generator) Mission(robotID string, start time.Time) *models.Mission {
	sim := g.cfg.Simulation

	duration := g.randInt(sim.MissionDurationMin, sim.MissionDurationMax)
	end := start.Add(time.Duration(duration) * time.Minute)

	batteryStart := g.randInt(g.cfg.Battery.StartMin, g.cfg.Battery.StartMax)
	drain := g.randInt(g.cfg.Battery.DrainMin, g.cfg.Battery.DrainMax)
	batteryEnd := batteryStart - drain
	if batteryEnd < 0 {
		batteryEnd = 0
	}

	return &models.Mission{
		RobotID:          robotID,
		MissionStartDate: start,
		MissionEndDate:   end,
		BatteryStart:     batteryStart,
		BatteryEnd:       batteryEnd,
		RouteName:        g.routes[g.rng.Intn(len(g.routes))],
		Location:         g.location(),
		DataPoints:       g.dataPoints(start, end),
		SimulatedAt:      time.Now(),
	}
}

// FleetMissions generates one mission per robot on the grid slot containing
// base, in robot order. This is the one-shot whole-fleet cycle.
func (g *Generator) FleetMissions(robotIDs []string, base time.Time) []*models.Mission {
	missions := make([]*models.Mission, 0, len(robotIDs))
	for _, id := range robotIDs {
		missions = append(missions, g.Mission(id, g.MissionStart(base)))
	}
	return missions
}

func (g *Generator) location() models.Location {
	loc := g.cfg.Locations

	if g.cfg.Simulation.StrictMode {
		return models.Location{
			Site:  g.choice(loc.Sites),
			Line:  g.choice(loc.Lines),
			Floor: g.choice(loc.Floors),
			Area:  loc.Area,
		}
	}

	return models.Location{
		Site:  g.choice(append(append([]string{}, loc.Sites...), legacySites...)),
		Line:  g.choice(append(append([]string{}, loc.Lines...), legacyLines...)),
		Floor: g.choice(append(append([]string{}, loc.Floors...), legacyFloors...)),
		Area:  g.choice(append([]string{loc.Area}, legacyAreas...)),
	}
}

// dataPoints spreads N readings evenly across the mission window: point i
// sits at i*duration/(N-1), so the first lands on the start and the last on
// the end. A single point sits on the start.
func (g *Generator) dataPoints(start, end time.Time) []models.DataPoint {
	count := g.randInt(g.cfg.Simulation.DataPointsMin, g.cfg.Simulation.DataPointsMax)
	duration := end.Sub(start)

	points := make([]models.DataPoint, 0, count)
	for i := 0; i < count; i++ {
		var offset time.Duration
		if count > 1 {
			offset = duration * time.Duration(i) / time.Duration(count-1)
		}
		points = append(points, g.sensorReading(start.Add(offset)))
	}
	return points
}

func (g *Generator) sensorReading(ts time.Time) models.DataPoint {
	s := g.cfg.Sensors

	return models.DataPoint{
		Timestamp:         ts,
		UnixTime:          float64(ts.UnixNano()) / float64(time.Second),
		PosX:              g.randInt(s.PosX.Min, s.PosX.Max),
		PosY:              g.randInt(s.PosY.Min, s.PosY.Max),
		Theta:             g.randInt(s.Theta.Min, s.Theta.Max),
		LocalizationScore: g.randFloat(s.LocalizationScore, 2),
		TiltX:             g.randFloat(s.TiltX, 2),
		TiltY:             g.randFloat(s.TiltY, 2),
		NH3:               g.randFloat(s.NH3, 2),
		H2S:               g.randFloat(s.H2S, 2),
		VOCs:              g.randFloat(s.VOCs, 2),
		F2:                g.randFloat(s.F2, 3),
		HF:                g.randFloat(s.HF, 2),
		Temperature:       g.randFloat(s.Temperature, 1),
		Humidity:          g.randFloat(s.Humidity, 1),
		Illuminance:       g.randFloat(s.Illuminance, 2),
		Noise:             g.randFloat(s.Noise, 2),

		PillarNumber: fmt.Sprintf("G%d D-%d", g.randInt(10, 25), g.randInt(1, 5)),
		BayNumber:    fmt.Sprintf("P%02d", g.randInt(0, 10)),
		ShotNumber:   strconv.Itoa(g.randInt(1, 10)),

		VRImage:            placeholderVRImage,
		PTZImage:           placeholderPTZImage,
		ThermalImage:       placeholderThermalImage,
		ThermalRawdata:     placeholderThermalRaw,
		ThermalRealImage:   placeholderThermalReal,
		SonicOriginalImage: placeholderSonicOriginal,
		SonicRawdata:       placeholderSonicRaw,
	}
}

// randInt draws uniformly from [min, max] inclusive.
func (g *Generator) randInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.rng.Intn(max-min+1)
}

// randFloat draws uniformly from [min, max] and rounds to the given number
// of decimal places.
func (g *Generator) randFloat(r config.FloatRange, places int) float64 {
	v := r.Min + g.rng.Float64()*(r.Max-r.Min)
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func (g *Generator) choice(options []string) string {
	return options[g.rng.Intn(len(options))]
}

func mustObjectID(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}
