package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/models"
)

// mongoSource computes fleet statistics with aggregation pipelines. Single
// mode unwinds embedded points from the missions collection; normalized mode
// aggregates the data point collection directly.
type mongoSource struct {
	missions   *mongo.Collection
	points     *mongo.Collection
	cfg        *config.Config
	normalized bool
}

// NewMongoSource builds the statistics source for the configured storage
// mode.
func NewMongoSource(c *Client, cfg *config.Config) Source {
	return &mongoSource{
		missions:   c.Missions(),
		points:     c.DataPoints(),
		cfg:        cfg,
		normalized: cfg.Simulation.NormalizedStorage,
	}
}

func (m *mongoSource) Mode() string {
	if m.normalized {
		return "normalized"
	}
	return "single_collection"
}

type countRow struct {
	Count int64 `bson:"count"`
}

type basicFacetRow struct {
	TotalMissions   []countRow `bson:"total_missions"`
	UniqueRobots    []countRow `bson:"unique_robots"`
	TotalDataPoints []countRow `bson:"total_data_points"`
}

func firstCount(rows []countRow) int64 {
	if len(rows) == 0 {
		return 0
	}
	return rows[0].Count
}

// BasicCounts runs the single cheap facet every snapshot depends on.
func (m *mongoSource) BasicCounts(ctx context.Context) (models.BasicCounts, error) {
	facet := bson.D{
		{Key: "total_missions", Value: bson.A{
			bson.D{{Key: "$count", Value: "count"}},
		}},
		{Key: "unique_robots", Value: bson.A{
			bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$robot_id"}}}},
			bson.D{{Key: "$count", Value: "count"}},
		}},
	}

	if !m.normalized {
		facet = append(facet, bson.E{Key: "total_data_points", Value: bson.A{
			bson.D{{Key: "$unwind", Value: "$data_points"}},
			bson.D{{Key: "$count", Value: "count"}},
		}})
	}

	cur, err := m.missions.Aggregate(ctx, mongo.Pipeline{bson.D{{Key: "$facet", Value: facet}}})
	if err != nil {
		return models.BasicCounts{}, fmt.Errorf("basic counts facet: %w", err)
	}

	var rows []basicFacetRow
	if err := cur.All(ctx, &rows); err != nil {
		return models.BasicCounts{}, fmt.Errorf("decode basic counts: %w", err)
	}
	if len(rows) == 0 {
		return models.BasicCounts{}, nil
	}

	counts := models.BasicCounts{
		TotalMissions:   firstCount(rows[0].TotalMissions),
		UniqueRobots:    firstCount(rows[0].UniqueRobots),
		TotalDataPoints: firstCount(rows[0].TotalDataPoints),
	}

	if m.normalized {
		pointCount, err := m.points.CountDocuments(ctx, bson.D{})
		if err != nil {
			return models.BasicCounts{}, fmt.Errorf("count data points: %w", err)
		}
		counts.TotalDataPoints = pointCount
	}

	return counts, nil
}

type batteryRow struct {
	AvgStart float64 `bson:"avg_start"`
	AvgEnd   float64 `bson:"avg_end"`
	MinEnd   float64 `bson:"min_end"`
	MaxStart float64 `bson:"max_start"`
}

type locationRow struct {
	ID struct {
		Site string `bson:"site"`
		Line string `bson:"line"`
	} `bson:"_id"`
	Count int64 `bson:"count"`
}

type sensorRow struct {
	AvgTemperature float64 `bson:"avg_temperature"`
	AvgHumidity    float64 `bson:"avg_humidity"`
	AvgScore       float64 `bson:"avg_score"`
}

// Detailed enriches the basic counts with battery, location, and sensor
// analyses. Any failure here degrades the snapshot rather than killing it.
func (m *mongoSource) Detailed(ctx context.Context, basic models.BasicCounts) (*models.RealTimeStats, error) {
	stats := neutral(basic, m.Mode())
	stats.DataQuality = "full"

	battery, err := m.batteryAnalysis(ctx)
	if err != nil {
		return nil, err
	}
	stats.BatteryAnalysis = battery

	locations, err := m.locationAnalysis(ctx)
	if err != nil {
		return nil, err
	}
	stats.LocationAnalysis = locations

	recent, err := m.recentMissions(ctx)
	if err != nil {
		return nil, err
	}
	stats.RecentMissions = recent

	if m.normalized {
		sensors, err := m.sensorAnalysis(ctx)
		if err != nil {
			return nil, err
		}
		stats.SensorAnalysis = sensors
	}

	sim := m.cfg.Simulation
	stats.MissionPerformance = models.MissionPerformance{
		AvgDurationMinutes: round1(float64(sim.MissionDurationMin+sim.MissionDurationMax) / 2),
		MinDurationMinutes: float64(sim.MissionDurationMin),
		MaxDurationMinutes: float64(sim.MissionDurationMax),
	}
	if basic.UniqueRobots > 0 {
		stats.RobotPerformance.AvgMissionsPerRobot =
			round1(float64(basic.TotalMissions) / float64(basic.UniqueRobots))
	}

	return stats, nil
}

func (m *mongoSource) batteryAnalysis(ctx context.Context) (models.BatteryAnalysis, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg_start", Value: bson.D{{Key: "$avg", Value: "$mission_start_battery_state"}}},
			{Key: "avg_end", Value: bson.D{{Key: "$avg", Value: "$mission_end_battery_state"}}},
			{Key: "min_end", Value: bson.D{{Key: "$min", Value: "$mission_end_battery_state"}}},
			{Key: "max_start", Value: bson.D{{Key: "$max", Value: "$mission_start_battery_state"}}},
		}}},
	}

	cur, err := m.missions.Aggregate(ctx, pipeline)
	if err != nil {
		return models.BatteryAnalysis{}, fmt.Errorf("battery analysis: %w", err)
	}

	var rows []batteryRow
	if err := cur.All(ctx, &rows); err != nil {
		return models.BatteryAnalysis{}, fmt.Errorf("decode battery analysis: %w", err)
	}
	if len(rows) == 0 {
		return models.BatteryAnalysis{MaxBattery: 100}, nil
	}

	row := rows[0]
	return models.BatteryAnalysis{
		AvgStartBattery: round1(row.AvgStart),
		AvgEndBattery:   round1(row.AvgEnd),
		AvgBatteryDrain: round1(row.AvgStart - row.AvgEnd),
		MinBattery:      row.MinEnd,
		MaxBattery:      row.MaxStart,
	}, nil
}

func (m *mongoSource) locationAnalysis(ctx context.Context) (models.LocationAnalysis, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "site", Value: "$location.site"},
				{Key: "line", Value: "$location.line"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		bson.D{{Key: "$limit", Value: 5}},
	}

	cur, err := m.missions.Aggregate(ctx, pipeline)
	if err != nil {
		return models.LocationAnalysis{}, fmt.Errorf("location analysis: %w", err)
	}

	var rows []locationRow
	if err := cur.All(ctx, &rows); err != nil {
		return models.LocationAnalysis{}, fmt.Errorf("decode location analysis: %w", err)
	}

	buckets := make([]models.LocationBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, models.LocationBucket{
			Site:  row.ID.Site,
			Line:  row.ID.Line,
			Count: row.Count,
		})
	}
	return models.LocationAnalysis{
		BusiestLocations: buckets,
		TotalLocations:   len(buckets),
	}, nil
}

func (m *mongoSource) recentMissions(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-time.Hour)
	count, err := m.missions.CountDocuments(ctx,
		bson.D{{Key: "mission_start_date", Value: bson.D{{Key: "$gte", Value: cutoff}}}})
	if err != nil {
		return 0, fmt.Errorf("recent missions: %w", err)
	}
	return count, nil
}

// sensorAnalysis averages environment readings. Only feasible in normalized
// mode where data points are first-class documents.
func (m *mongoSource) sensorAnalysis(ctx context.Context) (models.SensorAnalysis, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg_temperature", Value: bson.D{{Key: "$avg", Value: "$temperature"}}},
			{Key: "avg_humidity", Value: bson.D{{Key: "$avg", Value: "$humidity"}}},
			{Key: "avg_score", Value: bson.D{{Key: "$avg", Value: "$localization_score"}}},
		}}},
	}

	cur, err := m.points.Aggregate(ctx, pipeline)
	if err != nil {
		return models.SensorAnalysis{}, fmt.Errorf("sensor analysis: %w", err)
	}

	var rows []sensorRow
	if err := cur.All(ctx, &rows); err != nil {
		return models.SensorAnalysis{}, fmt.Errorf("decode sensor analysis: %w", err)
	}
	if len(rows) == 0 {
		return models.SensorAnalysis{}, nil
	}

	return models.SensorAnalysis{
		AvgTemperature:       round1(rows[0].AvgTemperature),
		AvgHumidity:          round1(rows[0].AvgHumidity),
		AvgLocalizationScore: round2(rows[0].AvgScore),
	}, nil
}
