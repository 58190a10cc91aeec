package store

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/agvsim/fleet-simulator/pkg/logger"
	"github.com/agvsim/fleet-simulator/pkg/models"
	"github.com/agvsim/fleet-simulator/pkg/simerr"
)

// statsCacheTTL bounds how stale a served statistics snapshot can be.
const statsCacheTTL = 5 * time.Second

// Source computes statistics in two phases. BasicCounts is the cheap query
// that must succeed for any snapshot to be usable; Detailed enriches those
// counts and may fail independently.
type Source interface {
	BasicCounts(ctx context.Context) (models.BasicCounts, error)
	Detailed(ctx context.Context, basic models.BasicCounts) (*models.RealTimeStats, error)
	Mode() string
}

// StatsCache serves RealTimeStats snapshots with a short TTL so dashboard
// polling does not hammer the aggregation pipelines. Degradation is
// two-phase: a detailed-query failure still yields (and caches) a partial
// snapshot built from basic counts, while a basic-count failure yields an
// error snapshot that is never cached.
type StatsCache struct {
	src Source
	ttl time.Duration
	log logger.Logger
	now func() time.Time

	mu       sync.Mutex
	cached   *models.RealTimeStats
	cachedAt time.Time
}

// NewStatsCache builds a cache over the given source with the default TTL.
func NewStatsCache(src Source) *StatsCache {
	return &StatsCache{
		src: src,
		ttl: statsCacheTTL,
		log: logger.WithPrefix("stats"),
		now: time.Now,
	}
}

// RealTimeStats returns the current snapshot, recomputing when the cached
// one has expired. Callers within the TTL window all observe the identical
// snapshot.
func (s *StatsCache) RealTimeStats(ctx context.Context) *models.RealTimeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cached != nil && now.Sub(s.cachedAt) < s.ttl {
		return s.cached
	}

	queryStart := time.Now()

	basic, err := s.src.BasicCounts(ctx)
	if err != nil {
		s.log.Errorf("basic statistics unavailable: %v", err)
		stats := emptyStats(s.src.Mode())
		stats.LastUpdate = now
		return stats
	}

	stats, err := s.src.Detailed(ctx, basic)
	if err != nil {
		s.log.Warnf("%v", simerr.AggregationDegraded("detailed_stats", err))
		stats = partialStats(basic, s.src.Mode())
	}

	stats.QueryExecutionTimeMS = round2(float64(time.Since(queryStart).Microseconds()) / 1000)
	stats.LastUpdate = now

	s.cached = stats
	s.cachedAt = now
	return stats
}

// Clear drops the cached snapshot so the next read recomputes immediately.
func (s *StatsCache) Clear() {
	s.mu.Lock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()
}

// emptyStats is the phase-1 failure snapshot: zero counts, neutral defaults,
// flagged as an error. It is served but never cached.
func emptyStats(mode string) *models.RealTimeStats {
	stats := neutral(models.BasicCounts{}, mode)
	stats.Error = true
	stats.DataQuality = "unavailable"
	return stats
}

// partialStats is the phase-2 failure snapshot: real basic counts with
// neutral defaults for everything the detailed queries would have filled.
func partialStats(basic models.BasicCounts, mode string) *models.RealTimeStats {
	stats := neutral(basic, mode)
	stats.Partial = true
	stats.DataQuality = "basic_counts_only"
	return stats
}

func neutral(basic models.BasicCounts, mode string) *models.RealTimeStats {
	return &models.RealTimeStats{
		TotalMissions:   basic.TotalMissions,
		TotalDataPoints: basic.TotalDataPoints,
		UniqueRobots:    basic.UniqueRobots,
		BatteryAnalysis: models.BatteryAnalysis{
			MinBattery: 0,
			MaxBattery: 100,
		},
		LocationAnalysis: models.LocationAnalysis{
			BusiestLocations: []models.LocationBucket{},
		},
		RobotPerformance: models.RobotPerformance{
			ActiveRobotsToday: basic.UniqueRobots,
			TopPerformers:     []any{},
		},
		DataEfficiency: safeRatio(basic.TotalDataPoints, basic.TotalMissions),
		StorageMode:    mode,
	}
}

// safeRatio returns a/b rounded to one decimal, zero when b is zero.
func safeRatio(a, b int64) float64 {
	if b == 0 {
		return 0
	}
	return round1(float64(a) / float64(b))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
