package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agvsim/fleet-simulator/pkg/logger"
	"github.com/agvsim/fleet-simulator/pkg/models"
	"github.com/agvsim/fleet-simulator/pkg/simerr"
)

// missionCollection and pointCollection are the slices of *mongo.Collection
// the gateway actually uses. Tests substitute fakes; production code passes
// the real collections.
type missionCollection interface {
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{},
		opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{},
		opts ...*options.FindOneOptions) *mongo.SingleResult
}

type pointCollection interface {
	InsertMany(ctx context.Context, documents []interface{},
		opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	DeleteMany(ctx context.Context, filter interface{},
		opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// Gateway persists missions idempotently. Replaying the same mission is
// always safe: saves upsert against the (robot_id, mission_start_date)
// natural key and report whether the store saw an insert, an update, or no
// change at all.
type Gateway struct {
	missions   missionCollection
	points     pointCollection
	normalized bool
	log        logger.Logger
}

// NewGateway builds a gateway over the connected client. The storage mode is
// fixed at construction; switching modes means building a new gateway.
func NewGateway(c *Client, normalized bool) *Gateway {
	return &Gateway{
		missions:   c.Missions(),
		points:     c.DataPoints(),
		normalized: normalized,
		log:        logger.WithPrefix("gateway"),
	}
}

// newGatewayWith wires arbitrary collection implementations, for tests.
func newGatewayWith(missions missionCollection, points pointCollection, normalized bool) *Gateway {
	return &Gateway{
		missions:   missions,
		points:     points,
		normalized: normalized,
		log:        logger.WithPrefix("gateway"),
	}
}

// Normalized reports the storage mode the gateway writes in.
func (gw *Gateway) Normalized() bool {
	return gw.normalized
}

// SaveMission persists one mission and classifies the outcome. Persistence
// faults never panic and never return an error: they come back as a failed
// SaveResult so the caller owns the state transition.
func (gw *Gateway) SaveMission(ctx context.Context, m *models.Mission) models.SaveResult {
	started := time.Now()

	var (
		result models.SaveResult
		err    error
	)
	if gw.normalized {
		result, err = gw.saveNormalized(ctx, m)
	} else {
		result, err = gw.saveSingle(ctx, m)
	}

	elapsed := time.Since(started)
	if err != nil {
		pf := simerr.PersistenceFailed("save_mission", m.RobotID, err)
		gw.log.Errorf("%v", pf)
		return models.SaveResult{
			Success:        false,
			Operation:      models.OpError,
			ErrorMessage:   pf.Error(),
			Elapsed:        elapsed,
			ElapsedSeconds: elapsed.Seconds(),
			Timestamp:      time.Now(),
		}
	}

	result.Success = true
	result.Elapsed = elapsed
	result.ElapsedSeconds = elapsed.Seconds()
	result.Timestamp = time.Now()

	gw.log.Debugf("saved mission %s/%s: %s (%d points, %.3fs)",
		m.RobotID, m.MissionStartDate.Format(time.RFC3339), result.Operation,
		result.InsertedPoints, result.ElapsedSeconds)
	return result
}

func keyFilter(m *models.Mission) bson.D {
	return bson.D{
		{Key: "robot_id", Value: m.RobotID},
		{Key: "mission_start_date", Value: m.MissionStartDate},
	}
}

// saveSingle stores the whole mission, data points embedded, as one document.
func (gw *Gateway) saveSingle(ctx context.Context, m *models.Mission) (models.SaveResult, error) {
	res, err := gw.missions.ReplaceOne(ctx, keyFilter(m), m, options.Replace().SetUpsert(true))
	if err != nil {
		return models.SaveResult{}, err
	}

	result := models.SaveResult{
		MatchedCount:   res.MatchedCount,
		ModifiedCount:  res.ModifiedCount,
		InsertedPoints: len(m.DataPoints),
	}
	result.Operation, result.UpsertedID = classify(res)
	return result, nil
}

// saveNormalized stores the mission metadata and its data points in separate
// collections. On replay the previous point batch is deleted before the new
// one is inserted, so points are never duplicated or orphaned.
func (gw *Gateway) saveNormalized(ctx context.Context, m *models.Mission) (models.SaveResult, error) {
	meta := m.Meta()
	res, err := gw.missions.ReplaceOne(ctx, keyFilter(m), meta, options.Replace().SetUpsert(true))
	if err != nil {
		return models.SaveResult{}, err
	}

	result := models.SaveResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}
	result.Operation, result.UpsertedID = classify(res)

	var missionID primitive.ObjectID
	if res.UpsertedID != nil {
		id, ok := res.UpsertedID.(primitive.ObjectID)
		if !ok {
			return models.SaveResult{}, fmt.Errorf("unexpected upserted id type %T", res.UpsertedID)
		}
		missionID = id
	} else {
		var existing models.Mission
		if err := gw.missions.FindOne(ctx, keyFilter(m)).Decode(&existing); err != nil {
			return models.SaveResult{}, fmt.Errorf("resolve mission id: %w", err)
		}
		missionID = existing.ID

		if _, err := gw.points.DeleteMany(ctx, bson.D{{Key: "mission_id", Value: missionID}}); err != nil {
			return models.SaveResult{}, fmt.Errorf("clear stale data points: %w", err)
		}
	}

	if len(m.DataPoints) == 0 {
		return result, nil
	}

	docs := make([]interface{}, 0, len(m.DataPoints))
	for _, dp := range m.DataPoints {
		dp.MissionID = missionID
		dp.RobotID = m.RobotID
		docs = append(docs, dp)
	}

	ires, err := gw.points.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		// Unordered insert keeps going past individual failures; a bulk
		// write exception with surviving ids is a partial success.
		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) || ires == nil {
			return models.SaveResult{}, fmt.Errorf("insert data points: %w", err)
		}
		gw.log.Warnf("partial data point insert for %s: %d of %d landed",
			m.RobotID, len(ires.InsertedIDs), len(docs))
	}
	if ires != nil {
		result.InsertedPoints = len(ires.InsertedIDs)
	}
	return result, nil
}

// classify maps the driver's replace outcome onto the save operation: an
// upserted id means insert, a modified document means update, and a matched
// but unmodified document means the identical mission was replayed.
func classify(res *mongo.UpdateResult) (models.SaveOperation, string) {
	switch {
	case res.UpsertedID != nil:
		if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
			return models.OpInsert, id.Hex()
		}
		return models.OpInsert, fmt.Sprint(res.UpsertedID)
	case res.ModifiedCount > 0:
		return models.OpUpdate, ""
	default:
		return models.OpNoChange, ""
	}
}
