package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes provisions the indexes the gateway and the stats queries
// rely on. Index creation failure is logged and tolerated: the simulator
// still works without them, only slower, and the unique natural-key index
// may legitimately already exist with different options.
func (c *Client) EnsureIndexes(ctx context.Context, normalized bool) {
	missionModels := []mongo.IndexModel{
		{
			// Natural key. Backs the upsert filter in the gateway.
			Keys:    bson.D{{Key: "robot_id", Value: 1}, {Key: "mission_start_date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_robot_mission_start"),
		},
		{
			Keys: bson.D{{Key: "mission_start_date", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "location.site", Value: 1}, {Key: "location.line", Value: 1}},
		},
	}

	if !normalized {
		missionModels = append(missionModels,
			mongo.IndexModel{
				Keys: bson.D{{Key: "data_points.timestamp", Value: 1}},
			},
			mongo.IndexModel{
				Keys: bson.D{{Key: "robot_id", Value: 1}},
			},
		)
	}

	if _, err := c.Missions().Indexes().CreateMany(ctx, missionModels); err != nil {
		c.log.Warnf("mission index creation failed: %v", err)
	}

	if !normalized {
		return
	}

	pointModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mission_id", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_mission_point_ts"),
		},
		{
			Keys: bson.D{{Key: "robot_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	}

	if _, err := c.DataPoints().Indexes().CreateMany(ctx, pointModels); err != nil {
		c.log.Warnf("data point index creation failed: %v", err)
	}
}
