// Package store owns everything that touches MongoDB: the connection,
// index provisioning, the idempotent mission persistence gateway, and the
// cached statistics aggregator.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/logger"
	"github.com/agvsim/fleet-simulator/pkg/models"
	"github.com/agvsim/fleet-simulator/pkg/simerr"
)

// Client wraps the MongoDB connection and the collection handles the
// simulator uses.
type Client struct {
	mc  *mongo.Client
	db  *mongo.Database
	cfg config.DatabaseConfig
	log logger.Logger
}

// Connect establishes and verifies the MongoDB connection. An unreachable
// store at boot is a fatal startup fault, so errors here are returned to
// the caller instead of degraded around.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, simerr.StoreUnavailable("connect", err)
	}

	if err := mc.Ping(ctx, nil); err != nil {
		_ = mc.Disconnect(context.Background())
		return nil, simerr.StoreUnavailable("ping", err)
	}

	log := logger.WithPrefix("store")
	log.Infof("connected to %s.%s", cfg.Database, cfg.MissionsCollection)

	return &Client{
		mc:  mc,
		db:  mc.Database(cfg.Database),
		cfg: cfg,
		log: log,
	}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.mc.Disconnect(ctx)
}

// Missions returns the mission collection handle.
func (c *Client) Missions() *mongo.Collection {
	return c.db.Collection(c.cfg.MissionsCollection)
}

// DataPoints returns the normalized data point collection handle.
func (c *Client) DataPoints() *mongo.Collection {
	return c.db.Collection(c.cfg.DataPointsCollection)
}

// Health verifies store reachability and whether mission data exists. It is
// deliberately independent of the stats cache so "store down" and "store up
// but empty" stay distinguishable.
func (c *Client) Health(ctx context.Context) models.HealthReport {
	report := models.HealthReport{
		DatabaseName: c.cfg.Database,
		CheckedAt:    time.Now(),
	}

	if err := c.mc.Ping(ctx, nil); err != nil {
		report.Status = "unhealthy"
		report.Error = simerr.StoreUnavailable("health_ping", err).Error()
		return report
	}

	collections, err := c.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		report.Status = "unhealthy"
		report.Error = err.Error()
		return report
	}
	report.Collections = collections

	for _, name := range collections {
		if name != c.cfg.MissionsCollection {
			continue
		}
		count, err := c.Missions().CountDocuments(ctx, bson.D{})
		if err == nil && count > 0 {
			report.HasData = true
		}
		break
	}

	report.Status = "healthy"
	return report
}
