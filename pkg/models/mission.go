package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location identifies where a mission took place inside the plant.
type Location struct {
	Site  string `bson:"site" json:"site"`
	Line  string `bson:"line" json:"line"`
	Floor string `bson:"floor" json:"floor"`
	Area  string `bson:"area" json:"area"`
}

// Mission is one simulated patrol run by a robot. The (robot_id,
// mission_start_date) pair is the natural key: the store enforces a unique
// index on it and the persistence gateway upserts against it.
type Mission struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RobotID          string             `bson:"robot_id" json:"robot_id"`
	MissionStartDate time.Time          `bson:"mission_start_date" json:"mission_start_date"`
	MissionEndDate   time.Time          `bson:"mission_end_date" json:"mission_end_date"`
	BatteryStart     int                `bson:"mission_start_battery_state" json:"mission_start_battery_state"`
	BatteryEnd       int                `bson:"mission_end_battery_state" json:"mission_end_battery_state"`
	RouteName        string             `bson:"route_name" json:"route_name"`
	Location         Location           `bson:"location" json:"location"`
	DataPoints       []DataPoint        `bson:"data_points,omitempty" json:"data_points,omitempty"`
	SimulatedAt      time.Time          `bson:"simulated_at" json:"simulated_at"`
}

// Meta returns a copy of the mission without its data points, the document
// shape stored in the missions collection under normalized storage.
func (m *Mission) Meta() Mission {
	meta := *m
	meta.DataPoints = nil
	return meta
}

// Key returns the natural key of the mission.
func (m *Mission) Key() MissionKey {
	return MissionKey{RobotID: m.RobotID, MissionStartDate: m.MissionStartDate}
}

// MissionKey is the idempotency key for mission persistence.
type MissionKey struct {
	RobotID          string
	MissionStartDate time.Time
}
