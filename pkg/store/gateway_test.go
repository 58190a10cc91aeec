package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/generator"
	"github.com/agvsim/fleet-simulator/pkg/models"
)

// fakeMissions is an in-memory stand-in for the missions collection keyed by
// the natural key, reproducing the driver's replace-upsert outcome counts.
type fakeMissions struct {
	docs    map[models.MissionKey]*models.Mission
	nextErr error
}

func newFakeMissions() *fakeMissions {
	return &fakeMissions{docs: make(map[models.MissionKey]*models.Mission)}
}

func asMission(replacement interface{}) *models.Mission {
	switch v := replacement.(type) {
	case *models.Mission:
		c := *v
		return &c
	case models.Mission:
		c := v
		return &c
	}
	return nil
}

func keyFromFilter(filter interface{}) models.MissionKey {
	var key models.MissionKey
	for _, e := range filter.(bson.D) {
		switch e.Key {
		case "robot_id":
			key.RobotID = e.Value.(string)
		case "mission_start_date":
			key.MissionStartDate = e.Value.(time.Time)
		}
	}
	return key
}

func (f *fakeMissions) ReplaceOne(_ context.Context, filter interface{}, replacement interface{},
	_ ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	if f.nextErr != nil {
		err := f.nextErr
		f.nextErr = nil
		return nil, err
	}

	m := asMission(replacement)
	key := keyFromFilter(filter)

	existing, ok := f.docs[key]
	if !ok {
		id := primitive.NewObjectID()
		stored := *m
		stored.ID = id
		f.docs[key] = &stored
		return &mongo.UpdateResult{UpsertedCount: 1, UpsertedID: id}, nil
	}

	candidate := *m
	candidate.ID = existing.ID
	if reflect.DeepEqual(*existing, candidate) {
		return &mongo.UpdateResult{MatchedCount: 1}, nil
	}

	f.docs[key] = &candidate
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeMissions) FindOne(_ context.Context, filter interface{},
	_ ...*options.FindOneOptions) *mongo.SingleResult {
	if doc, ok := f.docs[keyFromFilter(filter)]; ok {
		return mongo.NewSingleResultFromDocument(doc, nil, nil)
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

// fakePoints is an in-memory stand-in for the data point collection.
type fakePoints struct {
	byMission map[primitive.ObjectID][]models.DataPoint
	insertErr error
	deletes   int
}

func newFakePoints() *fakePoints {
	return &fakePoints{byMission: make(map[primitive.ObjectID][]models.DataPoint)}
}

func (f *fakePoints) InsertMany(_ context.Context, documents []interface{},
	_ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		return nil, err
	}

	ids := make([]interface{}, 0, len(documents))
	for _, doc := range documents {
		dp := doc.(models.DataPoint)
		f.byMission[dp.MissionID] = append(f.byMission[dp.MissionID], dp)
		ids = append(ids, primitive.NewObjectID())
	}
	return &mongo.InsertManyResult{InsertedIDs: ids}, nil
}

func (f *fakePoints) DeleteMany(_ context.Context, filter interface{},
	_ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	f.deletes++
	for _, e := range filter.(bson.D) {
		if e.Key != "mission_id" {
			continue
		}
		id := e.Value.(primitive.ObjectID)
		deleted := int64(len(f.byMission[id]))
		delete(f.byMission, id)
		return &mongo.DeleteResult{DeletedCount: deleted}, nil
	}
	return &mongo.DeleteResult{}, nil
}

func testMission(t *testing.T, robotID string) *models.Mission {
	t.Helper()
	cfg := config.GetDefaultConfig()
	gen := generator.New(cfg, 42)
	return gen.Mission(robotID, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC))
}

func TestSaveMissionSingleInsert(t *testing.T) {
	missions := newFakeMissions()
	gw := newGatewayWith(missions, newFakePoints(), false)

	m := testMission(t, "AGV-001")
	result := gw.SaveMission(context.Background(), m)

	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.ErrorMessage)
	}
	if result.Operation != models.OpInsert {
		t.Errorf("expected insert, got %s", result.Operation)
	}
	if result.UpsertedID == "" {
		t.Error("expected upserted id on insert")
	}
	if result.InsertedPoints != len(m.DataPoints) {
		t.Errorf("expected %d inserted points, got %d", len(m.DataPoints), result.InsertedPoints)
	}
	if len(missions.docs) != 1 {
		t.Errorf("expected 1 stored mission, got %d", len(missions.docs))
	}
}

func TestSaveMissionSingleReplayIsNoChange(t *testing.T) {
	gw := newGatewayWith(newFakeMissions(), newFakePoints(), false)

	m := testMission(t, "AGV-001")
	if result := gw.SaveMission(context.Background(), m); result.Operation != models.OpInsert {
		t.Fatalf("first save: expected insert, got %s", result.Operation)
	}

	result := gw.SaveMission(context.Background(), m)
	if !result.Success {
		t.Fatalf("replay failed: %s", result.ErrorMessage)
	}
	if result.Operation != models.OpNoChange {
		t.Errorf("expected no_change on identical replay, got %s", result.Operation)
	}
	if result.MatchedCount != 1 || result.ModifiedCount != 0 {
		t.Errorf("expected matched=1 modified=0, got matched=%d modified=%d",
			result.MatchedCount, result.ModifiedCount)
	}
}

func TestSaveMissionSingleChangedIsUpdate(t *testing.T) {
	gw := newGatewayWith(newFakeMissions(), newFakePoints(), false)

	m := testMission(t, "AGV-001")
	gw.SaveMission(context.Background(), m)

	changed := *m
	changed.RouteName = "ROUTE99"
	result := gw.SaveMission(context.Background(), &changed)

	if result.Operation != models.OpUpdate {
		t.Errorf("expected update for changed payload, got %s", result.Operation)
	}
	if result.ModifiedCount != 1 {
		t.Errorf("expected modified=1, got %d", result.ModifiedCount)
	}
}

func TestSaveMissionStoreFaultIsErrorResult(t *testing.T) {
	missions := newFakeMissions()
	missions.nextErr = errors.New("socket closed")
	gw := newGatewayWith(missions, newFakePoints(), false)

	result := gw.SaveMission(context.Background(), testMission(t, "AGV-001"))

	if result.Success {
		t.Fatal("expected failed result on store fault")
	}
	if result.Operation != models.OpError {
		t.Errorf("expected error operation, got %s", result.Operation)
	}
	if result.ErrorMessage == "" {
		t.Error("expected error message on failed result")
	}
}

func TestSaveMissionNormalizedInsert(t *testing.T) {
	missions := newFakeMissions()
	points := newFakePoints()
	gw := newGatewayWith(missions, points, true)

	m := testMission(t, "AGV-002")
	result := gw.SaveMission(context.Background(), m)

	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.ErrorMessage)
	}
	if result.Operation != models.OpInsert {
		t.Errorf("expected insert, got %s", result.Operation)
	}
	if result.InsertedPoints != len(m.DataPoints) {
		t.Errorf("expected %d inserted points, got %d", len(m.DataPoints), result.InsertedPoints)
	}

	stored := missions.docs[m.Key()]
	if stored.DataPoints != nil {
		t.Error("normalized mission document must not embed data points")
	}
	for _, dp := range points.byMission[stored.ID] {
		if dp.MissionID != stored.ID {
			t.Errorf("data point references %s, want %s", dp.MissionID.Hex(), stored.ID.Hex())
		}
		if dp.RobotID != m.RobotID {
			t.Errorf("data point robot id %q, want %q", dp.RobotID, m.RobotID)
		}
	}
}

func TestSaveMissionNormalizedReplayReplacesPoints(t *testing.T) {
	missions := newFakeMissions()
	points := newFakePoints()
	gw := newGatewayWith(missions, points, true)

	m := testMission(t, "AGV-002")
	gw.SaveMission(context.Background(), m)

	// Same mission, regenerated with fewer points.
	changed := *m
	changed.DataPoints = m.DataPoints[:3]
	result := gw.SaveMission(context.Background(), &changed)

	if !result.Success {
		t.Fatalf("replay failed: %s", result.ErrorMessage)
	}
	if points.deletes != 1 {
		t.Errorf("expected previous batch cleared once, got %d deletes", points.deletes)
	}

	stored := missions.docs[m.Key()]
	if got := len(points.byMission[stored.ID]); got != 3 {
		t.Errorf("expected 3 points after replay, got %d", got)
	}
}

func TestSaveMissionNormalizedIdenticalReplayIsNoChange(t *testing.T) {
	missions := newFakeMissions()
	points := newFakePoints()
	gw := newGatewayWith(missions, points, true)

	m := testMission(t, "AGV-003")
	gw.SaveMission(context.Background(), m)
	result := gw.SaveMission(context.Background(), m)

	if result.Operation != models.OpNoChange {
		t.Errorf("expected no_change, got %s", result.Operation)
	}

	stored := missions.docs[m.Key()]
	if got := len(points.byMission[stored.ID]); got != len(m.DataPoints) {
		t.Errorf("expected %d points after identical replay, got %d", len(m.DataPoints), got)
	}
}

func TestSaveMissionNormalizedInsertFaultIsErrorResult(t *testing.T) {
	points := newFakePoints()
	points.insertErr = errors.New("write concern timeout")
	gw := newGatewayWith(newFakeMissions(), points, true)

	result := gw.SaveMission(context.Background(), testMission(t, "AGV-004"))

	if result.Success {
		t.Fatal("expected failure when point insert fails hard")
	}
	if result.Operation != models.OpError {
		t.Errorf("expected error operation, got %s", result.Operation)
	}
}
