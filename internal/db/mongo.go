package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoSource exposes a MongoDB collection as a watchable Source.
type MongoSource struct {
	Collection *mongo.Collection
}

// Name returns the collection name.
func (s *MongoSource) Name() string {
	if s.Collection == nil {
		return ""
	}
	return s.Collection.Name()
}

// Find opens a cursor over every document of the collection. The caller decodes
// documents one at a time.
func (s *MongoSource) Find(ctx context.Context) (Cursor, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := s.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

// Watch opens a change stream over inserts, updates, replaces and deletes.
// Change streams need a replica set or sharded cluster; on a standalone server
// Watch fails and the collection is only read once.
func (s *MongoSource) Watch(ctx context.Context) (ChangeStream, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	stream, err := s.Collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", s.Collection.Name(), err)
	}
	return stream, nil
}

// MongoCollection wraps a MongoDB collection for fleet record writes.
type MongoCollection struct {
	Collection *mongo.Collection
}

// InsertDailyLog appends a daily log. A missing timestamp is filled with the write time.
func (c *MongoCollection) InsertDailyLog(ctx context.Context, log models.DailyLog) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if log.Timestamp == nil {
		now := time.Now().UTC()
		log.Timestamp = &now
	}
	_, err := c.Collection.InsertOne(ctx, log)
	return err
}

// InsertDriver inserts a driver record and returns its ID.
func (c *MongoCollection) InsertDriver(ctx context.Context, driver models.Driver) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, fmt.Errorf("mongo collection is nil")
	}
	if driver.ID.IsZero() {
		driver.ID = primitive.NewObjectID()
	}
	_, err := c.Collection.InsertOne(ctx, driver)
	return driver.ID, err
}

// InsertVehicle inserts a vehicle record and returns its ID.
func (c *MongoCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, fmt.Errorf("mongo collection is nil")
	}
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	_, err := c.Collection.InsertOne(ctx, vehicle)
	return vehicle.ID, err
}

// AddVehicleKM advances a vehicle's odometer by km.
func (c *MongoCollection) AddVehicleKM(ctx context.Context, id primitive.ObjectID, km int) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"totalKM": km}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("vehicle not found")
	}
	return nil
}

// DeleteAll deletes all records from the collection.
func (c *MongoCollection) DeleteAll(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.DeleteMany(ctx, bson.M{})
	return err
}
