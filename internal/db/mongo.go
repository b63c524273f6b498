package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"github.com/ukydev/fleet-telemetry-sim/internal/retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNilCollection   = errors.New("mongo collection is nil")
	ErrVehicleNotFound = errors.New("vehicle not found")
)

const pingTimeout = 10 * time.Second

// ConnectMongo connects to MongoDB at uri, retrying with exponential backoff
// up to policy.MaxRetries times after the first attempt.
func ConnectMongo(ctx context.Context, uri string, policy retry.Settings) (*mongo.Client, error) {
	var client *mongo.Client
	connect := func() error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return fmt.Errorf("mongo.Connect error: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := c.Ping(pingCtx, nil); err != nil {
			_ = c.Disconnect(ctx)
			return fmt.Errorf("mongo.Ping error: %w", err)
		}
		client = c
		return nil
	}
	onError := func(err error, next time.Duration) {
		log.WithError(err).WithField("retry_in", next).Warn("MongoDB not reachable")
	}
	if err := retry.Do(ctx, policy, connect, onError); err != nil {
		return nil, err
	}
	return client, nil
}

// MongoCollection wraps a MongoDB collection for fleet and telemetry operations.
type MongoCollection struct {
	Collection *mongo.Collection
}

// InsertTelemetry inserts a telemetry sample into the collection.
func (c *MongoCollection) InsertTelemetry(ctx context.Context, sample models.TelemetrySample) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	_, err := c.Collection.InsertOne(ctx, sample)
	return err
}

// mongoTelemetryCursor wraps a MongoDB cursor for telemetry queries.
type mongoTelemetryCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoTelemetryCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}
func (m *mongoTelemetryCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// Find queries telemetry samples from the collection.
func (c *MongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (TelemetryCursor, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoTelemetryCursor{cursor: cursor}, nil
}

// DeleteAll deletes every document in the collection.
func (c *MongoCollection) DeleteAll(ctx context.Context) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	_, err := c.Collection.DeleteMany(ctx, bson.M{})
	return err
}

// mongoVehicleCursor wraps a MongoDB cursor for vehicle queries.
type mongoVehicleCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoVehicleCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

// Close closes the cursor.
func (m *mongoVehicleCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// InsertVehicles inserts a generated fleet in one batch.
func (c *MongoCollection) InsertVehicles(ctx context.Context, vehicles []models.VehicleRecord) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if len(vehicles) == 0 {
		return nil
	}
	docs := make([]interface{}, len(vehicles))
	for i, v := range vehicles {
		docs[i] = v
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return err
}

// FindVehicles queries vehicle records from the collection.
func (c *MongoCollection) FindVehicles(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (VehicleCursor, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoVehicleCursor{cursor: cursor}, nil
}

// FindVehicleByID finds a vehicle by its generated ID.
func (c *MongoCollection) FindVehicleByID(ctx context.Context, id string) (*models.VehicleRecord, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	var vehicle models.VehicleRecord
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}
