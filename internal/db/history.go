package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LoadFleet returns the stored fleet ordered by vehicle ID.
func LoadFleet(ctx context.Context, coll VehicleCollection) ([]models.VehicleRecord, error) {
	cursor, err := coll.FindVehicles(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query fleet: %w", err)
	}
	defer cursor.Close(ctx)

	var fleet []models.VehicleRecord
	if err := cursor.All(ctx, &fleet); err != nil {
		return nil, fmt.Errorf("failed to decode fleet: %w", err)
	}
	return fleet, nil
}

// RecentTelemetry returns up to limit archived samples for vehicleID, oldest
// first. Ticks restart on every reseed, so samples are ordered by timestamp.
func RecentTelemetry(ctx context.Context, coll TelemetryCollection, vehicleID string, limit int64) ([]models.TelemetrySample, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := coll.Find(ctx, bson.M{"vehicle_id": vehicleID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry for %s: %w", vehicleID, err)
	}
	defer cursor.Close(ctx)

	var samples []models.TelemetrySample
	if err := cursor.All(ctx, &samples); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry for %s: %w", vehicleID, err)
	}
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}
