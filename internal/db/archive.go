package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

// ReplaceFleet swaps the stored fleet for a freshly generated batch.
func ReplaceFleet(ctx context.Context, coll VehicleCollection, vehicles []models.VehicleRecord) error {
	if err := coll.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear fleet: %w", err)
	}
	if err := coll.InsertVehicles(ctx, vehicles); err != nil {
		return fmt.Errorf("failed to insert fleet: %w", err)
	}
	return nil
}

// TelemetryArchive stores every published sample.
type TelemetryArchive struct {
	Collection TelemetryCollection
}

// Publish writes sample to the archive collection.
func (a *TelemetryArchive) Publish(ctx context.Context, sample models.TelemetrySample) error {
	if err := a.Collection.InsertTelemetry(ctx, sample); err != nil {
		return fmt.Errorf("failed to archive sample %d for %s: %w", sample.Tick, sample.VehicleID, err)
	}
	return nil
}
