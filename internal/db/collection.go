package db

import (
	"context"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TelemetryCollection defines the interface for telemetry data operations.
type TelemetryCollection interface {
	InsertTelemetry(ctx context.Context, sample models.TelemetrySample) error
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (TelemetryCursor, error)
}

// TelemetryCursor defines the interface for telemetry cursor operations.
type TelemetryCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// VehicleCollection defines the interface for generated fleet operations.
type VehicleCollection interface {
	InsertVehicles(ctx context.Context, vehicles []models.VehicleRecord) error
	FindVehicles(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (VehicleCursor, error)
	FindVehicleByID(ctx context.Context, id string) (*models.VehicleRecord, error)
	DeleteAll(ctx context.Context) error
}

// VehicleCursor defines the interface for vehicle cursor operations.
type VehicleCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
