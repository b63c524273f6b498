package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-telemetry-sim/internal/db"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
)

type sliceCursor struct {
	samples  []models.TelemetrySample
	vehicles []models.VehicleRecord
}

func (c *sliceCursor) All(ctx context.Context, out interface{}) error {
	switch dst := out.(type) {
	case *[]models.TelemetrySample:
		*dst = append(*dst, c.samples...)
	case *[]models.VehicleRecord:
		*dst = append(*dst, c.vehicles...)
	}
	return nil
}

func (c *sliceCursor) Close(ctx context.Context) error { return nil }

type storedFleet struct {
	vehicles []models.VehicleRecord
}

func (s *storedFleet) InsertVehicles(ctx context.Context, vehicles []models.VehicleRecord) error {
	s.vehicles = append(s.vehicles, vehicles...)
	return nil
}

func (s *storedFleet) FindVehicles(ctx context.Context, filter interface{}, opts ...*mongoopts.FindOptions) (db.VehicleCursor, error) {
	return &sliceCursor{vehicles: s.vehicles}, nil
}

func (s *storedFleet) FindVehicleByID(ctx context.Context, id string) (*models.VehicleRecord, error) {
	for _, v := range s.vehicles {
		if v.ID == id {
			v := v
			return &v, nil
		}
	}
	return nil, db.ErrVehicleNotFound
}

func (s *storedFleet) DeleteAll(ctx context.Context) error {
	s.vehicles = nil
	return nil
}

type storedTelemetry struct {
	samples []models.TelemetrySample
}

func (s *storedTelemetry) InsertTelemetry(ctx context.Context, sample models.TelemetrySample) error {
	s.samples = append(s.samples, sample)
	return nil
}

func (s *storedTelemetry) Find(ctx context.Context, filter interface{}, opts ...*mongoopts.FindOptions) (db.TelemetryCursor, error) {
	return &sliceCursor{samples: s.samples}, nil
}

func TestPrintHistory_Fleet(t *testing.T) {
	fleet := &storedFleet{vehicles: []models.VehicleRecord{
		{ID: "VH00000", Status: models.StatusActive, BatteryLevel: 80, HealthScore: 90},
		{ID: "VH00001", Status: models.StatusIdle, BatteryLevel: 60, HealthScore: 88},
	}}
	out := &bytes.Buffer{}

	require.NoError(t, printHistory(context.Background(), out, fleet, &storedTelemetry{}, "", 10, "summary"))
	assert.Contains(t, out.String(), "Total vehicles: 2")
}

func TestPrintHistory_Vehicle(t *testing.T) {
	fleet := &storedFleet{vehicles: []models.VehicleRecord{{ID: "VH00000", Status: models.StatusActive}}}
	telemetry := &storedTelemetry{samples: []models.TelemetrySample{
		{VehicleID: "VH00000", Tick: 2},
		{VehicleID: "VH00000", Tick: 1},
	}}
	out := &bytes.Buffer{}

	require.NoError(t, printHistory(context.Background(), out, fleet, telemetry, "VH00000", 10, "json"))
	var got vehicleHistory
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "VH00000", got.Vehicle.ID)
	require.Len(t, got.Samples, 2)
	assert.Equal(t, 1, got.Samples[0].Tick)
}

func TestPrintHistory_UnknownVehicle(t *testing.T) {
	err := printHistory(context.Background(), &bytes.Buffer{}, &storedFleet{}, &storedTelemetry{}, "VH00042", 10, "json")
	assert.ErrorIs(t, err, db.ErrVehicleNotFound)
}

func TestHistoryCmd_RequiresMongo(t *testing.T) {
	_, err := execute(t, "history")
	assert.ErrorIs(t, err, errNoMongo)
}
