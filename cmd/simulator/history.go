package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-telemetry-sim/internal/db"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

var errNoMongo = errors.New("MONGO_URI is not set")

type vehicleHistory struct {
	Vehicle models.VehicleRecord     `json:"vehicle"`
	Samples []models.TelemetrySample `json:"samples"`
}

// historyCmd reads the archived fleet and telemetry back from MongoDB
func historyCmd(opts *options) *cobra.Command {
	var limit int64
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the archived fleet or one vehicle's archived telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.MongoURI == "" {
				return errNoMongo
			}
			ctx := cmd.Context()
			client, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoRetry)
			if err != nil {
				return fmt.Errorf("failed to connect to MongoDB: %w", err)
			}
			defer disconnectMongo(client)

			database := client.Database(cfg.MongoDB)
			return printHistory(ctx, cmd.OutOrStdout(),
				&db.MongoCollection{Collection: database.Collection("vehicles")},
				&db.MongoCollection{Collection: database.Collection("telemetry")},
				cfg.VehicleID, limit, format)
		},
	}

	cmd.Flags().Int64VarP(&limit, "limit", "l", 60, "Maximum number of samples to show")
	cmd.Flags().StringVarP(&format, "output", "o", "summary", "Fleet output format (json, table, summary)")
	return cmd
}

// printHistory prints the stored fleet, or the newest archived samples of
// vehicleID when it is set.
func printHistory(ctx context.Context, w io.Writer, vehicles db.VehicleCollection, telemetry db.TelemetryCollection, vehicleID string, limit int64, format string) error {
	if vehicleID == "" {
		fleet, err := db.LoadFleet(ctx, vehicles)
		if err != nil {
			return err
		}
		return printFleet(w, fleet, format)
	}

	vehicle, err := vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", vehicleID, err)
	}
	samples, err := db.RecentTelemetry(ctx, telemetry, vehicleID, limit)
	if err != nil {
		return err
	}
	if samples == nil {
		samples = []models.TelemetrySample{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vehicleHistory{Vehicle: *vehicle, Samples: samples})
}
