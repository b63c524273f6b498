package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-telemetry-sim/internal/config"
	"github.com/ukydev/fleet-telemetry-sim/internal/db"
	"github.com/ukydev/fleet-telemetry-sim/internal/handlers"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"github.com/ukydev/fleet-telemetry-sim/internal/publish"
	"github.com/ukydev/fleet-telemetry-sim/internal/scheduler"
	"github.com/ukydev/fleet-telemetry-sim/internal/simulator"
	"go.mongodb.org/mongo-driver/mongo"
)

const shutdownTimeout = 5 * time.Second

var errUnknownVehicle = errors.New("vehicle not in generated fleet")

// runCmd generates a fleet and serves live telemetry until interrupted
func runCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate telemetry and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "HTTP port (PORT)")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	seed := resolveSeed(cfg.Seed, cfg.SeedSet)
	fleet, err := generateFleet(cfg, seed)
	if err != nil {
		return err
	}
	vehicle, err := selectVehicle(fleet, cfg.VehicleID)
	if err != nil {
		return err
	}

	var sinks []scheduler.Sink
	if cfg.MongoURI != "" {
		client, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoRetry)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		defer disconnectMongo(client)
		sink, err := archiveFleet(ctx, client.Database(cfg.MongoDB), fleet)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
	}
	if cfg.MQTT.Broker != "" {
		pub, client, err := publish.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer disconnectMQTT(client)
		sinks = append(sinks, pub)
	}

	sim, err := simulator.New(cfg.Params)
	if err != nil {
		return err
	}
	runner := scheduler.NewRunner(sim, sinks...)
	baseline := simulator.BaselineFor(vehicle)
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("Selected vehicle:\n%s", spew.Sdump(vehicle, baseline))
	}
	if err := runner.Start(ctx, vehicle.ID, baseline); err != nil {
		return fmt.Errorf("failed to start simulation: %w", err)
	}
	defer runner.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewTelemetryHandler(fleet, runner).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	log.WithFields(log.Fields{
		"vehicle_id": vehicle.ID,
		"status":     vehicle.Status,
		"interval":   cfg.Params.StepInterval,
		"sinks":      len(sinks),
	}).Info("Telemetry simulation started")

	err = wait(ctx, runner, serveErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("HTTP server shutdown failed")
	}

	metrics := runner.Metrics()
	log.WithFields(log.Fields{
		"ticks":       metrics.Counter(scheduler.TicksTotal).Value(),
		"reseeds":     metrics.Counter(scheduler.ReseedsTotal).Value(),
		"sink_errors": metrics.Counter(scheduler.SinkErrorsTotal).Value(),
	}).Info("Telemetry simulation stopped")
	return err
}

// wait blocks until the context ends, the server fails or the runner stops
// on its own. A reseed swaps the runner's done channel, so a closed channel
// only ends the wait when no newer one replaced it.
func wait(ctx context.Context, runner *scheduler.Runner, serveErr <-chan error) error {
	done := runner.Done()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-serveErr:
			if ok && err != nil {
				return fmt.Errorf("HTTP server failed: %w", err)
			}
			serveErr = nil
		case <-done:
			if err := runner.Err(); err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			next := runner.Done()
			if next == done {
				log.Warn("Telemetry runner stopped")
				return nil
			}
			done = next
		}
	}
}

// selectVehicle returns the requested vehicle, or the first active one when
// id is empty.
func selectVehicle(fleet []models.VehicleRecord, id string) (models.VehicleRecord, error) {
	if len(fleet) == 0 {
		return models.VehicleRecord{}, errUnknownVehicle
	}
	if id != "" {
		for _, v := range fleet {
			if v.ID == id {
				return v, nil
			}
		}
		return models.VehicleRecord{}, fmt.Errorf("%w: %s", errUnknownVehicle, id)
	}
	for _, v := range fleet {
		if v.Status == models.StatusActive {
			return v, nil
		}
	}
	return fleet[0], nil
}

func archiveFleet(ctx context.Context, database *mongo.Database, fleet []models.VehicleRecord) (scheduler.Sink, error) {
	vehicles := &db.MongoCollection{Collection: database.Collection("vehicles")}
	if err := db.ReplaceFleet(ctx, vehicles, fleet); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"database":   database.Name(),
		"fleet_size": len(fleet),
	}).Info("Archived fleet to MongoDB")
	return &db.TelemetryArchive{Collection: &db.MongoCollection{Collection: database.Collection("telemetry")}}, nil
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("MongoDB disconnect failed")
	}
}

func disconnectMQTT(client mqtt.Client) {
	client.Disconnect(250)
}
