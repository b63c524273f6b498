// Package handlers exposes the generated fleet and the live telemetry window
// to display surfaces over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-telemetry-sim/internal/middleware"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"github.com/ukydev/fleet-telemetry-sim/internal/population"
	"github.com/ukydev/fleet-telemetry-sim/internal/scheduler"
	"github.com/ukydev/fleet-telemetry-sim/internal/simulator"
)

// SeriesSource is the part of the scheduler the handlers read from.
type SeriesSource interface {
	Snapshot() scheduler.Snapshot
	Reseed(vehicleID string, b simulator.Baseline) error
}

// SelectRequest chooses the vehicle whose telemetry is simulated.
type SelectRequest struct {
	VehicleID string `json:"vehicle_id"`
}

// TelemetryResponse is the window served to charts.
type TelemetryResponse struct {
	VehicleID string                   `json:"vehicle_id"`
	State     scheduler.State          `json:"state"`
	TickCount int                      `json:"tick_count"`
	Phase     models.Phase             `json:"phase"`
	Samples   []models.TelemetrySample `json:"samples"`
}

// TelemetryHandler serves fleet and telemetry endpoints.
type TelemetryHandler struct {
	fleet   []models.VehicleRecord
	summary population.Summary
	series  SeriesSource
	limiter *middleware.RateLimitMiddleware
}

// NewTelemetryHandler creates a handler over a generated fleet.
func NewTelemetryHandler(fleet []models.VehicleRecord, series SeriesSource) *TelemetryHandler {
	return &TelemetryHandler{
		fleet:   fleet,
		summary: population.Summarize(fleet),
		series:  series,
		limiter: middleware.NewRateLimitMiddleware(),
	}
}

// Router builds the API routes.
func (h *TelemetryHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.JSONContentType)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/vehicles", h.ListVehicles).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}", h.GetVehicle).Methods(http.MethodGet)
	api.HandleFunc("/fleet/summary", h.Summary).Methods(http.MethodGet)
	api.HandleFunc("/telemetry", h.Telemetry).Methods(http.MethodGet)
	api.HandleFunc("/telemetry/latest", h.Latest).Methods(http.MethodGet)
	api.Handle("/telemetry/select",
		h.limiter.RateLimit(10, time.Minute)(http.HandlerFunc(h.Select))).Methods(http.MethodPost)
	return r
}

// Health reports liveness.
func (h *TelemetryHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListVehicles returns the fleet, optionally filtered by ?status=.
func (h *TelemetryHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	if status == "" {
		writeJSON(w, http.StatusOK, h.fleet)
		return
	}
	if !models.IsValidStatus(status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, population.Filter(h.fleet, status))
}

// GetVehicle returns one vehicle record.
func (h *TelemetryHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	vehicle, ok := population.Find(h.fleet, id)
	if !ok {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Summary returns the fleet status breakdown.
func (h *TelemetryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.summary)
}

// Telemetry returns the current window; ?limit=n keeps only the newest n samples.
func (h *TelemetryHandler) Telemetry(w http.ResponseWriter, r *http.Request) {
	snap := h.series.Snapshot()
	samples := snap.Buffer
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if n < len(samples) {
			samples = samples[len(samples)-n:]
		}
	}
	if samples == nil {
		samples = []models.TelemetrySample{}
	}
	writeJSON(w, http.StatusOK, TelemetryResponse{
		VehicleID: snap.VehicleID,
		State:     snap.State,
		TickCount: snap.TickCount,
		Phase:     snap.Phase,
		Samples:   samples,
	})
}

// Latest returns the newest sample of the window.
func (h *TelemetryHandler) Latest(w http.ResponseWriter, r *http.Request) {
	snap := h.series.Snapshot()
	if len(snap.Buffer) == 0 {
		http.Error(w, "No telemetry available", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap.Buffer[len(snap.Buffer)-1])
}

// Select reseeds the simulation from another vehicle's baseline.
func (h *TelemetryHandler) Select(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var req SelectRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.VehicleID == "" {
		http.Error(w, "vehicle_id is required", http.StatusBadRequest)
		return
	}
	vehicle, ok := population.Find(h.fleet, req.VehicleID)
	if !ok {
		http.Error(w, "Vehicle not found", http.StatusNotFound)
		return
	}

	if err := h.series.Reseed(vehicle.ID, simulator.BaselineFor(vehicle)); err != nil {
		log.WithError(err).WithField("vehicle_id", vehicle.ID).Error("Failed to reseed telemetry")
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrNotStarted) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Failed to select vehicle", status)
		return
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicle.ID,
		"status":     vehicle.Status,
	}).Info("Selected vehicle for telemetry")
	h.Telemetry(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
