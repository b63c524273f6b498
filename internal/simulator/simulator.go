// Package simulator evolves a single vehicle's telemetry window under a
// cyclic driving, transition and charging phase model.
package simulator

import (
	"time"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

// Simulator owns one vehicle's telemetry window and tick counter. It is not
// safe for concurrent use; the scheduler serialises access.
type Simulator struct {
	params    Params
	baseline  Baseline
	vehicleID string
	tickCount int
	buffer    []models.TelemetrySample
}

// New validates p and returns an unseeded simulator.
func New(p Params) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{params: p}, nil
}

// Seed discards any existing window and rebuilds it from b.
func (s *Simulator) Seed(vehicleID string, b Baseline, now time.Time) error {
	buf, err := Seed(s.params, b, now)
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i].VehicleID = vehicleID
	}
	s.vehicleID = vehicleID
	s.baseline = b
	s.tickCount = 0
	s.buffer = buf
	return nil
}

// Tick advances the simulation by one step and returns the new window.
func (s *Simulator) Tick() ([]models.TelemetrySample, error) {
	if s.buffer == nil {
		return nil, ErrNotSeeded
	}
	s.tickCount++
	s.buffer = Tick(s.params, s.baseline, s.buffer, s.tickCount)
	return s.buffer, nil
}

// Buffer returns the current window. Callers must not modify it.
func (s *Simulator) Buffer() []models.TelemetrySample {
	return s.buffer
}

// Latest returns the newest sample.
func (s *Simulator) Latest() (models.TelemetrySample, bool) {
	if len(s.buffer) == 0 {
		return models.TelemetrySample{}, false
	}
	return s.buffer[len(s.buffer)-1], true
}

func (s *Simulator) TickCount() int { return s.tickCount }
func (s *Simulator) VehicleID() string { return s.vehicleID }
func (s *Simulator) Baseline() Baseline { return s.baseline }
func (s *Simulator) Params() Params { return s.params }
func (s *Simulator) Seeded() bool { return s.buffer != nil }

// Phase returns the phase of the newest sample's tick.
func (s *Simulator) Phase() models.Phase {
	return s.params.PhaseOf(s.params.PhaseIndex(s.tickCount))
}
