// Package population generates the synthetic vehicle fleet.
package population

import (
	"errors"
	"fmt"
	"math"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

// weightTolerance is how far the sum of status weights may drift from 1.
const weightTolerance = 1e-6

var (
	ErrInvalidWeights = errors.New("invalid status weights")
	ErrInvalidConfig  = errors.New("invalid generator config")
)

// RandSource supplies uniform draws in [0,1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// StatusWeight is the probability of a vehicle being created in Status.
type StatusWeight struct {
	Status models.Status
	Weight float64
}

// Range is an inclusive integer range.
type Range struct {
	Min int
	Max int
}

// SpeedRange is a half-open speed range in km/h.
type SpeedRange struct {
	Min float64
	Max float64
}

// GeneratorConfig holds the attribute ranges used when building records.
type GeneratorConfig struct {
	Battery       map[models.Status]Range
	ActiveSpeed   SpeedRange
	Health        Range
	HealthService Range // health band for vehicles under maintenance
	BaseLocation  models.Location
	Jitter        float64 // degrees, applied symmetrically on each axis
	DriverPool    []string
	IDPrefix      string
}

// DefaultWeights returns the reference status distribution.
func DefaultWeights() []StatusWeight {
	return []StatusWeight{
		{Status: models.StatusActive, Weight: 0.80},
		{Status: models.StatusCharging, Weight: 0.10},
		{Status: models.StatusIdle, Weight: 0.07},
		{Status: models.StatusMaintenance, Weight: 0.03},
	}
}

// DefaultConfig returns the reference attribute ranges.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Battery: map[models.Status]Range{
			models.StatusMaintenance: {Min: 10, Max: 30},
			models.StatusCharging:    {Min: 30, Max: 70},
			models.StatusIdle:        {Min: 50, Max: 90},
			models.StatusActive:      {Min: 60, Max: 100},
		},
		ActiveSpeed:   SpeedRange{Min: 20, Max: 80},
		Health:        Range{Min: 85, Max: 100},
		HealthService: Range{Min: 60, Max: 80},
		BaseLocation:  models.Location{Lat: 28.6139, Lon: 77.2090},
		Jitter:        0.1,
		DriverPool: []string{
			"Aarav Sharma", "Priya Patel", "Rohan Gupta", "Ananya Singh",
			"Vikram Rao", "Meera Iyer", "Karan Mehta", "Sneha Reddy",
		},
		IDPrefix: "VH",
	}
}

// ValidateWeights checks that weights name known statuses, are finite and
// non-negative, and sum to 1. Weights are never renormalised.
func ValidateWeights(weights []StatusWeight) error {
	if len(weights) == 0 {
		return fmt.Errorf("%w: no weights given", ErrInvalidWeights)
	}
	sum := 0.0
	seen := make(map[models.Status]bool, len(weights))
	for _, w := range weights {
		if !models.IsValidStatus(w.Status) {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidWeights, w.Status)
		}
		if seen[w.Status] {
			return fmt.Errorf("%w: duplicate status %q", ErrInvalidWeights, w.Status)
		}
		seen[w.Status] = true
		if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) || w.Weight < 0 {
			return fmt.Errorf("%w: weight for %q is %v", ErrInvalidWeights, w.Status, w.Weight)
		}
		sum += w.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// Validate checks that every range is well formed.
func (c GeneratorConfig) Validate() error {
	for _, s := range models.Statuses() {
		r, ok := c.Battery[s]
		if !ok {
			return fmt.Errorf("%w: no battery range for %q", ErrInvalidConfig, s)
		}
		if r.Min > r.Max || r.Min < 0 || r.Max > 100 {
			return fmt.Errorf("%w: battery range for %q is [%d,%d]", ErrInvalidConfig, s, r.Min, r.Max)
		}
	}
	if c.ActiveSpeed.Min <= 0 || c.ActiveSpeed.Min > c.ActiveSpeed.Max {
		return fmt.Errorf("%w: active speed range [%v,%v)", ErrInvalidConfig, c.ActiveSpeed.Min, c.ActiveSpeed.Max)
	}
	for name, r := range map[string]Range{"health": c.Health, "service health": c.HealthService} {
		if r.Min > r.Max || r.Min < 0 || r.Max > 100 {
			return fmt.Errorf("%w: %s range is [%d,%d]", ErrInvalidConfig, name, r.Min, r.Max)
		}
	}
	if c.Jitter < 0 {
		return fmt.Errorf("%w: negative jitter", ErrInvalidConfig)
	}
	if len(c.DriverPool) == 0 {
		return fmt.Errorf("%w: empty driver pool", ErrInvalidConfig)
	}
	return nil
}

// Generator builds vehicle records from a status distribution.
type Generator struct {
	cfg     GeneratorConfig
	weights []StatusWeight
}

// NewGenerator validates cfg and weights and returns a Generator.
func NewGenerator(cfg GeneratorConfig, weights []StatusWeight) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	w := make([]StatusWeight, len(weights))
	copy(w, weights)
	return &Generator{cfg: cfg, weights: w}, nil
}

// Generate produces count records. Each record depends only on its index and
// the draws it takes from src, so a fixed source yields a fixed fleet.
func (g *Generator) Generate(count int, src RandSource) []models.VehicleRecord {
	if count <= 0 {
		return []models.VehicleRecord{}
	}
	records := make([]models.VehicleRecord, 0, count)
	for i := 1; i <= count; i++ {
		records = append(records, g.record(i, src))
	}
	return records
}

// Generate is a convenience wrapper using DefaultConfig.
func Generate(count int, weights []StatusWeight, src RandSource) ([]models.VehicleRecord, error) {
	g, err := NewGenerator(DefaultConfig(), weights)
	if err != nil {
		return nil, err
	}
	return g.Generate(count, src), nil
}

func (g *Generator) record(i int, src RandSource) models.VehicleRecord {
	status := pickStatus(g.weights, src.Float64())

	battery := intIn(g.cfg.Battery[status], src.Float64())
	speed := 0.0
	if status == models.StatusActive {
		speed = g.cfg.ActiveSpeed.Min + src.Float64()*(g.cfg.ActiveSpeed.Max-g.cfg.ActiveSpeed.Min)
	}
	healthRange := g.cfg.Health
	if status == models.StatusMaintenance {
		healthRange = g.cfg.HealthService
	}
	health := intIn(healthRange, src.Float64())

	base := g.cfg.BaseLocation
	loc := models.Location{
		Lat: base.Lat + (src.Float64()*2-1)*g.cfg.Jitter,
		Lon: base.Lon + (src.Float64()*2-1)*g.cfg.Jitter,
	}

	operator := g.cfg.DriverPool[i%len(g.cfg.DriverPool)]
	if status == models.StatusMaintenance {
		operator = models.UnassignedOperator
	}

	return models.VehicleRecord{
		ID:               fmt.Sprintf("%s%05d", g.cfg.IDPrefix, i),
		Status:           status,
		BatteryLevel:     battery,
		Speed:            speed,
		HealthScore:      health,
		Location:         loc,
		AssignedOperator: operator,
	}
}

// pickStatus returns the first status whose cumulative weight exceeds r.
// If rounding leaves r above the final cumulative sum, the last status with
// a positive weight is used so no configured status becomes unreachable.
func pickStatus(weights []StatusWeight, r float64) models.Status {
	cumulative := 0.0
	for _, w := range weights {
		cumulative += w.Weight
		if cumulative > r {
			return w.Status
		}
	}
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i].Weight > 0 {
			return weights[i].Status
		}
	}
	return weights[len(weights)-1].Status
}

// intIn maps a uniform draw onto the inclusive range r.
func intIn(r Range, u float64) int {
	v := r.Min + int(math.Floor(u*float64(r.Max-r.Min+1)))
	if v > r.Max {
		v = r.Max
	}
	if v < r.Min {
		v = r.Min
	}
	return v
}
