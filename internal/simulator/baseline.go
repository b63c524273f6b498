package simulator

import (
	"fmt"
	"math"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

// Baseline holds the per-vehicle scalars a simulation run is seeded from.
type Baseline struct {
	Speed       float64         `json:"speed"`
	Utilization float64         `json:"utilization"`
	SocStart    float64         `json:"soc_start"`
	SohStart    float64         `json:"soh_start"`
	Location    models.Location `json:"location"`
}

// Validate rejects non-finite inputs. Finite extremes are clamped by normalize.
func (b Baseline) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"speed", b.Speed},
		{"utilization", b.Utilization},
		{"soc start", b.SocStart},
		{"soh start", b.SohStart},
		{"latitude", b.Location.Lat},
		{"longitude", b.Location.Lon},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidBaseline, f.name, f.v)
		}
	}
	return nil
}

func (b Baseline) normalize(p Params) Baseline {
	b.Speed = p.SpeedBounds.Clamp(b.Speed)
	b.Utilization = Bounds{Min: 0, Max: 1}.Clamp(b.Utilization)
	b.SocStart = p.SocBounds.Clamp(b.SocStart)
	b.SohStart = p.SohBounds.Clamp(b.SohStart)
	return b
}

// BaselineFor derives simulation inputs from a generated vehicle record.
func BaselineFor(v models.VehicleRecord) Baseline {
	speed := v.Speed
	utilization := 0.8
	if v.Status != models.StatusActive {
		speed = 30
		utilization = 0.3
	}
	return Baseline{
		Speed:       speed,
		Utilization: utilization,
		SocStart:    float64(v.BatteryLevel),
		SohStart:    float64(v.HealthScore),
		Location:    v.Location,
	}
}
