package population

import "github.com/ukydev/fleet-telemetry-sim/internal/models"

// Summary is the status breakdown of a generated fleet.
type Summary struct {
	Total          int                       `json:"total"`
	Counts         map[models.Status]int     `json:"counts"`
	Fractions      map[models.Status]float64 `json:"fractions"`
	AverageBattery float64                   `json:"average_battery"`
	AverageHealth  float64                   `json:"average_health"`
}

// Summarize counts records per status.
func Summarize(records []models.VehicleRecord) Summary {
	s := Summary{
		Total:     len(records),
		Counts:    make(map[models.Status]int, 4),
		Fractions: make(map[models.Status]float64, 4),
	}
	for _, st := range models.Statuses() {
		s.Counts[st] = 0
		s.Fractions[st] = 0
	}
	if len(records) == 0 {
		return s
	}
	var battery, health int
	for _, r := range records {
		s.Counts[r.Status]++
		battery += r.BatteryLevel
		health += r.HealthScore
	}
	for st, n := range s.Counts {
		s.Fractions[st] = float64(n) / float64(len(records))
	}
	s.AverageBattery = float64(battery) / float64(len(records))
	s.AverageHealth = float64(health) / float64(len(records))
	return s
}

// Find returns the record with the given ID.
func Find(records []models.VehicleRecord, id string) (models.VehicleRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return models.VehicleRecord{}, false
}

// Filter returns the records in the given status.
func Filter(records []models.VehicleRecord, status models.Status) []models.VehicleRecord {
	out := make([]models.VehicleRecord, 0)
	for _, r := range records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}
