package models

import "time"

// Phase is the coarse driving mode a telemetry sample was produced in.
type Phase string

const (
	PhaseDriving    Phase = "driving"
	PhaseTransition Phase = "transition"
	PhaseCharging   Phase = "charging"
)

// TelemetrySample is one point of a simulated vehicle's telemetry window.
type TelemetrySample struct {
	VehicleID     string    `bson:"vehicle_id,omitempty" json:"vehicle_id,omitempty"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
	Tick          int       `bson:"tick" json:"tick"`
	Phase         Phase     `bson:"phase" json:"phase"`
	StateOfCharge float64   `bson:"soc" json:"soc"`                     // percent
	StateOfHealth float64   `bson:"soh" json:"soh"`                     // percent
	BatteryPower  float64   `bson:"battery_power" json:"battery_power"` // kW, negative while regenerating or charging
	BrakeStatus   float64   `bson:"brake_status" json:"brake_status"`   // percent
	Speed         float64   `bson:"speed" json:"speed"`                 // km/h
	TripDistance  float64   `bson:"trip_distance" json:"trip_distance"` // km
	TripDuration  float64   `bson:"trip_duration" json:"trip_duration"` // minutes
	IdleTime      float64   `bson:"idle_time" json:"idle_time"`         // percent
	Heading       float64   `bson:"heading" json:"heading"`             // radians travelled around the base loop
	Location      Location  `bson:"location" json:"location"`
}
