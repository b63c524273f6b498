package models

// Status is the operational state a generated vehicle is created in.
type Status string

const (
	StatusActive      Status = "active"
	StatusCharging    Status = "charging"
	StatusIdle        Status = "idle"
	StatusMaintenance Status = "maintenance"
)

// UnassignedOperator is the operator name given to vehicles under maintenance.
const UnassignedOperator = "Unassigned"

// Statuses lists every vehicle status in canonical order.
func Statuses() []Status {
	return []Status{StatusActive, StatusCharging, StatusIdle, StatusMaintenance}
}

// IsValidStatus checks if a status is valid
func IsValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusCharging, StatusIdle, StatusMaintenance:
		return true
	default:
		return false
	}
}

// VehicleRecord represents a generated fleet vehicle.
type VehicleRecord struct {
	ID               string   `bson:"_id" json:"id"`
	Status           Status   `bson:"status" json:"status"`
	BatteryLevel     int      `bson:"battery_level" json:"battery_level"` // percent
	Speed            float64  `bson:"speed" json:"speed"`                 // km/h
	HealthScore      int      `bson:"health_score" json:"health_score"`   // percent
	Location         Location `bson:"location" json:"location"`
	AssignedOperator string   `bson:"assigned_operator" json:"assigned_operator"`
}
