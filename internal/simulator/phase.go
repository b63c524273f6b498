package simulator

import "github.com/ukydev/fleet-telemetry-sim/internal/models"

// PhaseIndex returns tick's position within the cycle, always in [0, cycle).
func (p Params) PhaseIndex(tick int) int {
	i := tick % p.CycleLength
	if i < 0 {
		i += p.CycleLength
	}
	return i
}

// PhaseOf maps a cycle position to its driving mode.
func (p Params) PhaseOf(index int) models.Phase {
	switch {
	case index < p.DrivingCutoff:
		return models.PhaseDriving
	case index < p.ChargingCutoff:
		return models.PhaseTransition
	default:
		return models.PhaseCharging
	}
}
