package simulator

import (
	"math"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

const (
	kmhPerMps   = 3.6
	kmPerDegLat = 111.32
)

// Step derives the sample at tick from prev. Every quantity is clamped right
// after it is computed, and later quantities use the clamped values.
func Step(p Params, b Baseline, prev models.TelemetrySample, tick int) models.TelemetrySample {
	b = b.normalize(p)
	index := p.PhaseIndex(tick)
	phase := p.PhaseOf(index)
	stepSeconds := p.StepInterval.Seconds()
	stepHours := stepSeconds / 3600

	target := 0.0
	smoothing := p.DecaySmoothing
	if phase == models.PhaseDriving {
		target = b.Speed + p.UtilizationBonus*b.Utilization +
			p.OscillationAmplitude*math.Sin(2*math.Pi*float64(index)/p.OscillationPeriod)
		smoothing = p.DriveSmoothing
	}
	speed := p.SpeedBounds.Clamp(prev.Speed + (target-prev.Speed)*smoothing)

	accel := ((speed - prev.Speed) / kmhPerMps) / stepSeconds

	brake := 0.0
	if accel < p.BrakeThreshold {
		brake = p.BrakeBounds.Clamp(-accel * p.BrakeGain)
	}

	soc := prev.StateOfCharge
	switch phase {
	case models.PhaseCharging:
		soc += p.ChargeRate
	case models.PhaseDriving:
		soc -= p.BaseDrain + p.SpeedDrain*speed
	}
	soc = p.SocBounds.Clamp(soc)

	soh := p.SohBounds.Clamp(prev.StateOfHealth - p.SohDecay)

	offset := p.PowerOffset
	if phase == models.PhaseCharging {
		offset = p.ChargingPowerOffset
	}
	power := p.PowerBounds.Clamp(p.PowerAccelGain*accel + p.PowerSpeedGain*speed + offset)

	moved := speed * stepHours
	distance, duration := prev.TripDistance, prev.TripDuration
	switch {
	case index == 0:
		distance, duration = 0, 0
	case phase == models.PhaseDriving:
		distance += moved
		duration += stepSeconds / 60
	case phase == models.PhaseTransition:
		duration += stepSeconds / 60
	}

	idle := prev.IdleTime
	if speed < p.IdleSpeedThreshold {
		idle += (p.IdleBounds.Max - idle) * p.IdleRiseRate
	} else {
		idle *= 1 - p.IdleDecayRate
	}
	idle = p.IdleBounds.Clamp(idle)

	heading := prev.Heading + moved/p.LoopRadiusKm

	return models.TelemetrySample{
		VehicleID:     prev.VehicleID,
		Timestamp:     prev.Timestamp.Add(p.StepInterval),
		Tick:          tick,
		Phase:         phase,
		StateOfCharge: soc,
		StateOfHealth: soh,
		BatteryPower:  power,
		BrakeStatus:   brake,
		Speed:         speed,
		TripDistance:  distance,
		TripDuration:  duration,
		IdleTime:      idle,
		Heading:       heading,
		Location:      loopPosition(b.Location, p.LoopRadiusKm, heading),
	}
}

// loopPosition places a vehicle on a circle of radiusKm that passes through
// base at heading 0.
func loopPosition(base models.Location, radiusKm, heading float64) models.Location {
	dLat := radiusKm * math.Sin(heading) / kmPerDegLat
	lonScale := kmPerDegLat * math.Cos(base.Lat*math.Pi/180)
	dLon := 0.0
	if lonScale > 1e-9 {
		dLon = radiusKm * (1 - math.Cos(heading)) / lonScale
	}
	return models.Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}
