package simulator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

func cruising(speed float64) models.TelemetrySample {
	return models.TelemetrySample{
		Timestamp:     seedTime,
		StateOfCharge: 50,
		StateOfHealth: 90,
		Speed:         speed,
		TripDistance:  3,
		TripDuration:  10,
		IdleTime:      40,
	}
}

func TestPhaseIndex(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		tick int
		want int
	}{
		{0, 0}, {59, 59}, {90, 0}, {181, 1}, {-1, 89}, {-59, 31}, {-90, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.PhaseIndex(tt.tick), "tick %d", tt.tick)
	}
}

func TestPhaseOf(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, models.PhaseDriving, p.PhaseOf(0))
	assert.Equal(t, models.PhaseDriving, p.PhaseOf(59))
	assert.Equal(t, models.PhaseTransition, p.PhaseOf(60))
	assert.Equal(t, models.PhaseTransition, p.PhaseOf(74))
	assert.Equal(t, models.PhaseCharging, p.PhaseOf(75))
	assert.Equal(t, models.PhaseCharging, p.PhaseOf(89))
}

func TestStep_DrivingPullsTowardTarget(t *testing.T) {
	p := DefaultParams()
	b := referenceBaseline()
	// index 5: sin(2π·5/20) = 1, so target = 30 + 8 + 8 = 46
	s := Step(p, b, cruising(30), 5)

	assert.Equal(t, models.PhaseDriving, s.Phase)
	assert.InDelta(t, 30+(46-30)*0.22, s.Speed, 1e-9)
	assert.Equal(t, 0.0, s.BrakeStatus)

	accel := ((s.Speed - 30) / 3.6) / 8
	assert.InDelta(t, 12*accel+0.35*s.Speed+2, s.BatteryPower, 1e-9)
	assert.InDelta(t, 50-(0.05+0.004*s.Speed), s.StateOfCharge, 1e-9)
	assert.InDelta(t, 3+s.Speed*8/3600, s.TripDistance, 1e-12)
	assert.InDelta(t, 10+8.0/60, s.TripDuration, 1e-12)
	assert.InDelta(t, 40*(1-0.15), s.IdleTime, 1e-9)
	assert.Equal(t, seedTime.Add(8*time.Second), s.Timestamp)
	assert.Equal(t, 5, s.Tick)
}

func TestStep_TransitionBrakesAndKeepsCharge(t *testing.T) {
	p := DefaultParams()
	s := Step(p, referenceBaseline(), cruising(60), 60)

	assert.Equal(t, models.PhaseTransition, s.Phase)
	assert.InDelta(t, 48, s.Speed, 1e-9)
	accel := ((48.0 - 60) / 3.6) / 8
	assert.Less(t, accel, p.BrakeThreshold)
	assert.InDelta(t, -accel*150, s.BrakeStatus, 1e-9)
	assert.Equal(t, 50.0, s.StateOfCharge)
	assert.Equal(t, 3.0, s.TripDistance)
	assert.InDelta(t, 10+8.0/60, s.TripDuration, 1e-12)
}

func TestStep_GentleDecelerationDoesNotBrake(t *testing.T) {
	p := DefaultParams()
	// 2 km/h toward zero is -0.5 km/h per tick, well above the threshold
	s := Step(p, referenceBaseline(), cruising(2), 70)
	assert.Equal(t, 0.0, s.BrakeStatus)
}

func TestStep_ChargingRaisesSoCWithNegativePower(t *testing.T) {
	p := DefaultParams()
	prev := cruising(0)
	s := Step(p, referenceBaseline(), prev, 80)

	assert.Equal(t, models.PhaseCharging, s.Phase)
	assert.Equal(t, 0.0, s.Speed)
	assert.InDelta(t, 50.8, s.StateOfCharge, 1e-9)
	assert.InDelta(t, -25, s.BatteryPower, 1e-9)
	assert.Equal(t, prev.TripDistance, s.TripDistance)
	assert.Equal(t, prev.TripDuration, s.TripDuration)
	assert.InDelta(t, 40+(100-40)*0.1, s.IdleTime, 1e-9)
}

func TestStep_ResetAtCycleStart(t *testing.T) {
	p := DefaultParams()
	s := Step(p, referenceBaseline(), cruising(20), 180)
	assert.Equal(t, 0.0, s.TripDistance)
	assert.Equal(t, 0.0, s.TripDuration)
	assert.Greater(t, s.Speed, 0.0)
}

func TestStep_ClampsInOrder(t *testing.T) {
	p := DefaultParams()
	prev := models.TelemetrySample{StateOfCharge: 99.9, StateOfHealth: 70, Speed: 0}
	s := Step(p, referenceBaseline(), prev, 80)
	assert.Equal(t, 100.0, s.StateOfCharge)
	assert.Equal(t, 70.0, s.StateOfHealth)

	prev = models.TelemetrySample{StateOfCharge: 0.01, StateOfHealth: 95, Speed: 119}
	b := Baseline{Speed: 500, Utilization: 1, SocStart: 1, SohStart: 95}
	s = Step(p, b, prev, 5)
	assert.Equal(t, 120.0, s.Speed)
	assert.Equal(t, 0.0, s.StateOfCharge)
	assert.LessOrEqual(t, s.BatteryPower, 60.0)
}

func TestStep_LocationFollowsLoop(t *testing.T) {
	p := DefaultParams()
	b := referenceBaseline()
	s := Step(p, b, cruising(40), 10)

	assert.Greater(t, s.Heading, 0.0)
	assert.NotEqual(t, b.Location, s.Location)

	// a full turn returns to the base location
	full := loopPosition(b.Location, p.LoopRadiusKm, 2*math.Pi)
	assert.InDelta(t, b.Location.Lat, full.Lat, 1e-9)
	assert.InDelta(t, b.Location.Lon, full.Lon, 1e-9)
}

func TestBaselineFor(t *testing.T) {
	active := models.VehicleRecord{Status: models.StatusActive, Speed: 55, BatteryLevel: 80, HealthScore: 92}
	b := BaselineFor(active)
	assert.Equal(t, 55.0, b.Speed)
	assert.Equal(t, 0.8, b.Utilization)
	assert.Equal(t, 80.0, b.SocStart)
	assert.Equal(t, 92.0, b.SohStart)

	parked := models.VehicleRecord{Status: models.StatusMaintenance, BatteryLevel: 15, HealthScore: 65}
	b = BaselineFor(parked)
	assert.Equal(t, 30.0, b.Speed)
	assert.Equal(t, 0.3, b.Utilization)
	assert.Equal(t, 65.0, b.SohStart)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero step interval", func(p *Params) { p.StepInterval = 0 }},
		{"negative window", func(p *Params) { p.WindowSize = -1 }},
		{"zero cycle", func(p *Params) { p.CycleLength = 0 }},
		{"charging before driving", func(p *Params) { p.ChargingCutoff = 40 }},
		{"cutoff past cycle", func(p *Params) { p.ChargingCutoff = 91 }},
		{"zero smoothing", func(p *Params) { p.DriveSmoothing = 0 }},
		{"smoothing above one", func(p *Params) { p.DecaySmoothing = 1.5 }},
		{"inverted soc bounds", func(p *Params) { p.SocBounds = Bounds{Min: 100, Max: 0} }},
		{"zero oscillation period", func(p *Params) { p.OscillationPeriod = 0 }},
		{"NaN gain", func(p *Params) { p.BrakeGain = math.NaN() }},
		{"negative soh decay", func(p *Params) { p.SohDecay = -0.1 }},
		{"idle rate above one", func(p *Params) { p.IdleRiseRate = 2 }},
	}
	assert.NoError(t, DefaultParams().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
}
