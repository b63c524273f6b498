package simulator

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidParams   = errors.New("invalid simulator parameters")
	ErrInvalidBaseline = errors.New("invalid baseline")
	ErrNotSeeded       = errors.New("simulator not seeded")
)

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp constrains v to b.
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Contains reports whether v lies within b.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Params configures the telemetry series simulator. The phase cutoffs and
// smoothing constants are tuning defaults, not physical constants.
type Params struct {
	StepInterval   time.Duration
	WindowSize     int
	CycleLength    int
	DrivingCutoff  int
	ChargingCutoff int

	DriveSmoothing float64
	DecaySmoothing float64

	UtilizationBonus     float64 // km/h added at full utilization
	OscillationAmplitude float64 // km/h
	OscillationPeriod    float64 // ticks

	BrakeThreshold float64 // m/s², braking registers below this
	BrakeGain      float64 // brake percent per m/s² of deceleration

	ChargeRate float64 // SoC percent gained per charging tick
	BaseDrain  float64 // SoC percent lost per driving tick
	SpeedDrain float64 // SoC percent lost per km/h per driving tick
	SohDecay   float64 // SoH percent lost per tick

	PowerAccelGain      float64 // kW per m/s²
	PowerSpeedGain      float64 // kW per km/h
	PowerOffset         float64 // kW
	ChargingPowerOffset float64 // kW, replaces PowerOffset while charging

	IdleSpeedThreshold float64 // km/h
	IdleRiseRate       float64
	IdleDecayRate      float64

	LoopRadiusKm float64

	SpeedBounds Bounds
	SocBounds   Bounds
	SohBounds   Bounds
	PowerBounds Bounds
	BrakeBounds Bounds
	IdleBounds  Bounds
}

// DefaultParams returns the reference simulator configuration.
func DefaultParams() Params {
	return Params{
		StepInterval:   8 * time.Second,
		WindowSize:     60,
		CycleLength:    90,
		DrivingCutoff:  60,
		ChargingCutoff: 75,

		DriveSmoothing: 0.22,
		DecaySmoothing: 0.2,

		UtilizationBonus:     10,
		OscillationAmplitude: 8,
		OscillationPeriod:    20,

		BrakeThreshold: -0.1,
		BrakeGain:      150,

		ChargeRate: 0.8,
		BaseDrain:  0.05,
		SpeedDrain: 0.004,
		SohDecay:   0.001,

		PowerAccelGain:      12,
		PowerSpeedGain:      0.35,
		PowerOffset:         2,
		ChargingPowerOffset: -25,

		IdleSpeedThreshold: 1,
		IdleRiseRate:       0.1,
		IdleDecayRate:      0.15,

		LoopRadiusKm: 1.5,

		SpeedBounds: Bounds{Min: 0, Max: 120},
		SocBounds:   Bounds{Min: 0, Max: 100},
		SohBounds:   Bounds{Min: 70, Max: 100},
		PowerBounds: Bounds{Min: -60, Max: 60},
		BrakeBounds: Bounds{Min: 0, Max: 100},
		IdleBounds:  Bounds{Min: 0, Max: 100},
	}
}

// Validate rejects parameters the simulator cannot run with.
func (p Params) Validate() error {
	if p.StepInterval <= 0 {
		return fmt.Errorf("%w: step interval must be positive, got %s", ErrInvalidParams, p.StepInterval)
	}
	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidParams, p.WindowSize)
	}
	if p.CycleLength <= 0 {
		return fmt.Errorf("%w: cycle length must be positive, got %d", ErrInvalidParams, p.CycleLength)
	}
	if p.DrivingCutoff < 0 || p.DrivingCutoff > p.ChargingCutoff || p.ChargingCutoff > p.CycleLength {
		return fmt.Errorf("%w: cutoffs %d/%d do not fit cycle of %d", ErrInvalidParams, p.DrivingCutoff, p.ChargingCutoff, p.CycleLength)
	}
	for name, v := range map[string]float64{"drive smoothing": p.DriveSmoothing, "decay smoothing": p.DecaySmoothing} {
		if !(v > 0 && v <= 1) {
			return fmt.Errorf("%w: %s must be in (0,1], got %v", ErrInvalidParams, name, v)
		}
	}
	for name, v := range map[string]float64{"idle rise rate": p.IdleRiseRate, "idle decay rate": p.IdleDecayRate} {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidParams, name, v)
		}
	}
	if !(p.OscillationPeriod > 0) {
		return fmt.Errorf("%w: oscillation period must be positive, got %v", ErrInvalidParams, p.OscillationPeriod)
	}
	if !(p.LoopRadiusKm > 0) {
		return fmt.Errorf("%w: loop radius must be positive, got %v", ErrInvalidParams, p.LoopRadiusKm)
	}
	bounds := map[string]Bounds{
		"speed": p.SpeedBounds, "soc": p.SocBounds, "soh": p.SohBounds,
		"power": p.PowerBounds, "brake": p.BrakeBounds, "idle": p.IdleBounds,
	}
	for name, b := range bounds {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min > b.Max {
			return fmt.Errorf("%w: %s bounds [%v,%v] are inverted", ErrInvalidParams, name, b.Min, b.Max)
		}
	}
	scalars := map[string]float64{
		"utilization bonus": p.UtilizationBonus, "oscillation amplitude": p.OscillationAmplitude,
		"brake threshold": p.BrakeThreshold, "brake gain": p.BrakeGain,
		"charge rate": p.ChargeRate, "base drain": p.BaseDrain, "speed drain": p.SpeedDrain,
		"soh decay": p.SohDecay, "power accel gain": p.PowerAccelGain,
		"power speed gain": p.PowerSpeedGain, "power offset": p.PowerOffset,
		"charging power offset": p.ChargingPowerOffset, "idle speed threshold": p.IdleSpeedThreshold,
	}
	for name, v := range scalars {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParams, name)
		}
	}
	if p.SohDecay < 0 {
		return fmt.Errorf("%w: soh decay must not be negative, got %v", ErrInvalidParams, p.SohDecay)
	}
	return nil
}
