package simulator

import (
	"time"

	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

// Seed builds a full window of WindowSize samples ending at now. The newest
// sample sits at tick 0, so it opens a new cycle with zeroed trip metrics;
// older samples carry negative ticks and are derived forward from the
// baseline state. Seed draws no randomness.
func Seed(p Params, b Baseline, now time.Time) ([]models.TelemetrySample, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b = b.normalize(p)

	n := p.WindowSize
	first := -(n - 1)
	buf := make([]models.TelemetrySample, n)
	buf[0] = initialSample(p, b, first, now.Add(-time.Duration(n-1)*p.StepInterval))
	for i := 1; i < n; i++ {
		buf[i] = Step(p, b, buf[i-1], first+i)
	}
	return buf, nil
}

func initialSample(p Params, b Baseline, tick int, ts time.Time) models.TelemetrySample {
	phase := p.PhaseOf(p.PhaseIndex(tick))
	offset := p.PowerOffset
	if phase == models.PhaseCharging {
		offset = p.ChargingPowerOffset
	}
	return models.TelemetrySample{
		Timestamp:     ts,
		Tick:          tick,
		Phase:         phase,
		StateOfCharge: b.SocStart,
		StateOfHealth: b.SohStart,
		BatteryPower:  p.PowerBounds.Clamp(p.PowerSpeedGain*b.Speed + offset),
		Speed:         b.Speed,
		Location:      b.Location,
	}
}

// Tick returns a new window one step later than buf: the oldest sample is
// dropped and the sample for tick is appended. buf is not modified.
func Tick(p Params, b Baseline, buf []models.TelemetrySample, tick int) []models.TelemetrySample {
	if len(buf) == 0 {
		return []models.TelemetrySample{}
	}
	next := make([]models.TelemetrySample, len(buf))
	copy(next, buf[1:])
	next[len(next)-1] = Step(p, b, buf[len(buf)-1], tick)
	return next
}
