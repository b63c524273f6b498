package population

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
)

// scriptedSource replays a fixed sequence of draws.
type scriptedSource struct {
	draws []float64
	pos   int
}

func (s *scriptedSource) Float64() float64 {
	v := s.draws[s.pos%len(s.draws)]
	s.pos++
	return v
}

func TestGenerate_AlwaysActive(t *testing.T) {
	weights := []StatusWeight{
		{Status: models.StatusActive, Weight: 1.0},
		{Status: models.StatusCharging, Weight: 0},
		{Status: models.StatusIdle, Weight: 0},
		{Status: models.StatusMaintenance, Weight: 0},
	}
	records, err := Generate(3, weights, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, models.StatusActive, r.Status)
		assert.Greater(t, r.Speed, 0.0)
	}
	assert.Equal(t, "VH00001", records[0].ID)
	assert.Equal(t, "VH00003", records[2].ID)
}

func TestGenerate_NonPositiveCount(t *testing.T) {
	for _, count := range []int{0, -1, -100} {
		records, err := Generate(count, DefaultWeights(), rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	}
}

func TestGenerate_WeightConvergence(t *testing.T) {
	const count = 100000
	records, err := Generate(count, DefaultWeights(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	summary := Summarize(records)
	assert.Equal(t, count, summary.Total)
	for _, w := range DefaultWeights() {
		assert.InDelta(t, w.Weight, summary.Fractions[w.Status], 0.03, "status %s", w.Status)
	}
}

func TestGenerate_RangeInvariants(t *testing.T) {
	cfg := DefaultConfig()
	records, err := Generate(20000, DefaultWeights(), rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	for _, r := range records {
		assert.GreaterOrEqual(t, r.BatteryLevel, 0)
		assert.LessOrEqual(t, r.BatteryLevel, 100)

		band := cfg.Battery[r.Status]
		assert.GreaterOrEqual(t, r.BatteryLevel, band.Min, r.ID)
		assert.LessOrEqual(t, r.BatteryLevel, band.Max, r.ID)

		if r.Status != models.StatusActive {
			assert.Equal(t, 0.0, r.Speed, r.ID)
		} else {
			assert.GreaterOrEqual(t, r.Speed, cfg.ActiveSpeed.Min)
			assert.Less(t, r.Speed, cfg.ActiveSpeed.Max)
		}

		health := cfg.Health
		if r.Status == models.StatusMaintenance {
			health = cfg.HealthService
			assert.Equal(t, models.UnassignedOperator, r.AssignedOperator)
		} else {
			assert.Contains(t, cfg.DriverPool, r.AssignedOperator)
		}
		assert.GreaterOrEqual(t, r.HealthScore, health.Min, r.ID)
		assert.LessOrEqual(t, r.HealthScore, health.Max, r.ID)

		assert.LessOrEqual(t, math.Abs(r.Location.Lat-cfg.BaseLocation.Lat), cfg.Jitter)
		assert.LessOrEqual(t, math.Abs(r.Location.Lon-cfg.BaseLocation.Lon), cfg.Jitter)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(500, DefaultWeights(), rand.New(rand.NewSource(1234)))
	require.NoError(t, err)
	b, err := Generate(500, DefaultWeights(), rand.New(rand.NewSource(1234)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_OperatorCycle(t *testing.T) {
	weights := []StatusWeight{{Status: models.StatusActive, Weight: 1}}
	g, err := NewGenerator(DefaultConfig(), weights)
	require.NoError(t, err)

	pool := DefaultConfig().DriverPool
	records := g.Generate(len(pool)+2, rand.New(rand.NewSource(3)))
	for i, r := range records {
		assert.Equal(t, pool[(i+1)%len(pool)], r.AssignedOperator)
	}
}

func TestGenerate_DrawOrder(t *testing.T) {
	// status, battery, speed, health, lat, lon
	src := &scriptedSource{draws: []float64{0.5, 0.0, 0.5, 0.999999, 0.5, 0.5}}
	g, err := NewGenerator(DefaultConfig(), DefaultWeights())
	require.NoError(t, err)

	records := g.Generate(1, src)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, models.StatusActive, r.Status)
	assert.Equal(t, 60, r.BatteryLevel)
	assert.InDelta(t, 50.0, r.Speed, 1e-9)
	assert.Equal(t, 100, r.HealthScore)
	assert.InDelta(t, 28.6139, r.Location.Lat, 1e-9)
	assert.InDelta(t, 77.2090, r.Location.Lon, 1e-9)
	assert.Equal(t, 6, src.pos)
}

func TestGenerate_MaintenanceSkipsSpeedDraw(t *testing.T) {
	// status, battery, health, lat, lon
	src := &scriptedSource{draws: []float64{0.99, 0.5, 0.5, 0.5, 0.5}}
	g, err := NewGenerator(DefaultConfig(), DefaultWeights())
	require.NoError(t, err)

	r := g.Generate(1, src)[0]
	assert.Equal(t, models.StatusMaintenance, r.Status)
	assert.Equal(t, 0.0, r.Speed)
	assert.Equal(t, 20, r.BatteryLevel)
	assert.Equal(t, 70, r.HealthScore)
	assert.Equal(t, 5, src.pos)
}

func TestPickStatus(t *testing.T) {
	weights := DefaultWeights()
	tests := []struct {
		name string
		r    float64
		want models.Status
	}{
		{"lowest draw", 0, models.StatusActive},
		{"just below active cutoff", 0.7999, models.StatusActive},
		{"at active cutoff", 0.80, models.StatusCharging},
		{"idle band", 0.95, models.StatusIdle},
		{"maintenance band", 0.985, models.StatusMaintenance},
		{"rounding overflow", 1.0, models.StatusMaintenance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickStatus(weights, tt.r))
		})
	}
}

func TestPickStatus_OverflowSkipsZeroWeightTail(t *testing.T) {
	weights := []StatusWeight{
		{Status: models.StatusActive, Weight: 0.5},
		{Status: models.StatusIdle, Weight: 0.5},
		{Status: models.StatusMaintenance, Weight: 0},
	}
	assert.Equal(t, models.StatusIdle, pickStatus(weights, 1.0))
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights []StatusWeight
		wantErr bool
	}{
		{"default weights", DefaultWeights(), false},
		{"single status", []StatusWeight{{models.StatusIdle, 1}}, false},
		{"empty", nil, true},
		{"sum below one", []StatusWeight{{models.StatusActive, 0.5}, {models.StatusIdle, 0.4}}, true},
		{"sum above one", []StatusWeight{{models.StatusActive, 0.9}, {models.StatusIdle, 0.2}}, true},
		{"negative weight", []StatusWeight{{models.StatusActive, 1.1}, {models.StatusIdle, -0.1}}, true},
		{"NaN weight", []StatusWeight{{models.StatusActive, math.NaN()}}, true},
		{"unknown status", []StatusWeight{{"parked", 1}}, true},
		{"duplicate status", []StatusWeight{{models.StatusActive, 0.5}, {models.StatusActive, 0.5}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.weights)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeights)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerate_InvalidWeightsFailFast(t *testing.T) {
	records, err := Generate(10, []StatusWeight{{models.StatusActive, 0.7}}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInvalidWeights)
	assert.Nil(t, records)
}

func TestGeneratorConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	broken := DefaultConfig()
	broken.DriverPool = nil
	assert.ErrorIs(t, broken.Validate(), ErrInvalidConfig)

	broken = DefaultConfig()
	delete(broken.Battery, models.StatusIdle)
	assert.ErrorIs(t, broken.Validate(), ErrInvalidConfig)

	broken = DefaultConfig()
	broken.ActiveSpeed = SpeedRange{Min: 0, Max: 50}
	assert.ErrorIs(t, broken.Validate(), ErrInvalidConfig)

	for _, r := range []Range{{Min: 90, Max: 120}, {Min: -5, Max: 40}, {Min: 80, Max: 70}} {
		broken = DefaultConfig()
		broken.Health = r
		assert.ErrorIs(t, broken.Validate(), ErrInvalidConfig, "health %v", r)

		broken = DefaultConfig()
		broken.HealthService = r
		assert.ErrorIs(t, broken.Validate(), ErrInvalidConfig, "service health %v", r)
	}
}

func TestIntIn(t *testing.T) {
	r := Range{Min: 10, Max: 30}
	assert.Equal(t, 10, intIn(r, 0))
	assert.Equal(t, 30, intIn(r, 0.9999999))
	assert.Equal(t, 30, intIn(r, 1.0))
	assert.Equal(t, 20, intIn(r, 0.5))
}
