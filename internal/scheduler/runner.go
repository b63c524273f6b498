// Package scheduler drives a telemetry simulator on a fixed wall-clock
// interval and fans each new sample out to the configured sinks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"github.com/ukydev/fleet-telemetry-sim/internal/simulator"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

var (
	ErrTickPanic  = errors.New("tick panicked")
	ErrNotStarted = errors.New("runner not started")
)

const (
	TicksTotal      = metricz.Key("simulator.ticks.total")
	ReseedsTotal    = metricz.Key("simulator.reseeds.total")
	SinkErrorsTotal = metricz.Key("simulator.sink.errors.total")
	PhaseGauge      = metricz.Key("simulator.phase")
	SocGauge        = metricz.Key("simulator.soc")
)

// State describes the runner lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)

// Sink receives every sample the runner produces.
type Sink interface {
	Publish(ctx context.Context, sample models.TelemetrySample) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, sample models.TelemetrySample) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, sample models.TelemetrySample) error {
	return f(ctx, sample)
}

// Snapshot is a consistent view of the runner at one instant. Buffer is
// shared and must be treated as read-only.
type Snapshot struct {
	VehicleID string                   `json:"vehicle_id"`
	State     State                    `json:"state"`
	TickCount int                      `json:"tick_count"`
	Phase     models.Phase             `json:"phase"`
	Buffer    []models.TelemetrySample `json:"buffer"`
}

// Runner owns one simulator and at most one tick loop.
type Runner struct {
	sim     *simulator.Simulator
	clock   clockz.Clock
	sinks   []Sink
	metrics *metricz.Registry

	lifecycle sync.Mutex // serialises Start, Reseed and Stop
	parent    context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	mu       sync.RWMutex
	snapshot Snapshot
	err      error
}

// NewRunner returns an idle runner for sim.
func NewRunner(sim *simulator.Simulator, sinks ...Sink) *Runner {
	metrics := metricz.New()
	metrics.Counter(TicksTotal)
	metrics.Counter(ReseedsTotal)
	metrics.Counter(SinkErrorsTotal)
	metrics.Gauge(PhaseGauge)
	metrics.Gauge(SocGauge)

	return &Runner{
		sim:      sim,
		clock:    clockz.RealClock,
		sinks:    sinks,
		metrics:  metrics,
		snapshot: Snapshot{State: StateIdle},
	}
}

// WithClock sets the clock used for scheduling. Call before Start.
func (r *Runner) WithClock(clock clockz.Clock) *Runner {
	r.clock = clock
	return r
}

// Metrics returns the runner's metrics registry.
func (r *Runner) Metrics() *metricz.Registry {
	return r.metrics
}

// Start seeds the simulator and begins ticking until ctx is cancelled or
// Stop is called. Calling Start on a running runner reseeds it.
func (r *Runner) Start(ctx context.Context, vehicleID string, b simulator.Baseline) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	r.parent = ctx
	return r.restart(vehicleID, b)
}

// Reseed cancels the current schedule, rebuilds the window from b and starts
// a fresh schedule. On error the previous schedule is left stopped.
func (r *Runner) Reseed(vehicleID string, b simulator.Baseline) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.parent == nil {
		return ErrNotStarted
	}
	return r.restart(vehicleID, b)
}

// Stop cancels the schedule and waits for any in-flight tick to finish.
func (r *Runner) Stop() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	r.stopLoop()
	r.markStopped()
}

// Snapshot returns the current window and its metadata.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Err returns the error that stopped the runner, if any.
func (r *Runner) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Done is closed when the current tick loop exits.
func (r *Runner) Done() <-chan struct{} {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}

func (r *Runner) restart(vehicleID string, b simulator.Baseline) error {
	r.stopLoop()

	if err := r.sim.Seed(vehicleID, b, r.clock.Now()); err != nil {
		r.markStopped()
		return fmt.Errorf("failed to seed %s: %w", vehicleID, err)
	}
	r.metrics.Counter(ReseedsTotal).Inc()

	r.mu.Lock()
	r.err = nil
	r.snapshot = Snapshot{
		VehicleID: vehicleID,
		State:     StateRunning,
		TickCount: r.sim.TickCount(),
		Phase:     r.sim.Phase(),
		Buffer:    r.sim.Buffer(),
	}
	r.mu.Unlock()

	log.WithFields(log.Fields{
		"vehicle_id":  vehicleID,
		"window":      len(r.sim.Buffer()),
		"interval":    r.sim.Params().StepInterval,
		"base_speed":  b.Speed,
		"utilization": b.Utilization,
	}).Info("Seeded telemetry window")

	ctx, cancel := context.WithCancel(r.parent)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	go r.loop(ctx, done)
	return nil
}

func (r *Runner) stopLoop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := r.clock.NewTicker(r.sim.Params().StepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.markStopped()
			return
		case <-ticker.C():
		}
		if ctx.Err() != nil {
			r.markStopped()
			return
		}
		if err := r.tick(ctx); err != nil {
			r.mu.Lock()
			r.err = err
			r.snapshot.State = StateFailed
			r.mu.Unlock()
			log.WithError(err).WithField("vehicle_id", r.sim.VehicleID()).Error("Telemetry simulation stopped")
			return
		}
	}
}

func (r *Runner) markStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot.State == StateRunning {
		r.snapshot.State = StateStopped
	}
}

func (r *Runner) tick(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanic, rec)
		}
	}()

	buf, err := r.sim.Tick()
	if err != nil {
		return err
	}
	latest := buf[len(buf)-1]

	r.mu.Lock()
	r.snapshot.Buffer = buf
	r.snapshot.TickCount = r.sim.TickCount()
	r.snapshot.Phase = latest.Phase
	r.mu.Unlock()

	r.metrics.Counter(TicksTotal).Inc()
	r.metrics.Gauge(PhaseGauge).Set(float64(r.sim.Params().PhaseIndex(latest.Tick)))
	r.metrics.Gauge(SocGauge).Set(latest.StateOfCharge)

	log.WithFields(log.Fields{
		"vehicle_id": latest.VehicleID,
		"tick":       latest.Tick,
		"phase":      latest.Phase,
		"speed":      latest.Speed,
		"soc":        latest.StateOfCharge,
	}).Debug("Advanced telemetry window")

	return r.publish(ctx, latest)
}

// publish hands sample to every sink concurrently. All sinks share one
// deadline of a single step interval so a slow sink cannot stretch the
// schedule. A panicking sink is reported as ErrTickPanic.
func (r *Runner) publish(ctx context.Context, sample models.TelemetrySample) error {
	if len(r.sinks) == 0 {
		return nil
	}
	ctx, cancel := r.clock.WithTimeout(ctx, r.sim.Params().StepInterval)
	defer cancel()

	panics := make(chan error, len(r.sinks))
	var wg sync.WaitGroup
	for _, s := range r.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					panics <- fmt.Errorf("%w: %v", ErrTickPanic, rec)
				}
			}()
			if err := s.Publish(ctx, sample); err != nil {
				r.metrics.Counter(SinkErrorsTotal).Inc()
				log.WithError(err).WithField("vehicle_id", sample.VehicleID).Warn("Failed to publish telemetry sample")
			}
		}(s)
	}
	wg.Wait()
	close(panics)
	return <-panics
}
