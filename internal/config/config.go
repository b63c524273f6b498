// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"github.com/ukydev/fleet-telemetry-sim/internal/population"
	"github.com/ukydev/fleet-telemetry-sim/internal/publish"
	"github.com/ukydev/fleet-telemetry-sim/internal/retry"
	"github.com/ukydev/fleet-telemetry-sim/internal/simulator"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything the CLI needs to generate a fleet and run the
// telemetry simulation.
type Config struct {
	FleetSize int
	Weights   []population.StatusWeight
	Seed      int64
	SeedSet   bool
	VehicleID string

	Params simulator.Params

	Port string

	MongoURI   string
	MongoDB    string
	MongoRetry retry.Settings

	MQTT publish.Config

	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		FleetSize:  50,
		Weights:    population.DefaultWeights(),
		Params:     simulator.DefaultParams(),
		Port:       "8080",
		MongoDB:    "fleet",
		MongoRetry: retry.Settings{MaxRetries: 5, MaxElapsed: retry.DefaultMaxElapsed},
		MQTT: publish.Config{
			ClientID:    "fleet-telemetry-sim",
			TopicPrefix: "fleet",
			QoS:         1,
			Timeout:     5 * time.Second,
			Retry:       retry.Settings{MaxRetries: 5, MaxElapsed: retry.DefaultMaxElapsed},
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads envFile if it exists and then the process environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Unset variables keep their defaults;
// malformed ones are errors.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()
	p := parser{getenv: getenv}

	p.int("FLEET_SIZE", &c.FleetSize)
	if v := getenv("SIM_STATUS_WEIGHTS"); v != "" {
		w, err := ParseWeights(v)
		if err != nil {
			p.fail("SIM_STATUS_WEIGHTS", err)
		}
		c.Weights = w
	}
	if v := getenv("SIM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.fail("SIM_SEED", err)
		}
		c.Seed, c.SeedSet = n, true
	}
	p.str("SIM_VEHICLE_ID", &c.VehicleID)

	tickSeconds := c.Params.StepInterval.Seconds()
	p.float("SIM_TICK_SECONDS", &tickSeconds)
	c.Params.StepInterval = time.Duration(tickSeconds * float64(time.Second))
	p.int("SIM_WINDOW_SIZE", &c.Params.WindowSize)
	p.int("SIM_CYCLE_LENGTH", &c.Params.CycleLength)
	p.int("SIM_DRIVING_CUTOFF", &c.Params.DrivingCutoff)
	p.int("SIM_CHARGING_CUTOFF", &c.Params.ChargingCutoff)

	p.str("PORT", &c.Port)
	p.str("MONGO_URI", &c.MongoURI)
	p.str("MONGO_DB", &c.MongoDB)
	p.retries("MONGO_MAX_RETRIES", &c.MongoRetry.MaxRetries)
	p.retries("MQTT_MAX_RETRIES", &c.MQTT.Retry.MaxRetries)
	if v := getenv("CONNECT_MAX_ELAPSED_SECONDS"); v != "" {
		secs := 0.0
		p.float("CONNECT_MAX_ELAPSED_SECONDS", &secs)
		if p.err == nil && secs <= 0 {
			p.fail("CONNECT_MAX_ELAPSED_SECONDS", fmt.Errorf("must be positive, got %v", secs))
		}
		elapsed := time.Duration(secs * float64(time.Second))
		c.MongoRetry.MaxElapsed = elapsed
		c.MQTT.Retry.MaxElapsed = elapsed
	}

	p.str("MQTT_BROKER", &c.MQTT.Broker)
	p.str("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	p.str("MQTT_USERNAME", &c.MQTT.Username)
	p.str("MQTT_PASSWORD", &c.MQTT.Password)
	p.str("MQTT_TOPIC_PREFIX", &c.MQTT.TopicPrefix)
	qos := int(c.MQTT.QoS)
	p.int("MQTT_QOS", &qos)
	c.MQTT.QoS = byte(qos)

	p.str("LOG_LEVEL", &c.LogLevel)
	p.str("LOG_FORMAT", &c.LogFormat)

	if p.err != nil {
		return Config{}, p.err
	}
	if qos < 0 || qos > 2 {
		return Config{}, fmt.Errorf("%w: MQTT_QOS must be 0, 1 or 2, got %d", ErrInvalidConfig, qos)
	}
	return c, nil
}

// Validate rejects settings the generator or simulator cannot run with.
func (c Config) Validate() error {
	if c.FleetSize <= 0 {
		return fmt.Errorf("%w: FLEET_SIZE must be positive, got %d", ErrInvalidConfig, c.FleetSize)
	}
	if err := population.ValidateWeights(c.Weights); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Port == "" {
		return fmt.Errorf("%w: PORT must not be empty", ErrInvalidConfig)
	}
	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		return fmt.Errorf("%w: MQTT_TOPIC_PREFIX must not be empty", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: LOG_FORMAT must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ConfigureLogging applies the level and format to the standard logrus logger.
func (c Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// ParseWeights parses "active=0.8,charging=0.1,idle=0.07,maintenance=0.03".
// The result is validated so a malformed list never reaches the generator.
func ParseWeights(s string) ([]population.StatusWeight, error) {
	var weights []population.StatusWeight
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: weight %q is not status=value", ErrInvalidConfig, part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: weight for %q: %w", ErrInvalidConfig, name, err)
		}
		weights = append(weights, population.StatusWeight{
			Status: models.Status(strings.ToLower(strings.TrimSpace(name))),
			Weight: w,
		})
	}
	if err := population.ValidateWeights(weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// parser records the first malformed variable it sees.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
}

func (p *parser) str(key string, dst *string) {
	if v := p.getenv(key); v != "" {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	v := p.getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) retries(key string, dst *uint64) {
	v := p.getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) {
	v := p.getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		if err == nil {
			err = fmt.Errorf("non-finite value %q", v)
		}
		p.fail(key, err)
		return
	}
	*dst = f
}
