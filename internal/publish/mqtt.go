// Package publish streams simulated telemetry samples to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-telemetry-sim/internal/models"
	"github.com/ukydev/fleet-telemetry-sim/internal/retry"
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Config holds MQTT connection settings.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Timeout     time.Duration
	Retry       retry.Settings
}

// tokenPublisher is the part of mqtt.Client the publisher needs.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher sends samples to <prefix>/<vehicle_id>/telemetry.
type Publisher struct {
	client  tokenPublisher
	prefix  string
	qos     byte
	timeout time.Duration
}

// Connect dials the broker, retrying with exponential backoff, and returns a
// Publisher together with the underlying client so callers can disconnect it.
func Connect(ctx context.Context, cfg Config) (*Publisher, mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).WithField("broker", cfg.Broker).Warn("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	connect := func() error {
		token := client.Connect()
		if !token.WaitTimeout(cfg.timeout()) {
			return fmt.Errorf("timed out connecting to %s", cfg.Broker)
		}
		return token.Error()
	}
	onError := func(err error, next time.Duration) {
		log.WithError(err).WithField("retry_in", next).Warn("MQTT broker not reachable")
	}
	if err := retry.Do(ctx, cfg.Retry, connect, onError); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.WithFields(log.Fields{
		"broker":    cfg.Broker,
		"client_id": cfg.ClientID,
		"prefix":    cfg.TopicPrefix,
	}).Info("Connected to MQTT broker")
	return NewPublisher(client, cfg), client, nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(client tokenPublisher, cfg Config) *Publisher {
	return &Publisher{
		client:  client,
		prefix:  strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:     cfg.QoS,
		timeout: cfg.timeout(),
	}
}

// Topic returns the topic samples for vehicleID are published on.
func (p *Publisher) Topic(vehicleID string) string {
	if p.prefix == "" {
		return vehicleID + "/telemetry"
	}
	return p.prefix + "/" + vehicleID + "/telemetry"
}

// Publish encodes sample as JSON and waits for the broker to accept it.
func (p *Publisher) Publish(ctx context.Context, sample models.TelemetrySample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	topic := p.Topic(sample.VehicleID)
	token := p.client.Publish(topic, p.qos, false, data)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.Timeout
}
