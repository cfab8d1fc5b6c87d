package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("not connected to MQTT broker")

// MQTTConfig holds the broker settings for the MQTT publisher.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// mqttClient is the subset of mqtt.Client the publisher uses.
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes trip events to an MQTT topic.
type MQTTPublisher struct {
	config MQTTConfig
	client mqttClient
	mu     sync.Mutex
}

// NewMQTTPublisher creates a publisher with a paho client that reconnects on its own.
func NewMQTTPublisher(config MQTTConfig) *MQTTPublisher {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.WithField("broker", config.Broker).Info("Connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).WithField("broker", config.Broker).Warn("Connection to MQTT broker lost")
	})
	return &MQTTPublisher{config: config, client: mqtt.NewClient(opts)}
}

// Connect establishes the broker connection, waiting up to the configured timeout.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.config.Timeout):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection error: %w", err)
	}
	return nil
}

// PublishTripIngested sends the event as JSON to the configured topic.
func (p *MQTTPublisher) PublishTripIngested(ctx context.Context, event TripIngested) error {
	payload, err := encode(event)
	if err != nil {
		return fmt.Errorf("encode trip event: %w", err)
	}

	p.mu.Lock()
	if !p.client.IsConnected() {
		p.mu.Unlock()
		return ErrNotConnected
	}
	token := p.client.Publish(p.config.Topic, p.config.QoS, false, payload)
	p.mu.Unlock()

	// The acknowledgement is awaited without the lock.
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.config.Timeout):
		return fmt.Errorf("publish timeout for topic %s", p.config.Topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
