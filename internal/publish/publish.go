package publish

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/petems/wavcap/internal/config"
	"github.com/rs/zerolog"
)

// Message is the JSON payload published for a finished recording. The
// WAV bytes travel base64-encoded in the data field.
type Message struct {
	SessionID  string    `json:"session_id"`
	Timestamp  time.Time `json:"timestamp"`
	Format     string    `json:"format"`
	SampleRate int       `json:"sample_rate"`
	Channels   int       `json:"channels"`
	Duration   float64   `json:"duration"`
	SizeBytes  int       `json:"size_bytes"`
	Data       string    `json:"data"`
}

// Publisher sends finished recordings to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	topic  string
	log    zerolog.Logger
}

// generateClientID creates a random MQTT client ID
func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "wavcap_" + hex.EncodeToString(bytes)
}

// New connects to the configured broker. Returns nil without error when
// publishing is disabled.
func New(cfg config.MQTTConfig, log zerolog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "tls"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(generateClientID())

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost, will auto-reconnect")
	})

	client := mqtt.NewClient(opts)

	log.Info().Str("broker", brokerURL).Msg("Connecting to MQTT broker")
	token := client.Connect()
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client: client,
		topic:  cfg.Topic,
		log:    log,
	}, nil
}

// Publish sends one recording message and waits for broker confirmation.
func (p *Publisher) Publish(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal recording message: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("timed out publishing to %s", p.topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, token.Error())
	}

	p.log.Info().
		Str("topic", p.topic).
		Str("session", msg.SessionID).
		Int("bytes", msg.SizeBytes).
		Msg("Recording published")
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
