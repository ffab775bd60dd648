package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ericogr/lightlog/pkg/config"
	"github.com/ericogr/lightlog/pkg/output"
	"github.com/ericogr/lightlog/pkg/record"
)

const (
	// defaults
	DefaultServer     = "tcp://localhost:1883"
	DefaultClientID   = "lightlog"
	DefaultStateTopic = "lightlog/state"
	defaultTimeout    = 5 * time.Second
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	unitPercent            = "%"
	stateClassMeasurement  = "measurement"
	valueTemplateLight     = "{{ value_json.pct_avg }}"
)

// Token is the part of a paho token the output waits on.
type Token interface {
	WaitTimeout(time.Duration) bool
	Error() error
}

// Publisher is the part of a paho client the output uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) Token
	Disconnect(quiesce uint)
}

type MQTTOutput struct {
	client         Publisher
	stateTopic     string
	discoveryTopic string
	timeout        time.Duration
	logger         *zap.Logger
}

type statePayload struct {
	record.Aggregate
	Reading int `json:"reading"`
	Total   int `json:"total"`
}

// NewMQTT connects to the broker. The agent may start without connectivity,
// so an initial connect that does not finish within the timeout is logged
// and paho keeps retrying in the background.
func NewMQTT(cfg config.MQTTConfig, logger *zap.Logger) (output.Output, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = withDefaults(cfg)
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Server).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		logger.Warn("mqtt broker not reachable yet, retrying in background", zap.String("server", cfg.Server))
	} else if token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	return newOutput(pahoClient{client}, cfg, timeout, logger), nil
}

func newOutput(client Publisher, cfg config.MQTTConfig, timeout time.Duration, logger *zap.Logger) *MQTTOutput {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MQTTOutput{client: client, stateTopic: cfg.StateTopic, discoveryTopic: cfg.DiscoveryTopic, timeout: timeout, logger: logger}

	// Publish Home Assistant discovery payload if requested
	if m.discoveryTopic != "" {
		payload := baseDiscoveryPayload(discoveryName(cfg), m.stateTopic, discoveryUniqueID(cfg))
		if err := m.publishJSON(m.discoveryTopic, true, payload); err != nil {
			logger.Warn("mqtt discovery publish error", zap.Error(err))
		}
	}
	return m
}

func (m *MQTTOutput) Publish(a record.Aggregate, p output.Progress) error {
	return m.publishJSON(m.stateTopic, false, statePayload{Aggregate: a, Reading: p.Taken, Total: p.Total})
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

func (m *MQTTOutput) publishJSON(topic string, retained bool, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := m.client.Publish(topic, 0, retained, b)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	return token.Error()
}

func withDefaults(cfg config.MQTTConfig) config.MQTTConfig {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.StateTopic == "" {
		cfg.StateTopic = DefaultStateTopic
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = int(defaultTimeout / time.Millisecond)
	}
	return cfg
}

func discoveryName(cfg config.MQTTConfig) string {
	if cfg.DiscoveryName != "" {
		return cfg.DiscoveryName
	}
	return fmt.Sprintf("Light level %s", cfg.ClientID)
}

func discoveryUniqueID(cfg config.MQTTConfig) string {
	if cfg.DiscoveryUniqueID != "" {
		return cfg.DiscoveryUniqueID
	}
	return cfg.ClientID
}

func baseDiscoveryPayload(name, stateTopic, uniqueID string) map[string]interface{} {
	payload := map[string]interface{}{
		keyName:                name,
		keyStateTopic:          stateTopic,
		keyUnitOfMeasurement:   unitPercent,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       valueTemplateLight,
		keyJSONAttributesTopic: stateTopic,
	}
	if uniqueID != "" {
		payload[keyUniqueID] = uniqueID
	}
	return payload
}

// pahoClient adapts mqtt.Client to Publisher.
type pahoClient struct {
	c mqtt.Client
}

func (p pahoClient) Publish(topic string, qos byte, retained bool, payload interface{}) Token {
	return p.c.Publish(topic, qos, retained, payload)
}

func (p pahoClient) Disconnect(quiesce uint) { p.c.Disconnect(quiesce) }
