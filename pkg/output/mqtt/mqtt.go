package mqtt

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/i2c-register-poller/pkg/config"
	"github.com/ericogr/i2c-register-poller/pkg/output"
	"github.com/ericogr/i2c-register-poller/pkg/sensor"
	"github.com/mazen160/go-random"
	"github.com/rs/zerolog/log"
)

const (
	// defaults
	DefaultServer        = "tcp://localhost:1883"
	DefaultClientIDBase  = "i2c-poller"
	defaultStateTopicFmt = "i2c/0x%02x/0x%02x"
	clientIDSuffixLen    = 8
	disconnectQuiesceMs  = 250
	// discovery payload keys/values
	keyName               = "name"
	keyStateTopic         = "state_topic"
	keyStateClass         = "state_class"
	keyValueTemplate      = "value_template"
	keyUniqueID           = "unique_id"
	stateClassMeasurement = "measurement"
	valueTemplateRaw      = "{{ value_json.value }}"
)

type MQTTOutput struct {
	client     mqtt.Client
	stateTopic string
}

func NewMQTT(cfg config.MQTTConfig, i2c config.I2CConfig) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID, err := resolveClientID(cfg.ClientID)
	if err != nil {
		return nil, err
	}
	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID).SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	m := &MQTTOutput{client: client, stateTopic: stateTopic(cfg.Topic, i2c)}
	log.Info().Str("server", server).Str("client_id", clientID).Str("topic", m.stateTopic).Msg("mqtt output connected")

	// Home Assistant discovery is retained so late subscribers still see it
	if cfg.DiscoveryTopic != "" {
		payload := discoveryPayload(cfg, i2c, m.stateTopic, clientID)
		if err := m.publishJSON(cfg.DiscoveryTopic, true, payload); err != nil {
			log.Warn().Err(err).Str("topic", cfg.DiscoveryTopic).Msg("mqtt discovery publish error")
		}
	}

	return m, nil
}

func (m *MQTTOutput) Publish(s sensor.Sample) error {
	return m.publishJSON(m.stateTopic, false, s)
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(disconnectQuiesceMs)
	}
	return nil
}

func (m *MQTTOutput) publishJSON(topic string, retained bool, payload interface{}) error {
	if m.client == nil {
		return fmt.Errorf("mqtt client not connected")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := m.client.Publish(topic, 0, retained, b)
	token.Wait()
	return token.Error()
}

// resolveClientID keeps an explicit id, otherwise appends a random suffix so
// two pollers on one broker do not kick each other off.
func resolveClientID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	suffix, err := random.String(clientIDSuffixLen)
	if err != nil {
		return "", fmt.Errorf("mqtt client id: %w", err)
	}
	return DefaultClientIDBase + "-" + suffix, nil
}

func stateTopic(topic string, i2c config.I2CConfig) string {
	if topic != "" {
		return topic
	}
	return fmt.Sprintf(defaultStateTopicFmt, i2c.Address, i2c.Register)
}

func discoveryPayload(cfg config.MQTTConfig, i2c config.I2CConfig, stateTopic, clientID string) map[string]interface{} {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("I2C 0x%02X reg 0x%02X", i2c.Address, i2c.Register)
	}
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = fmt.Sprintf("%s_%02x_%02x", clientID, i2c.Address, i2c.Register)
	}
	return map[string]interface{}{
		keyName:          name,
		keyStateTopic:    stateTopic,
		keyStateClass:    stateClassMeasurement,
		keyValueTemplate: valueTemplateRaw,
		keyUniqueID:      uid,
	}
}
