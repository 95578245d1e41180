package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultI2CBus selects the first bus registered with periph (/dev/i2c-1 on a Pi).
	DefaultI2CBus     = ""
	DefaultI2CAddress = 0x08
	DefaultRegister   = 0x00
	DefaultIntervalMs = 1000

	SensorTypeReal       = "real"
	SensorTypeSimulation = "simulation"

	OutputConsole = "console"
	OutputMQTT    = "mqtt"
)

type MQTTConfig struct {
	Server            string `json:"server"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"client_id"`
	Topic             string `json:"topic"`
	DiscoveryTopic    string `json:"discovery_topic,omitempty"`
	DiscoveryName     string `json:"discovery_name,omitempty"`
	DiscoveryUniqueID string `json:"discovery_unique_id,omitempty"`
}

type OutputConfig struct {
	Type string      `json:"type"`
	MQTT *MQTTConfig `json:"mqtt,omitempty"`
}

type I2CConfig struct {
	Bus      string `json:"bus"`
	Address  int    `json:"address"`
	Register int    `json:"register"`
}

type Config struct {
	I2C        I2CConfig      `json:"i2c"`
	IntervalMs int            `json:"interval_ms"`
	SensorType string         `json:"sensor_type"`
	Outputs    []OutputConfig `json:"outputs"`
	LogLevel   string         `json:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		I2C: I2CConfig{
			Bus:      DefaultI2CBus,
			Address:  DefaultI2CAddress,
			Register: DefaultRegister,
		},
		IntervalMs: DefaultIntervalMs,
		SensorType: SensorTypeReal,
		Outputs:    []OutputConfig{{Type: OutputConsole}},
		LogLevel:   "info",
	}
}

// Interval is the pause between the end of one read and the start of the next.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Validate reports the first setting that cannot be used to start polling.
func (c Config) Validate() error {
	if c.I2C.Address < 0x03 || c.I2C.Address > 0x77 {
		return fmt.Errorf("i2c address 0x%02X out of range [0x03,0x77]", c.I2C.Address)
	}
	if c.I2C.Register < 0 || c.I2C.Register > 0xFF {
		return fmt.Errorf("register %d out of range [0,255]", c.I2C.Register)
	}
	if c.IntervalMs <= 0 {
		return errors.New("interval-ms must be > 0")
	}
	switch c.SensorType {
	case SensorTypeReal, SensorTypeSimulation:
	default:
		return fmt.Errorf("unknown sensor type %q", c.SensorType)
	}
	if len(c.Outputs) == 0 {
		return errors.New("at least one output is required")
	}
	for _, o := range c.Outputs {
		switch strings.ToLower(o.Type) {
		case OutputConsole:
		case OutputMQTT:
			if o.MQTT == nil || o.MQTT.Server == "" {
				return errors.New("mqtt output requires a server")
			}
		default:
			return fmt.Errorf("unknown output type %q", o.Type)
		}
	}
	return nil
}

// LoadFromFlags loads configuration from a JSON file (optional) and command
// line flags. Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadFromFlags over an explicit argument list.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("i2c-register-poller", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagI2CBus := fs.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1); empty selects the first bus")
	flagI2CAddStr := fs.String("i2c-address", "", "I2C address (decimal or 0x hex)")
	flagRegister := fs.String("register", "", "Register to poll (decimal or 0x hex)")
	flagInterval := fs.Int("interval-ms", -1, "Delay between reads in ms")
	flagSensorType := fs.String("sensor-type", "", "sensor type: real|simulation")
	flagOutputs := fs.String("outputs", "", "Comma-separated outputs (console,mqtt)")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := fs.String("mqtt-topic", "", "MQTT state topic")
	flagLogLevel := fs.String("log-level", "", "Log level (debug,info,warn,error)")

	cfg := DefaultConfig()
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagI2CBus != "" {
		cfg.I2C.Bus = *flagI2CBus
	}
	if *flagI2CAddStr != "" {
		v, err := parseIntOrHex(*flagI2CAddStr)
		if err != nil {
			return cfg, fmt.Errorf("i2c-address: %w", err)
		}
		cfg.I2C.Address = v
	}
	if *flagRegister != "" {
		v, err := parseIntOrHex(*flagRegister)
		if err != nil {
			return cfg, fmt.Errorf("register: %w", err)
		}
		cfg.I2C.Register = v
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: strings.ToLower(p)})
		}
		cfg.Outputs = outs
	}
	// mqtt flags apply to every mqtt output; one is created if none exist
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" {
		applied := false
		apply := func(m *MQTTConfig) {
			if *flagMQTTServer != "" {
				m.Server = *flagMQTTServer
			}
			if *flagMQTTUser != "" {
				m.Username = *flagMQTTUser
			}
			if *flagMQTTPass != "" {
				m.Password = *flagMQTTPass
			}
			if *flagClientID != "" {
				m.ClientID = *flagClientID
			}
			if *flagTopic != "" {
				m.Topic = *flagTopic
			}
		}
		for i := range cfg.Outputs {
			if strings.ToLower(cfg.Outputs[i].Type) == OutputMQTT {
				if cfg.Outputs[i].MQTT == nil {
					cfg.Outputs[i].MQTT = &MQTTConfig{}
				}
				apply(cfg.Outputs[i].MQTT)
				applied = true
			}
		}
		if !applied {
			mqttOut := OutputConfig{Type: OutputMQTT, MQTT: &MQTTConfig{}}
			apply(mqttOut.MQTT)
			cfg.Outputs = append(cfg.Outputs, mqttOut)
		}
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseIntOrHex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	return strconv.Atoi(s)
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
