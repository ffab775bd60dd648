package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type SensorConfig struct {
	Tag      string `json:"tag"`
	Pin      int    `json:"pin"`
	ADCInput int    `json:"adc_input"`
}

type ADS1115Config struct {
	I2CBus     string `json:"i2c_bus"`
	I2CAddress int    `json:"i2c_address"`
	SampleRate int    `json:"sample_rate"`
}

type StatusConfig struct {
	Type         string `json:"type"`
	Pin          string `json:"pin"`
	OnDurationMs int    `json:"on_duration_ms"`
}

// WiFiConfig carries the network credentials. They are usually supplied by
// the environment rather than checked into the config file.
type WiFiConfig struct {
	SSID     string `json:"ssid" env:"WIFI_SSID"`
	Password string `json:"password" env:"WIFI_PASSWORD"`
	Country  string `json:"country" env:"WIFI_COUNTRY"`
}

type NetworkConfig struct {
	Type         string     `json:"type"`
	Interface    string     `json:"interface"`
	NTPServer    string     `json:"ntp_server"`
	NTPTimeoutMs int        `json:"ntp_timeout_ms"`
	WiFi         WiFiConfig `json:"wifi"`
}

type MQTTConfig struct {
	Server            string `json:"server"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientID          string `json:"client_id"`
	StateTopic        string `json:"state_topic"`
	DiscoveryTopic    string `json:"discovery_topic,omitempty"`
	DiscoveryName     string `json:"discovery_name,omitempty"`
	DiscoveryUniqueID string `json:"discovery_unique_id,omitempty"`
	TimeoutMs         int    `json:"timeout_ms,omitempty"`
}

type OutputConfig struct {
	Type string      `json:"type"`
	MQTT *MQTTConfig `json:"mqtt,omitempty"`
}

type Config struct {
	SampleIntervalSeconds int            `json:"sample_interval_seconds"`
	TotalRuntimeMinutes   int            `json:"total_runtime_minutes"`
	LEDWriteDelaySeconds  float64        `json:"led_write_delay_seconds"`
	WiFiCheckInterval     int            `json:"wifi_check_interval"`
	LogFile               string         `json:"log_file"`
	SensorType            string         `json:"sensor_type"`
	Sensors               []SensorConfig `json:"sensors"`
	ADS1115               ADS1115Config  `json:"ads1115"`
	Status                StatusConfig   `json:"status"`
	Network               NetworkConfig  `json:"network"`
	Outputs               []OutputConfig `json:"outputs"`
	Logging               LoggingConfig  `json:"logging"`
}

func DefaultConfig() Config {
	return Config{
		SampleIntervalSeconds: 300,
		TotalRuntimeMinutes:   840,
		LEDWriteDelaySeconds:  1,
		WiFiCheckInterval:     20,
		LogFile:               "light_readings.csv",
		SensorType:            "real",
		Sensors: []SensorConfig{
			{Tag: "s1", Pin: 26, ADCInput: 0},
			{Tag: "s2", Pin: 27, ADCInput: 1},
		},
		ADS1115: ADS1115Config{
			I2CBus:     "1",
			I2CAddress: 0x48,
			SampleRate: 128,
		},
		Status: StatusConfig{
			Type:         "gpio",
			Pin:          "GPIO17",
			OnDurationMs: 100,
		},
		Network: NetworkConfig{
			Type:         "networkmanager",
			Interface:    "wlan0",
			NTPServer:    "pool.ntp.org",
			NTPTimeoutMs: 5000,
		},
		Outputs: []OutputConfig{{Type: "console"}},
		Logging: LoggingConfig{Format: "console", Level: "info"},
	}
}

// SampleInterval is the nominal period of one cycle.
func (c Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

func (c Config) LEDWriteDelay() time.Duration {
	return time.Duration(c.LEDWriteDelaySeconds * float64(time.Second))
}

// LoadFromFlags reads the optional -config flag and loads the configuration.
func LoadFromFlags() (Config, error) {
	cfgPath := flag.String("config", "", "Path to JSON config file")
	flag.Parse()
	return Load(*cfgPath)
}

// Load overlays the file at path (if any) and the WiFi environment on top of
// the defaults, then validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and lower-cases the backend selectors.
func (c *Config) Validate() error {
	c.SensorType = strings.ToLower(c.SensorType)
	c.Status.Type = strings.ToLower(c.Status.Type)
	c.Network.Type = strings.ToLower(c.Network.Type)
	for i := range c.Outputs {
		c.Outputs[i].Type = strings.ToLower(c.Outputs[i].Type)
	}

	if c.SampleIntervalSeconds <= 0 {
		return errors.New("sample_interval_seconds must be > 0")
	}
	if c.TotalRuntimeMinutes < 0 {
		return errors.New("total_runtime_minutes must be >= 0")
	}
	if c.LEDWriteDelaySeconds < 0 {
		return errors.New("led_write_delay_seconds must be >= 0")
	}
	if c.WiFiCheckInterval <= 0 {
		return errors.New("wifi_check_interval must be > 0")
	}
	if c.LogFile == "" {
		return errors.New("log_file must be set")
	}
	if len(c.Sensors) != 2 {
		return fmt.Errorf("exactly two sensors are required, got %d", len(c.Sensors))
	}
	for i, s := range c.Sensors {
		if s.Tag == "" {
			return fmt.Errorf("sensor %d: tag must be set", i)
		}
		if s.ADCInput < 0 || s.ADCInput > 3 {
			return fmt.Errorf("sensor %s: adc_input must be 0-3, got %d", s.Tag, s.ADCInput)
		}
	}
	if err := oneOf("sensor_type", c.SensorType, "real", "simulation"); err != nil {
		return err
	}
	if c.ADS1115.SampleRate <= 0 {
		return errors.New("ads1115.sample_rate must be > 0")
	}
	if err := oneOf("status.type", c.Status.Type, "gpio", "log"); err != nil {
		return err
	}
	if err := oneOf("network.type", c.Network.Type, "networkmanager", "static"); err != nil {
		return err
	}
	for i, o := range c.Outputs {
		if err := oneOf(fmt.Sprintf("outputs[%d].type", i), o.Type, "console", "mqtt"); err != nil {
			return err
		}
	}
	return ValidateLogging(&c.Logging)
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got '%s'", name, strings.Join(allowed, "|"), value)
}
