package config

import (
	"testing"
)

func TestLoadJSONOverlaysDefaults(t *testing.T) {
	js := `{
        "sample_interval_seconds": 60,
        "total_runtime_minutes": 10,
        "sensor_type": "simulation",
        "sensors": [
            {"tag": "east", "pin": 26, "adc_input": 2},
            {"tag": "west", "pin": 27, "adc_input": 3}
        ],
        "network": {"type": "static", "wifi": {"ssid": "lab", "password": "pw", "country": "BR"}},
        "outputs": [{"type": "console"}, {"type": "mqtt", "mqtt": {"server": "tcp://broker:1883", "state_topic": "lightlog/state"}}]
    }`
	p := writeFile(t, "config.json", js)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SampleIntervalSeconds != 60 || cfg.TotalRuntimeMinutes != 10 {
		t.Fatalf("timing: %+v", cfg)
	}
	if cfg.WiFiCheckInterval != 20 {
		t.Fatalf("wifi check interval should keep default, got %d", cfg.WiFiCheckInterval)
	}
	if cfg.SensorType != "simulation" {
		t.Fatalf("sensor_type: got %q", cfg.SensorType)
	}
	if cfg.Sensors[0].Tag != "east" || cfg.Sensors[1].ADCInput != 3 {
		t.Fatalf("sensors: %+v", cfg.Sensors)
	}
	if cfg.Network.Type != "static" || cfg.Network.WiFi.Country != "BR" {
		t.Fatalf("network: %+v", cfg.Network)
	}
	if cfg.Network.NTPServer != "pool.ntp.org" {
		t.Fatalf("ntp server should keep default, got %q", cfg.Network.NTPServer)
	}
	if len(cfg.Outputs) != 2 || cfg.Outputs[1].MQTT == nil || cfg.Outputs[1].MQTT.StateTopic != "lightlog/state" {
		t.Fatalf("outputs: %+v", cfg.Outputs)
	}
}
