package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ericogr/lightlog/pkg/config"
	"github.com/ericogr/lightlog/pkg/network"
	"github.com/ericogr/lightlog/pkg/output"
	"github.com/ericogr/lightlog/pkg/output/console"
	"github.com/ericogr/lightlog/pkg/output/csvlog"
	"github.com/ericogr/lightlog/pkg/output/mqtt"
	"github.com/ericogr/lightlog/pkg/scheduler"
	"github.com/ericogr/lightlog/pkg/sensor"
	"github.com/ericogr/lightlog/pkg/status"
)

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("startup failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	readers, closeSensors, err := initSensors(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSensors()

	pin, err := initStatusPin(cfg, logger)
	if err != nil {
		return err
	}
	signal := status.NewSignal(pin, time.Duration(cfg.Status.OnDurationMs)*time.Millisecond, logger.Named("status"))

	clock := network.NewNTPClock(cfg.Network.NTPServer, time.Duration(cfg.Network.NTPTimeoutMs)*time.Millisecond)
	supervisor := network.NewSupervisor(
		initLink(cfg, logger),
		clock,
		network.Credentials{
			SSID:     cfg.Network.WiFi.SSID,
			Password: cfg.Network.WiFi.Password,
			Country:  cfg.Network.WiFi.Country,
		},
		signal,
		logger.Named("network"),
	)

	outputs, err := initOutputs(&cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, o := range outputs {
			_ = o.Close()
		}
	}()

	csvLog, err := csvlog.Create(cfg.LogFile)
	if err != nil {
		return err
	}
	defer csvLog.Close()

	total := scheduler.TotalReadings(cfg.TotalRuntimeMinutes, cfg.SampleIntervalSeconds)
	logger.Info("configured",
		zap.String("log_file", cfg.LogFile),
		zap.Int("runtime_minutes", cfg.TotalRuntimeMinutes),
		zap.Int("interval_seconds", cfg.SampleIntervalSeconds),
		zap.Int("total_readings", total),
	)

	s := scheduler.New(scheduler.Options{
		SampleInterval:    cfg.SampleInterval(),
		LEDWriteDelay:     cfg.LEDWriteDelay(),
		WiFiCheckInterval: cfg.WiFiCheckInterval,
		TotalReadings:     total,
		Sensors:           readers,
		Writer:            csvLog,
		Outputs:           outputs,
		Supervisor:        supervisor,
		Signal:            signal,
		Clock:             clock,
		Logger:            logger.Named("scheduler"),
	})
	s.Run()
	return nil
}

// initSensors builds one reader per configured sensor over the selected ADC
// backend. The returned func releases the backend.
func initSensors(cfg config.Config, logger *zap.Logger) ([2]scheduler.ChannelReader, func(), error) {
	var readers [2]scheduler.ChannelReader
	noop := func() {}

	switch cfg.SensorType {
	case "simulation":
		for i, sc := range cfg.Sensors[:2] {
			r := sensor.NewReader(sc.Tag, sc.Pin, sensor.NewFakeSource(time.Now().UnixNano()+int64(i)))
			logSensor(logger, r, cfg.SensorType, sc.ADCInput)
			readers[i] = r
		}
		return readers, noop, nil
	default:
		adc, err := sensor.NewADS1115(cfg.ADS1115)
		if err != nil {
			return readers, noop, err
		}
		for i, sc := range cfg.Sensors[:2] {
			src, err := adc.Input(sc.ADCInput)
			if err != nil {
				_ = adc.Close()
				return readers, noop, fmt.Errorf("sensor %s: %w", sc.Tag, err)
			}
			r := sensor.NewReader(sc.Tag, sc.Pin, src)
			logSensor(logger, r, cfg.SensorType, sc.ADCInput)
			readers[i] = r
		}
		return readers, func() { _ = adc.Close() }, nil
	}
}

func logSensor(logger *zap.Logger, r *sensor.Reader, backend string, input int) {
	logger.Info("sensor configured",
		zap.String("tag", r.Tag()),
		zap.Int("pin", r.Pin()),
		zap.Int("adc_input", input),
		zap.String("backend", backend),
	)
}

func initStatusPin(cfg config.Config, logger *zap.Logger) (status.Pin, error) {
	if cfg.Status.Type == "log" {
		return status.NewLogPin(logger.Named("led")), nil
	}
	return status.NewGPIOPin(cfg.Status.Pin)
}

func initLink(cfg config.Config, logger *zap.Logger) network.Link {
	if cfg.Network.Type == "static" {
		return network.StaticLink{}
	}
	return network.NewNMLink(cfg.Network.Interface, logger.Named("networkmanager"))
}

// initOutputs builds the record mirrors. An mqtt entry without settings gets
// an empty MQTTConfig so the defaults apply.
func initOutputs(cfg *config.Config, logger *zap.Logger) ([]output.Output, error) {
	outs := make([]output.Output, 0, len(cfg.Outputs))
	for i := range cfg.Outputs {
		switch cfg.Outputs[i].Type {
		case "console":
			outs = append(outs, console.NewConsole())
		case "mqtt":
			if cfg.Outputs[i].MQTT == nil {
				cfg.Outputs[i].MQTT = &config.MQTTConfig{}
			}
			o, err := mqtt.NewMQTT(*cfg.Outputs[i].MQTT, logger.Named("mqtt"))
			if err != nil {
				for _, prev := range outs {
					_ = prev.Close()
				}
				return nil, err
			}
			outs = append(outs, o)
		default:
			return nil, fmt.Errorf("unknown output type %q", cfg.Outputs[i].Type)
		}
	}
	return outs, nil
}
