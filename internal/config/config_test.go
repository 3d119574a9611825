package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppEnv != "dev" || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected env/level: %s/%v", cfg.AppEnv, cfg.LogLevel)
	}
	if cfg.WindowSize != 60 || cfg.RapidThreshold != 0.5 || cfg.SlowThreshold != 0.1 {
		t.Fatalf("unexpected trend defaults: %+v", cfg)
	}
	if cfg.SampleInterval != time.Second {
		t.Fatalf("expected 1s sample interval, got %v", cfg.SampleInterval)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0] != "simulated" {
		t.Fatalf("expected simulated source, got %v", cfg.Sources)
	}
	if cfg.RawScale != 1 {
		t.Fatalf("expected raw scale 1, got %v", cfg.RawScale)
	}
	if cfg.BMX280Addr != 0x76 {
		t.Fatalf("expected BMX280 address 0x76, got %#x", cfg.BMX280Addr)
	}
	if cfg.MQTTEnabled() || cfg.InfluxEnabled() {
		t.Fatalf("expected MQTT and Influx disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("TREND_WINDOW_SIZE", "120")
	t.Setenv("TREND_RAPID_THRESHOLD", "1.5")
	t.Setenv("TREND_SLOW_THRESHOLD", "0.3")
	t.Setenv("SAMPLE_INTERVAL", "30s")
	t.Setenv("PRESSURE_SOURCES", "mqtt, OpenWeather ,simulated")
	t.Setenv("PRESSURE_RAW_SCALE", "10")
	t.Setenv("MQTT_BROKER", "localhost")
	t.Setenv("BMX280_I2C_ADDR", "0x77")
	t.Setenv("WEATHER_LOCATION_LAT", "52.23")
	t.Setenv("WEATHER_LOCATION_LON", "21.01")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppEnv != "prod" || cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("unexpected env/level: %s/%v", cfg.AppEnv, cfg.LogLevel)
	}
	if cfg.WindowSize != 120 || cfg.RapidThreshold != 1.5 || cfg.SlowThreshold != 0.3 {
		t.Fatalf("unexpected trend settings: %d %v %v", cfg.WindowSize, cfg.RapidThreshold, cfg.SlowThreshold)
	}
	want := []string{"mqtt", "openweather", "simulated"}
	if len(cfg.Sources) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Sources)
	}
	for i := range want {
		if cfg.Sources[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.Sources)
		}
	}
	if cfg.RawScale != 10 || cfg.BMX280Addr != 0x77 {
		t.Fatalf("unexpected scale/address: %v %#x", cfg.RawScale, cfg.BMX280Addr)
	}
	if cfg.Location.Lat == nil || *cfg.Location.Lat != 52.23 {
		t.Fatalf("expected latitude to be parsed")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"app env", map[string]string{"APP_ENV": "staging"}},
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"window", map[string]string{"TREND_WINDOW_SIZE": "-1"}},
		{"window parse", map[string]string{"TREND_WINDOW_SIZE": "abc"}},
		{"mqtt port parse", map[string]string{"MQTT_PORT": "18x3"}},
		{"history parse", map[string]string{"STORE_MAX_HISTORY": "lots"}},
		{"threshold order", map[string]string{"TREND_RAPID_THRESHOLD": "0.1", "TREND_SLOW_THRESHOLD": "0.2"}},
		{"threshold parse", map[string]string{"TREND_SLOW_THRESHOLD": "abc"}},
		{"interval", map[string]string{"SAMPLE_INTERVAL": "soon"}},
		{"unknown source", map[string]string{"PRESSURE_SOURCES": "carrier-pigeon"}},
		{"mqtt without broker", map[string]string{"PRESSURE_SOURCES": "mqtt"}},
		{"half coordinates", map[string]string{"WEATHER_LOCATION_LAT": "1"}},
		{"influx without bucket", map[string]string{"INFLUX_URL": "http://localhost:8086"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", tt.env)
			}
		})
	}
}
