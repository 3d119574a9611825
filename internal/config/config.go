package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level

	Port string

	// Trend classification.
	WindowSize     int
	RapidThreshold float64 // kPa
	SlowThreshold  float64 // kPa

	// ForecastCacheTTL enables the (pressure, trend) forecast cache when > 0.
	ForecastCacheTTL time.Duration

	// SampleInterval controls how often the scheduler pulls a reading.
	SampleInterval time.Duration

	// Sources are tried in order on every tick until one yields a reading.
	Sources []string

	// RawScale multiplies every raw source value before it is ingested.
	RawScale float64

	HTTPTimeout time.Duration

	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string
	Location          Location

	BMX280Bus  string
	BMX280Addr uint16

	MQTTBroker         string
	MQTTPort           int
	MQTTClientID       string
	MQTTTelemetryTopic string
	MQTTSnapshotTopic  string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// In-memory snapshot retention.
	StoreMaxHistory int           // max number of snapshots (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)
}

// Location identifies where remote providers should report pressure for.
type Location struct {
	City    string
	Country string
	Lat     *float64
	Lon     *float64
}

// MQTTEnabled reports whether a broker is configured.
func (c *AppConfig) MQTTEnabled() bool { return c.MQTTBroker != "" }

// InfluxEnabled reports whether the Influx sink is configured.
func (c *AppConfig) InfluxEnabled() bool { return c.InfluxURL != "" }

var knownSources = map[string]bool{
	"simulated":   true,
	"bmx280":      true,
	"mqtt":        true,
	"openweather": true,
	"weatherapi":  true,
	"openmeteo":   true,
}

// Load reads configuration from the environment, loading .env first when present.
func Load() (*AppConfig, error) {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.AppEnv = strings.ToLower(getenvDefault("APP_ENV", "dev"))
	if cfg.AppEnv != "dev" && cfg.AppEnv != "prod" {
		return nil, fmt.Errorf("invalid APP_ENV %q (must be dev or prod)", cfg.AppEnv)
	}
	if cfg.LogLevel, err = parseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.WindowSize, err = getenvInt("TREND_WINDOW_SIZE", 60); err != nil {
		return nil, err
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("invalid TREND_WINDOW_SIZE: must be positive, got %d", cfg.WindowSize)
	}
	if cfg.RapidThreshold, err = getenvFloat("TREND_RAPID_THRESHOLD", 0.5); err != nil {
		return nil, err
	}
	if cfg.SlowThreshold, err = getenvFloat("TREND_SLOW_THRESHOLD", 0.1); err != nil {
		return nil, err
	}
	if cfg.SlowThreshold <= 0 || cfg.RapidThreshold <= cfg.SlowThreshold {
		return nil, fmt.Errorf("invalid trend thresholds: need 0 < slow (%g) < rapid (%g)", cfg.SlowThreshold, cfg.RapidThreshold)
	}

	if cfg.ForecastCacheTTL, err = getenvDuration("FORECAST_CACHE_TTL", "0s"); err != nil {
		return nil, err
	}
	if cfg.SampleInterval, err = getenvDuration("SAMPLE_INTERVAL", "1s"); err != nil {
		return nil, err
	}
	if cfg.SampleInterval <= 0 {
		return nil, fmt.Errorf("invalid SAMPLE_INTERVAL: must be positive")
	}

	if cfg.Sources, err = parseSources(getenvDefault("PRESSURE_SOURCES", "simulated")); err != nil {
		return nil, err
	}
	if cfg.RawScale, err = getenvFloat("PRESSURE_RAW_SCALE", 1); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	if cfg.Location, err = loadLocation(); err != nil {
		return nil, err
	}

	cfg.BMX280Bus = os.Getenv("BMX280_I2C_BUS")
	addr, err := strconv.ParseUint(getenvDefault("BMX280_I2C_ADDR", "0x76"), 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid BMX280_I2C_ADDR: %w", err)
	}
	cfg.BMX280Addr = uint16(addr)

	cfg.MQTTBroker = os.Getenv("MQTT_BROKER")
	if cfg.MQTTPort, err = getenvInt("MQTT_PORT", 1883); err != nil {
		return nil, err
	}
	cfg.MQTTClientID = os.Getenv("MQTT_CLIENT_ID")
	cfg.MQTTTelemetryTopic = getenvDefault("MQTT_TELEMETRY_TOPIC", "stations/+/telemetry")
	cfg.MQTTSnapshotTopic = getenvDefault("MQTT_SNAPSHOT_TOPIC", "barometer/snapshot")
	for _, s := range cfg.Sources {
		if s == "mqtt" && !cfg.MQTTEnabled() {
			return nil, fmt.Errorf("PRESSURE_SOURCES includes mqtt but MQTT_BROKER is empty")
		}
	}

	cfg.InfluxURL = os.Getenv("INFLUX_URL")
	cfg.InfluxToken = os.Getenv("INFLUX_TOKEN")
	cfg.InfluxOrg = os.Getenv("INFLUX_ORG")
	cfg.InfluxBucket = os.Getenv("INFLUX_BUCKET")
	if cfg.InfluxEnabled() && (cfg.InfluxOrg == "" || cfg.InfluxBucket == "") {
		return nil, fmt.Errorf("INFLUX_ORG and INFLUX_BUCKET are required when INFLUX_URL is set")
	}

	// Store retention: an hour of one-second samples.
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 3600); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseSources(v string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !knownSources[s] {
			return nil, fmt.Errorf("invalid PRESSURE_SOURCES entry %q", s)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("PRESSURE_SOURCES must name at least one source")
	}
	return out, nil
}

func loadLocation() (Location, error) {
	loc := Location{
		City:    strings.TrimSpace(os.Getenv("WEATHER_LOCATION_CITY")),
		Country: strings.TrimSpace(os.Getenv("WEATHER_LOCATION_COUNTRY")),
	}

	latStr := os.Getenv("WEATHER_LOCATION_LAT")
	lonStr := os.Getenv("WEATHER_LOCATION_LON")
	if (latStr == "") != (lonStr == "") {
		return loc, fmt.Errorf("WEATHER_LOCATION_LAT and WEATHER_LOCATION_LON must be set together")
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return loc, fmt.Errorf("invalid WEATHER_LOCATION_LAT: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return loc, fmt.Errorf("invalid WEATHER_LOCATION_LON: %w", err)
		}
		loc.Lat, loc.Lon = &lat, &lon
	}
	return loc, nil
}

func parseLogLevel(v string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (must be debug, info, warn, or error)", v)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
