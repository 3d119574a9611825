package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/pressure-forecast/internal/api/http"
	"github.com/i474232898/pressure-forecast/internal/barometer"
	"github.com/i474232898/pressure-forecast/internal/config"
	"github.com/i474232898/pressure-forecast/internal/logging"
	"github.com/i474232898/pressure-forecast/internal/monitor"
	"github.com/i474232898/pressure-forecast/internal/monitor/sources"
	"github.com/i474232898/pressure-forecast/internal/mqtt"
	"github.com/i474232898/pressure-forecast/internal/scheduler"
	"github.com/i474232898/pressure-forecast/internal/sink"
	"github.com/i474232898/pressure-forecast/internal/store"
)

const appName = "pressure-forecast"

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg, version, appName)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := barometer.NewSession(barometer.SessionOptions{
		WindowSize: cfg.WindowSize,
		Thresholds: barometer.Thresholds{Rapid: cfg.RapidThreshold, Slow: cfg.SlowThreshold},
		CacheTTL:   cfg.ForecastCacheTTL,
	})

	// In-memory history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	var mqttClient *mqtt.Client
	if cfg.MQTTEnabled() {
		mqttClient = mqtt.NewClient(mqtt.Options{
			Broker:   cfg.MQTTBroker,
			Port:     cfg.MQTTPort,
			ClientID: cfg.MQTTClientID,
		}, log.With("component", "mqtt"))

		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := mqttClient.Connect(connectCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		defer mqttClient.Disconnect()
	}

	srcs, closeSources, err := buildSources(cfg, mqttClient, log)
	if err != nil {
		return err
	}
	defer closeSources()

	service := monitor.NewService(session, memStore, srcs, cfg.RawScale, log.With("component", "monitor"))

	if mqttClient != nil {
		service.OnRecord(sink.NewMQTT(mqttClient, cfg.MQTTSnapshotTopic, log.With("component", "mqtt-sink")).Publish)
	}
	if cfg.InfluxEnabled() {
		influx := sink.NewInflux(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, log.With("component", "influx"))
		defer influx.Close()
		if !influx.Ping(ctx) {
			log.Warn("influx not reachable; points will be retried by the client", "url", cfg.InfluxURL)
		}
		service.OnRecord(influx.Write)
	}

	// Scheduler that periodically samples the sources.
	sched := scheduler.New(cfg.SampleInterval, cfg.HTTPTimeout+5*time.Second, service, log.With("component", "scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"service":    appName,
			"version":    version,
			"hasReading": session.HasReading(),
		})
	})

	httpapi.RegisterRoutes(app, service)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("error during shutdown", "error", err)
	}
	return nil
}

// buildSources instantiates the configured sources in failover order. The
// returned func releases hardware handles.
func buildSources(cfg *config.AppConfig, mqttClient *mqtt.Client, log *slog.Logger) ([]monitor.Source, func(), error) {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	loc := sources.Location{
		City:    cfg.Location.City,
		Country: cfg.Location.Country,
		Lat:     cfg.Location.Lat,
		Lon:     cfg.Location.Lon,
	}

	var (
		out     []monitor.Source
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("closing source failed", "error", err)
			}
		}
	}

	for _, name := range cfg.Sources {
		switch name {
		case "simulated":
			out = append(out, sources.NewSimulated(uint64(time.Now().UnixNano())))
		case "bmx280":
			dev, err := sources.OpenBMX280(cfg.BMX280Bus, cfg.BMX280Addr)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, dev.Close)
			out = append(out, dev)
		case "mqtt":
			src := sources.NewMQTT(cfg.MQTTTelemetryTopic, log.With("component", "mqtt-source"))
			if err := src.Attach(mqttClient); err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("mqtt source: %w", err)
			}
			out = append(out, src)
		case "openweather":
			out = append(out, sources.NewOpenWeather(httpClient, cfg.OpenWeatherAPIKey, loc))
		case "weatherapi":
			out = append(out, sources.NewWeatherAPI(httpClient, cfg.WeatherAPIKey, loc))
		case "openmeteo":
			out = append(out, sources.NewOpenMeteo(httpClient, loc, sources.GoogleGeocoder(cfg.GeocoderAPIKey)))
		}
	}

	return out, closeAll, nil
}
