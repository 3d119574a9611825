package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/pressure-forecast/internal/barometer"
	"github.com/i474232898/pressure-forecast/internal/monitor"
	"github.com/i474232898/pressure-forecast/internal/mqtt"
)

// Telemetry is the station message published by field gateways.
type Telemetry struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	Pressure  *float64  `json:"pressure_hpa,omitempty"`
}

type subscriber interface {
	Subscribe(topic string, handler mqtt.MessageHandler) error
}

// MQTT turns pushed station telemetry into pulled readings. Only the newest
// message since the previous Read is kept, so a burst is sampled once per tick.
type MQTT struct {
	topic  string
	logger *slog.Logger

	mu      sync.Mutex
	latest  monitor.Reading
	pending bool
}

func NewMQTT(topic string, logger *slog.Logger) *MQTT {
	return &MQTT{topic: topic, logger: logger}
}

// Attach subscribes the source to its telemetry topic.
func (m *MQTT) Attach(client subscriber) error {
	return client.Subscribe(m.topic, m.handleMessage)
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Read(ctx context.Context) (monitor.Reading, error) {
	if err := ctx.Err(); err != nil {
		return monitor.Reading{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pending {
		return monitor.Reading{}, monitor.ErrNoNewReading
	}
	m.pending = false
	return m.latest, nil
}

func (m *MQTT) handleMessage(topic string, payload []byte) {
	var t Telemetry
	if err := json.Unmarshal(payload, &t); err != nil {
		m.logger.Warn("failed to parse telemetry message", "topic", topic, "error", err)
		return
	}
	if err := validateTelemetry(t); err != nil {
		m.logger.Warn("invalid telemetry message",
			"topic", topic,
			"station_id", t.StationID,
			"error", err,
		)
		return
	}

	reading := monitor.Reading{
		Source:    "mqtt:" + t.StationID,
		Timestamp: t.Timestamp.UTC(),
		Value:     barometer.HPaToKPa(*t.Pressure),
	}

	m.mu.Lock()
	// Out-of-order deliveries never replace a newer reading.
	if !m.pending || !reading.Timestamp.Before(m.latest.Timestamp) {
		m.latest = reading
		m.pending = true
	}
	m.mu.Unlock()

	m.logger.Debug("received telemetry", "station_id", t.StationID, "pressure_hpa", *t.Pressure)
}

func validateTelemetry(t Telemetry) error {
	if t.StationID == "" {
		return fmt.Errorf("station_id is required")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if t.Pressure == nil {
		return fmt.Errorf("pressure_hpa is required")
	}
	if *t.Pressure <= 0 {
		return fmt.Errorf("pressure_hpa must be positive: %f", *t.Pressure)
	}
	return nil
}
