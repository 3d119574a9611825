package sink

import (
	"log/slog"
	"time"

	"github.com/i474232898/pressure-forecast/internal/monitor"
)

type jsonPublisher interface {
	PublishJSON(topic string, retained bool, v any) error
}

// SnapshotMessage is the retained payload describing the latest state.
type SnapshotMessage struct {
	Source       string    `json:"source"`
	PressureKPa  float64   `json:"pressure_kpa"`
	PressureInHg float64   `json:"pressure_inhg"`
	Trend        string    `json:"trend"`
	Forecast     string    `json:"forecast"`
	Samples      int       `json:"samples"`
	Timestamp    time.Time `json:"timestamp"`
}

// MQTT republishes every snapshot to a retained topic so late subscribers
// see the current state immediately.
type MQTT struct {
	pub    jsonPublisher
	topic  string
	logger *slog.Logger
}

func NewMQTT(pub jsonPublisher, topic string, logger *slog.Logger) *MQTT {
	return &MQTT{pub: pub, topic: topic, logger: logger}
}

// Publish is registered as a monitor.Service record listener.
func (m *MQTT) Publish(rec monitor.Record) {
	msg := SnapshotMessage{
		Source:       rec.Source,
		PressureKPa:  rec.PressureKPa,
		PressureInHg: rec.PressureInHg,
		Trend:        rec.Trend.String(),
		Forecast:     rec.Forecast,
		Samples:      rec.Samples,
		Timestamp:    rec.UpdatedAt,
	}
	if err := m.pub.PublishJSON(m.topic, true, msg); err != nil {
		m.logger.Warn("snapshot publish failed", "topic", m.topic, "error", err)
	}
}
