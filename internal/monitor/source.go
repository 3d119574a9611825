package monitor

import (
	"context"
	"time"

	"github.com/i474232898/pressure-forecast/internal/barometer"
)

// Reading is a single raw pressure value from a source. Value is in kPa
// before the configured raw scale is applied.
type Reading struct {
	Source    string
	Timestamp time.Time
	Value     float64
}

// Source abstracts where pressure readings come from (a local sensor, an MQTT
// feed, or a remote weather provider).
type Source interface {
	Name() string
	Read(ctx context.Context) (Reading, error)
}

// Record is a snapshot tagged with the source that produced it.
type Record struct {
	barometer.Snapshot
	Source string `json:"source"`
}

// Store is the contract the snapshot history must satisfy.
type Store interface {
	Save(rec Record)
	GetLatest() (Record, error)
	GetRange(from, to time.Time) ([]Record, error)
}
