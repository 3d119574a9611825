package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/pressure-forecast/internal/barometer"
)

var (
	// ErrNoReading is returned before the session has received any reading.
	ErrNoReading = errors.New("no pressure reading yet")

	// ErrNoNewReading is returned by push-based sources with nothing new since the last read.
	ErrNoNewReading = errors.New("no new reading")

	errNoSources = errors.New("no pressure sources configured")
)

// ManualSource tags readings submitted through the API.
const ManualSource = "manual"

// Service feeds readings from its sources into a session and records every
// resulting snapshot.
type Service struct {
	session *barometer.Session
	store   Store
	sources []Source
	scale   float64
	logger  *slog.Logger

	// ingestMu serializes producers so each snapshot is attributed to the
	// source that caused it.
	ingestMu sync.Mutex
	current  string

	mu        sync.RWMutex
	last      Record
	hasLast   bool
	listeners []func(Record)
}

// NewService wires a session to its sources and store. A zero scale is treated as 1.
func NewService(session *barometer.Session, store Store, sources []Source, scale float64, logger *slog.Logger) *Service {
	if scale == 0 {
		scale = 1
	}
	s := &Service{
		session: session,
		store:   store,
		sources: sources,
		scale:   scale,
		logger:  logger,
	}
	session.Subscribe(s.record)
	return s
}

// OnRecord registers fn to receive every recorded snapshot.
func (s *Service) OnRecord(fn func(Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Sample reads from the sources in order and ingests the first successful
// reading. Sources are alternatives, never averaged.
func (s *Service) Sample(ctx context.Context) error {
	if len(s.sources) == 0 {
		return errNoSources
	}

	var errs []error
	for _, src := range s.sources {
		r, err := src.Read(ctx)
		if err != nil {
			s.logger.Debug("source read failed", "source", src.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		name := r.Source
		if name == "" {
			name = src.Name()
		}
		rec := s.Ingest(name, r.Value*s.scale)
		s.logger.Debug("reading ingested",
			"source", name,
			"kpa", rec.PressureKPa,
			"trend", rec.Trend.String(),
		)
		return nil
	}
	return errors.Join(errs...)
}

// Ingest feeds a canonical kPa reading into the session.
func (s *Service) Ingest(source string, kPa float64) Record {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	s.current = source
	s.session.Ingest(kPa)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// record runs as a session subscriber while ingestMu is held.
func (s *Service) record(snap barometer.Snapshot) {
	rec := Record{Snapshot: snap, Source: s.current}
	s.store.Save(rec)

	s.mu.Lock()
	s.last = rec
	s.hasLast = true
	listeners := s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(rec)
	}
}

// Current returns the latest record with a freshly resolved forecast. The
// snapshot and its source always come from the same ingest.
func (s *Service) Current() (Record, error) {
	s.mu.RLock()
	rec, ok := s.last, s.hasLast
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNoReading
	}
	rec.Forecast = s.session.Resolver().Resolve(rec.PressureKPa, rec.Trend)
	return rec, nil
}

// History delegates to the underlying store.
func (s *Service) History(from, to time.Time) ([]Record, error) {
	return s.store.GetRange(from, to)
}

// Resolver exposes the session's forecast rules.
func (s *Service) Resolver() *barometer.Resolver {
	return s.session.Resolver()
}

// SourceNames lists the configured sources in failover order.
func (s *Service) SourceNames() []string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	return names
}
