package barometer

import (
	"math"
	"sync"
	"time"

	"github.com/i474232898/pressure-forecast/internal/cache"
)

// Snapshot is a read-only view of a session.
type Snapshot struct {
	PressureKPa  float64   `json:"pressureKpa"`
	PressureInHg float64   `json:"pressureInHg"`
	Trend        Trend     `json:"trend"`
	Forecast     string    `json:"forecast"`
	Samples      int       `json:"samples"`
	UpdatedAt    time.Time `json:"updatedAt"` // zero before the first reading
}

// SessionOptions configures a Session. Zero values select the defaults.
type SessionOptions struct {
	WindowSize int
	Thresholds Thresholds
	Resolver   *Resolver

	// CacheTTL enables memoization of forecast text per (pressure, trend).
	CacheTTL time.Duration

	Clock func() time.Time
}

type forecastKey struct {
	kPa   float64
	trend Trend
}

// Session owns one classifier and exposes the latest pressure, trend and
// forecast. Ingest and Snapshot may be called from different goroutines;
// concurrent Ingest calls are serialized and subscribers see their snapshots
// in ingest order.
type Session struct {
	// ingestMu orders Ingest calls end to end, notification included.
	ingestMu sync.Mutex

	mu         sync.Mutex
	classifier *Classifier
	pressure   float64
	updatedAt  time.Time

	resolver  *Resolver
	forecasts *cache.Cache[forecastKey, string]
	now       func() time.Time

	subMu  sync.Mutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// NewSession builds a session from opts.
func NewSession(opts SessionOptions) *Session {
	s := &Session{
		classifier: NewClassifier(opts.WindowSize, opts.Thresholds),
		pressure:   DefaultPressureKPa,
		resolver:   opts.Resolver,
		now:        opts.Clock,
	}
	if s.resolver == nil {
		s.resolver = NewResolver(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.CacheTTL > 0 {
		s.forecasts = cache.New[forecastKey, string](opts.CacheTTL, cache.WithClock(s.now))
	}
	return s
}

// Ingest records a reading in kPa and returns the new trend and forecast.
// Subscribers are notified after the state lock is released, so they may call
// Snapshot, but they must not call Ingest.
func (s *Session) Ingest(kPa float64) (Trend, string) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	s.mu.Lock()
	trend := s.classifier.Ingest(kPa)
	s.pressure = kPa
	s.updatedAt = s.now().UTC()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return trend, snap.Forecast
}

// Snapshot returns the current view, resolving the forecast afresh.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// HasReading reports whether at least one reading has been ingested.
func (s *Session) HasReading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.Len() > 0
}

// History returns the retained readings, oldest first.
func (s *Session) History() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.Values()
}

// Resolver returns the rule table the session resolves against.
func (s *Session) Resolver() *Resolver { return s.resolver }

func (s *Session) snapshotLocked() Snapshot {
	trend := s.classifier.Trend()
	return Snapshot{
		PressureKPa:  s.pressure,
		PressureInHg: ToInHg(s.pressure),
		Trend:        trend,
		Forecast:     s.forecast(s.pressure, trend),
		Samples:      s.classifier.Len(),
		UpdatedAt:    s.updatedAt,
	}
}

func (s *Session) forecast(kPa float64, t Trend) string {
	// NaN never equals itself, so it could only ever miss.
	if s.forecasts == nil || math.IsNaN(kPa) {
		return s.resolver.Resolve(kPa, t)
	}
	key := forecastKey{kPa: kPa, trend: t}
	if text, ok := s.forecasts.Get(key); ok {
		return text
	}
	text := s.resolver.Resolve(kPa, t)
	s.forecasts.Set(key, text)
	return text
}

// Subscribe registers fn to receive a snapshot after every Ingest. Callbacks
// run on the ingesting goroutine in registration order and should not block
// for long. The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Session) notify(snap Snapshot) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}
