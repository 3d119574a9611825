package scheduler

import (
	"testing"
	"time"

	"github.com/i474232898/pressure-forecast/internal/barometer"
	"github.com/i474232898/pressure-forecast/internal/logging"
	"github.com/i474232898/pressure-forecast/internal/monitor"
	"github.com/i474232898/pressure-forecast/internal/monitor/sources"
	"github.com/i474232898/pressure-forecast/internal/store"
)

func TestSchedulerFeedsSession(t *testing.T) {
	session := barometer.NewSession(barometer.SessionOptions{WindowSize: 10})
	svc := monitor.NewService(
		session,
		store.NewMemoryStore(100, 0),
		[]monitor.Source{sources.NewSimulated(7)},
		1,
		logging.Discard(),
	)

	s := New(20*time.Millisecond, time.Second, svc, logging.Discard())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(session.History()) >= 2 {
			cur, err := svc.Current()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cur.Source != "simulated" {
				t.Fatalf("unexpected source %q", cur.Source)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("scheduler did not ingest readings in time")
}
