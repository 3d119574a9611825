package sources

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/i474232898/pressure-forecast/internal/logging"
	"github.com/i474232898/pressure-forecast/internal/monitor"
	"github.com/i474232898/pressure-forecast/internal/mqtt"
)

func TestSimulatedStaysInBounds(t *testing.T) {
	s := NewSimulated(42)
	prev := s.value
	for i := 0; i < 10000; i++ {
		r, err := s.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Value < s.min || r.Value > s.max {
			t.Fatalf("reading %v outside [%v, %v]", r.Value, s.min, s.max)
		}
		if math.Abs(r.Value-prev) > s.step+1e-12 {
			t.Fatalf("step %v larger than %v", r.Value-prev, s.step)
		}
		prev = r.Value
	}
}

func TestSimulatedHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulated(1).Read(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeSensor struct {
	pressure physic.Pressure
	err      error
	halted   bool
}

func (f *fakeSensor) Sense(e *physic.Env) error {
	if f.err != nil {
		return f.err
	}
	e.Pressure = f.pressure
	return nil
}

func (f *fakeSensor) Halt() error {
	f.halted = true
	return nil
}

func TestBMX280Read(t *testing.T) {
	sensor := &fakeSensor{pressure: 101325 * physic.Pascal}
	b := &BMX280{dev: sensor}

	r, err := b.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r.Value-101.325) > 1e-9 {
		t.Fatalf("expected 101.325 kPa, got %v", r.Value)
	}

	sensor.err = errors.New("bus error")
	if _, err := b.Read(context.Background()); err == nil {
		t.Fatalf("expected sense error")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !sensor.halted {
		t.Fatalf("expected sensor to be halted")
	}
}

type fakeSubscriber struct {
	topic   string
	handler mqtt.MessageHandler
}

func (f *fakeSubscriber) Subscribe(topic string, h mqtt.MessageHandler) error {
	f.topic, f.handler = topic, h
	return nil
}

func TestMQTTSourceKeepsLatestUnconsumed(t *testing.T) {
	m := NewMQTT("stations/+/telemetry", logging.Discard())
	sub := &fakeSubscriber{}
	if err := m.Attach(sub); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if sub.topic != "stations/+/telemetry" {
		t.Fatalf("unexpected topic %q", sub.topic)
	}

	if _, err := m.Read(context.Background()); !errors.Is(err, monitor.ErrNoNewReading) {
		t.Fatalf("expected ErrNoNewReading, got %v", err)
	}

	sub.handler("stations/a/telemetry", []byte(`{"station_id":"a","timestamp":"2024-05-01T12:00:01Z","pressure_hpa":1013}`))
	sub.handler("stations/a/telemetry", []byte(`{"station_id":"a","timestamp":"2024-05-01T12:00:00Z","pressure_hpa":900}`))
	sub.handler("stations/a/telemetry", []byte(`not json`))
	sub.handler("stations/a/telemetry", []byte(`{"station_id":"a","timestamp":"2024-05-01T12:00:02Z"}`))

	r, err := m.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Value != 101.3 || r.Source != "mqtt:a" {
		t.Fatalf("unexpected reading %+v", r)
	}
	if !r.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", r.Timestamp)
	}

	if _, err := m.Read(context.Background()); !errors.Is(err, monitor.ErrNoNewReading) {
		t.Fatalf("expected reading to be consumed, got %v", err)
	}
}

func TestValidateTelemetry(t *testing.T) {
	p := 1000.0
	neg := -1.0
	ts := time.Now()

	tests := []struct {
		name string
		in   Telemetry
		ok   bool
	}{
		{"valid", Telemetry{StationID: "a", Timestamp: ts, Pressure: &p}, true},
		{"missing station", Telemetry{Timestamp: ts, Pressure: &p}, false},
		{"missing timestamp", Telemetry{StationID: "a", Pressure: &p}, false},
		{"missing pressure", Telemetry{StationID: "a", Timestamp: ts}, false},
		{"negative pressure", Telemetry{StationID: "a", Timestamp: ts, Pressure: &neg}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTelemetry(tt.in)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
