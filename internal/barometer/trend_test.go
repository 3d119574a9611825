package barometer

import (
	"math"
	"testing"
)

func TestFirstReadingIsSteady(t *testing.T) {
	c := NewClassifier(DefaultWindowSize, DefaultThresholds)
	if got := c.Ingest(1013.25); got != Steady {
		t.Fatalf("expected steady, got %s", got)
	}
}

func TestClassifierThresholds(t *testing.T) {
	tests := []struct {
		name string
		next float64
		want Trend
	}{
		{"rising rapidly", 100.6, RisingRapidly},
		{"falling rapidly", 99.4, FallingRapidly},
		{"rising slowly", 100.2, RisingSlowly},
		{"falling slowly", 99.8, FallingSlowly},
		{"steady", 100.05, Steady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(DefaultWindowSize, DefaultThresholds)
			c.Ingest(100)
			if got := c.Ingest(tt.next); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds
	tests := []struct {
		delta float64
		want  Trend
	}{
		{0.5, RisingSlowly},
		{-0.5, FallingSlowly},
		{0.1, Steady},
		{-0.1, Steady},
		{0, Steady},
		{math.Inf(1), RisingRapidly},
		{math.Inf(-1), FallingRapidly},
		{math.NaN(), Steady},
	}
	for _, tt := range tests {
		if got := Classify(tt.delta, th); got != tt.want {
			t.Fatalf("Classify(%v) = %s, want %s", tt.delta, got, tt.want)
		}
	}
}

func TestHistoryNeverExceedsWindow(t *testing.T) {
	c := NewClassifier(DefaultWindowSize, DefaultThresholds)
	for i := 0; i < 500; i++ {
		c.Ingest(float64(i))
		if c.Len() > DefaultWindowSize {
			t.Fatalf("history length %d exceeds window after %d readings", c.Len(), i+1)
		}
	}
	if c.Len() != DefaultWindowSize {
		t.Fatalf("expected full window, got %d", c.Len())
	}
}

func TestSixtyFirstReadingMeasuresAgainstSecond(t *testing.T) {
	c := NewClassifier(DefaultWindowSize, DefaultThresholds)

	c.Ingest(100) // reading #1, evicted by #61
	for i := 2; i <= 60; i++ {
		c.Ingest(101)
	}

	// Against #1 the delta would be 1.05 (rising rapidly); against #2 it is 0.05.
	if got := c.Ingest(101.05); got != Steady {
		t.Fatalf("expected steady against reading #2, got %s", got)
	}
	oldest, ok := c.Oldest()
	if !ok || oldest != 101 {
		t.Fatalf("expected oldest 101, got %v (ok=%v)", oldest, ok)
	}
}

func TestValuesOldestFirst(t *testing.T) {
	c := NewClassifier(3, DefaultThresholds)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		c.Ingest(v)
	}
	got := c.Values()
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestClassifierDefaults(t *testing.T) {
	c := NewClassifier(0, Thresholds{})
	if c.Cap() != DefaultWindowSize {
		t.Fatalf("expected default window, got %d", c.Cap())
	}
	if c.Thresholds() != DefaultThresholds {
		t.Fatalf("expected default thresholds, got %+v", c.Thresholds())
	}
}

func TestCustomThresholds(t *testing.T) {
	c := NewClassifier(10, Thresholds{Rapid: 2, Slow: 1})
	c.Ingest(100)
	if got := c.Ingest(101.5); got != RisingSlowly {
		t.Fatalf("expected rising slowly, got %s", got)
	}
}

func TestTrendText(t *testing.T) {
	for _, tr := range Trends {
		b, err := tr.MarshalText()
		if err != nil {
			t.Fatalf("marshal %d: %v", tr, err)
		}
		var back Trend
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("unmarshal %q: %v", b, err)
		}
		if back != tr {
			t.Fatalf("expected %s, got %s", tr, back)
		}
	}
	if _, err := ParseTrend("sideways"); err == nil {
		t.Fatalf("expected error for unknown trend")
	}
}
