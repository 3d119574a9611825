package barometer

import (
	"fmt"
	"strings"
)

// Trend is the short-term direction and speed of pressure change.
type Trend int

const (
	Steady Trend = iota
	RisingRapidly
	FallingRapidly
	RisingSlowly
	FallingSlowly
)

var trendNames = [...]string{
	Steady:         "steady",
	RisingRapidly:  "rising_rapidly",
	FallingRapidly: "falling_rapidly",
	RisingSlowly:   "rising_slowly",
	FallingSlowly:  "falling_slowly",
}

// Trends lists every trend in declaration order.
var Trends = []Trend{Steady, RisingRapidly, FallingRapidly, RisingSlowly, FallingSlowly}

func (t Trend) String() string {
	if t < 0 || int(t) >= len(trendNames) {
		return fmt.Sprintf("trend(%d)", int(t))
	}
	return trendNames[t]
}

// ParseTrend accepts the snake_case names produced by String, ignoring case.
func ParseTrend(s string) (Trend, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range trendNames {
		if name == key {
			return Trend(i), nil
		}
	}
	return Steady, fmt.Errorf("unknown trend %q", s)
}

func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Trend) UnmarshalText(b []byte) error {
	v, err := ParseTrend(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// DefaultWindowSize assumes one reading per second over a minute.
const DefaultWindowSize = 60

// Thresholds are the delta magnitudes, in kPa, that separate the trend classes.
type Thresholds struct {
	Rapid float64
	Slow  float64
}

// DefaultThresholds are the rapid and slow change thresholds in kPa.
var DefaultThresholds = Thresholds{Rapid: 0.5, Slow: 0.1}

// Classify maps a delta onto a trend. Rapid checks run before slow ones.
func Classify(delta float64, th Thresholds) Trend {
	switch {
	case delta > th.Rapid:
		return RisingRapidly
	case delta < -th.Rapid:
		return FallingRapidly
	case delta > th.Slow:
		return RisingSlowly
	case delta < -th.Slow:
		return FallingSlowly
	default:
		return Steady
	}
}

// Classifier derives a trend from a bounded history of readings. The delta
// is measured against the oldest retained reading, not an average.
//
// Classifier is not safe for concurrent use; Session serializes access.
type Classifier struct {
	history    *window
	thresholds Thresholds
	trend      Trend
}

// NewClassifier returns a classifier retaining size readings. Non-positive
// sizes and zero thresholds fall back to the defaults.
func NewClassifier(size int, th Thresholds) *Classifier {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if th == (Thresholds{}) {
		th = DefaultThresholds
	}
	return &Classifier{
		history:    newWindow(size),
		thresholds: th,
		trend:      Steady,
	}
}

// Ingest records v and returns the updated trend. Values are not validated.
func (c *Classifier) Ingest(v float64) Trend {
	c.history.push(v)
	oldest, _ := c.history.oldest()
	c.trend = Classify(v-oldest, c.thresholds)
	return c.trend
}

func (c *Classifier) Trend() Trend { return c.trend }

func (c *Classifier) Len() int { return c.history.len() }

func (c *Classifier) Cap() int { return c.history.cap() }

func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Oldest returns the reading deltas are measured against.
func (c *Classifier) Oldest() (float64, bool) {
	return c.history.oldest()
}

// Values returns the retained readings, oldest first.
func (c *Classifier) Values() []float64 {
	return c.history.values()
}
