package sources

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/i474232898/pressure-forecast/internal/monitor"
)

// Simulated produces a bounded random walk around standard sea level pressure.
// It stands in for hardware during development.
type Simulated struct {
	mu    sync.Mutex
	rng   *rand.Rand
	value float64
	step  float64
	min   float64
	max   float64
}

func NewSimulated(seed uint64) *Simulated {
	return &Simulated{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		value: 101.325,
		step:  0.02,
		min:   97.0,
		max:   105.0,
	}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Read(ctx context.Context) (monitor.Reading, error) {
	if err := ctx.Err(); err != nil {
		return monitor.Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.value += (s.rng.Float64()*2 - 1) * s.step
	if s.value < s.min {
		s.value = s.min
	}
	if s.value > s.max {
		s.value = s.max
	}

	return monitor.Reading{
		Source:    s.Name(),
		Timestamp: time.Now().UTC(),
		Value:     s.value,
	}, nil
}
