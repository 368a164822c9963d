package reading

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
)

// Simulator produces random readings inside configured ranges.
type Simulator struct {
	ranges config.SimulationConfig

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulator creates a simulator with a random seed.
func NewSimulator(ranges config.SimulationConfig) *Simulator {
	return NewSeededSimulator(ranges, rand.Uint64(), rand.Uint64()) //nolint:gosec // simulation values, not secrets
}

// NewSeededSimulator creates a simulator with a fixed seed.
func NewSeededSimulator(ranges config.SimulationConfig, seed1, seed2 uint64) *Simulator {
	return &Simulator{
		ranges: ranges,
		rng:    rand.New(rand.NewPCG(seed1, seed2)), //nolint:gosec // simulation values, not secrets
		now:    time.Now,
	}
}

// Latest returns a fresh random reading. It never fails.
func (s *Simulator) Latest(_ context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Reading{
		Temperature:  Float(s.sample(s.ranges.Temperature)),
		Humidity:     Float(s.sample(s.ranges.Humidity)),
		SoilMoisture: Float(s.sample(s.ranges.SoilMoisture)),
		CO2:          Float(s.sample(s.ranges.CO2)),
		Timestamp:    s.now().Unix(),
	}, nil
}

func (s *Simulator) sample(b config.Band) float64 {
	v := b.Min + s.rng.Float64()*(b.Max-b.Min)
	return math.Round(v*10) / 10
}
