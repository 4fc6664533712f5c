package service

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"air_monitor/internal/models"
)

// ----------- Simulation constants -----------
const (
	StartTemperatureF = 72.0  // °F, inside the good band
	StartHumidityPct  = 30.0  // %
	StartGasPPM       = 120.0 // ppm

	TempStepF       = 1.5  // max °F change per tick
	HumidityStepPct = 1.0  // max % change per tick
	GasStepPPM      = 15.0 // max ppm change per tick

	DropFieldChance = 0.02 // chance per field per tick that it is absent
)

// Walk limits stay slightly outside the classifier bands so every status
// can show up.
const (
	minTempF, maxTempF        = 40.0, 95.0
	minHumidityPct, maxHumPct = 10.0, 60.0
	minGasPPM, maxGasPPM      = 50.0, 500.0
)

// SimulatorService publishes a random walk of the three readings to an
// in-process feed.
type SimulatorService struct {
	feed SnapshotPublisher
	path string

	mu   sync.Mutex
	rnd  *rand.Rand
	temp float64
	hum  float64
	gas  float64
}

// NewSimulatorService returns a simulator starting from good readings.
func NewSimulatorService(feed SnapshotPublisher, path string) *SimulatorService {
	return newSimulator(feed, path, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newSimulator(feed SnapshotPublisher, path string, rnd *rand.Rand) *SimulatorService {
	if path == "" {
		path = "Sensors"
	}
	return &SimulatorService{
		feed: feed,
		path: path,
		rnd:  rnd,
		temp: StartTemperatureF,
		hum:  StartHumidityPct,
		gas:  StartGasPPM,
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.feed.Publish(s.path, s.step(now))
		}
	}
}

// step advances the walk by one tick and returns the snapshot to publish.
func (s *SimulatorService) step(now time.Time) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temp = clamp(s.temp+s.delta(TempStepF), minTempF, maxTempF)
	s.hum = clamp(s.hum+s.delta(HumidityStepPct), minHumidityPct, maxHumPct)
	s.gas = clamp(s.gas+s.delta(GasStepPPM), minGasPPM, maxGasPPM)

	return models.Snapshot{
		Temperature: s.maybe(s.temp),
		Humidity:    s.maybe(s.hum),
		Gas:         s.maybe(s.gas),
		ReceivedAt:  now.UTC(),
	}
}

func (s *SimulatorService) delta(step float64) float64 {
	return (s.rnd.Float64()*2 - 1) * step
}

// maybe drops the field now and then, like a sensor missing a write.
func (s *SimulatorService) maybe(v float64) *float64 {
	if s.rnd.Float64() < DropFieldChance {
		return nil
	}
	return models.Float(math.Round(v*10) / 10)
}

// helpers
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
