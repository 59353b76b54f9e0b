package world

import (
	"testing"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/economy"
	"blackflag.space/internal/sim/rng"
	"blackflag.space/internal/sim/spatial"
)

// constRand always returns the same draw.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }
func (c constRand) IntN(n int) int   { return 0 }

// seqRand replays draws in order, then repeats the last one.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[min(s.i, len(s.vals)-1)]
	s.i++
	return v
}
func (s *seqRand) IntN(n int) int { return 0 }

// quietConfig disables random launches and spy draws unless a test turns them back on.
func quietConfig() Config {
	return Config{
		SpyProbability:               -1,
		OpportunisticRaidProbability: -1,
	}
}

func twoPlanetWorld(t *testing.T, cfg Config, r rng.Rand) *World {
	t.Helper()
	w := New(cfg, catalogs.Default(), WithRand(r))
	cat := w.Catalog()
	if err := w.AddPlanet(economy.NewPlanet(cat, "Ceres", spatial.V(-50, 0, 0), economy.Agricultural, 1_000_000)); err != nil {
		t.Fatalf("add Ceres: %v", err)
	}
	if err := w.AddPlanet(economy.NewPlanet(cat, "Vesta", spatial.V(50, 0, 0), economy.Mining, 500_000)); err != nil {
		t.Fatalf("add Vesta: %v", err)
	}
	return w
}

func addBase(t *testing.T, w *World, name string, pos spatial.Vec3, stock, daily map[string]float64) *PirateBase {
	t.Helper()
	b := NewPirateBase(name, pos)
	for k, v := range stock {
		b.Stock[k] = v
	}
	for k, v := range daily {
		b.DailyConsumption[k] = v
	}
	if err := w.AddBase(b); err != nil {
		t.Fatalf("add base %s: %v", name, err)
	}
	return b
}

func stepFor(w *World, seconds, dt float64) []protocol.Event {
	var out []protocol.Event
	n := int(seconds/dt + 0.5)
	for i := 0; i < n; i++ {
		out = append(out, w.Step(dt)...)
	}
	return out
}

func eventsOf(evs []protocol.Event, kind string) []protocol.Event {
	var out []protocol.Event
	for _, ev := range evs {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// buildDemo adds the two-planet galaxy with one hungry base and two routes.
func buildDemo(t *testing.T, w *World) {
	t.Helper()
	cat := w.Catalog()
	for _, p := range []*economy.Planet{
		economy.NewPlanet(cat, "Ceres", spatial.V(-50, 0, 0), economy.Agricultural, 1_000_000),
		economy.NewPlanet(cat, "Vesta", spatial.V(50, 0, 0), economy.Mining, 500_000),
	} {
		if err := w.AddPlanet(p); err != nil {
			t.Fatalf("add planet: %v", err)
		}
	}
	addBase(t, w, "Tortuga", spatial.V(0, 40, 0), map[string]float64{"food": 500}, map[string]float64{"food": 50})
	for _, r := range []Route{
		{Origin: "Ceres", Destination: "Vesta", Manifest: map[string]int{"food": 150}},
		{Origin: "Vesta", Destination: "Ceres", Manifest: map[string]int{"minerals": 80}},
	} {
		if err := w.AddRoute(r); err != nil {
			t.Fatalf("add route: %v", err)
		}
	}
}
