package worldtest

import (
	"testing"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/economy"
	"blackflag.space/internal/sim/rng"
	"blackflag.space/internal/sim/spatial"
	world "blackflag.space/internal/sim/world"
)

// Harness drives a world through its exported API only and records every event.
type Harness struct {
	T      *testing.T
	W      *world.World
	Events []protocol.Event
}

// NewHarness builds an empty world. A nil r uses the generator implied by cfg.Seed.
func NewHarness(t *testing.T, cfg world.Config, r rng.Rand) *Harness {
	t.Helper()
	var opts []world.Option
	if r != nil {
		opts = append(opts, world.WithRand(r))
	}
	return &Harness{T: t, W: world.New(cfg, catalogs.Default(), opts...)}
}

func (h *Harness) Planet(name string, pos spatial.Vec3, typ economy.PlanetType, population int) *economy.Planet {
	h.T.Helper()
	p := economy.NewPlanet(h.W.Catalog(), name, pos, typ, population)
	if err := h.W.AddPlanet(p); err != nil {
		h.T.Fatalf("add planet %s: %v", name, err)
	}
	return p
}

func (h *Harness) Base(name string, pos spatial.Vec3, stock, daily map[string]float64) *world.PirateBase {
	h.T.Helper()
	b := world.NewPirateBase(name, pos)
	for k, v := range stock {
		b.Stock[k] = v
	}
	for k, v := range daily {
		b.DailyConsumption[k] = v
	}
	if err := h.W.AddBase(b); err != nil {
		h.T.Fatalf("add base %s: %v", name, err)
	}
	return b
}

func (h *Harness) Route(r world.Route) {
	h.T.Helper()
	if err := h.W.AddRoute(r); err != nil {
		h.T.Fatalf("add route: %v", err)
	}
}

// Spawn launches one ship; value 0 means the per-unit estimate.
func (h *Harness) Spawn(origin, destination string, manifest map[string]int, value int) uint64 {
	h.T.Helper()
	id, err := h.W.SpawnCargo(world.Route{Origin: origin, Destination: destination, Manifest: manifest, ContractValue: value})
	if err != nil {
		h.T.Fatalf("spawn %s->%s: %v", origin, destination, err)
	}
	return id
}

func (h *Harness) Step(dt float64) []protocol.Event {
	evs := h.W.Step(dt)
	h.Events = append(h.Events, evs...)
	return evs
}

// StepFor advances by whole steps of dt covering seconds.
func (h *Harness) StepFor(seconds, dt float64) {
	n := int(seconds/dt + 0.5)
	for i := 0; i < n; i++ {
		h.Step(dt)
	}
}

func (h *Harness) Of(kind string) []protocol.Event {
	var out []protocol.Event
	for _, ev := range h.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Harness) Count(kind string) int { return len(h.Of(kind)) }

// Ship returns the live ship with id, or nil.
func (h *Harness) Ship(id uint64) *world.CargoShip {
	for _, s := range h.W.Ships() {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// FixedRand returns the same draw forever.
type FixedRand float64

func (f FixedRand) Float64() float64 { return float64(f) }
func (f FixedRand) IntN(n int) int   { return 0 }
