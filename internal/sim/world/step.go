package world

import (
	"fmt"
	"time"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/clock"
)

// Step advances the world by dt in-world seconds and returns the events it produced.
// Non-positive and non-finite dt are no-ops.
func (w *World) Step(dt float64) []protocol.Event {
	if !clock.ValidStep(dt) {
		return nil
	}
	start := time.Now()
	tick := w.tick.Load()

	// Clock; day rollover runs the daily systems through onDay.
	w.clock.Advance(dt)

	w.spawnFromRoutes(dt)
	w.stepBases(dt)
	w.stepShips(dt)
	w.stepRaiders(dt)
	w.stepStatus(dt)

	evs := w.flushEvents()
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:   tick,
			T:      w.clock.Now(),
			DT:     dt,
			Day:    w.clock.Day(),
			Digest: w.stateDigest(tick),
			Events: evs,
		})
	}
	w.tick.Add(1)
	w.maybeSnapshot(tick)
	w.publishMetrics(float64(time.Since(start).Microseconds()) / 1000.0)
	return evs
}

// StepOnce advances a single tick and returns its number and the resulting state digest.
// Replays compare the digest against the tick log.
func (w *World) StepOnce(dt float64) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.Step(dt)
	return tick, w.stateDigest(tick)
}

func (w *World) onDay(day int) {
	for _, p := range w.planets {
		rep := p.Economy.DailyUpdate()
		for _, c := range rep.Clamped {
			w.diagnostic("planet", fmt.Sprintf("%s: negative %s stockpile clamped to zero", p.Name, c))
		}
	}
	w.market.UpdateTrends(w.rng)
	w.emit(protocol.Event{Kind: protocol.KindDailyTick, Day: day})
}

func (w *World) stepBases(dt float64) {
	kept := w.bases[:0]
	for _, b := range w.bases {
		if w.safeUpdate("base", b.Name, func() error { return w.tickBase(b, dt) }) {
			kept = append(kept, b)
			continue
		}
		delete(w.baseByName, b.Name)
	}
	clear(w.bases[len(kept):])
	w.bases = kept
}

func (w *World) stepShips(dt float64) {
	for _, s := range w.ships {
		if !s.live() {
			continue
		}
		if !w.safeUpdate("ship", fmt.Sprint(s.ID), func() error { return w.tickShip(s, dt) }) {
			s.destroyed = true
		}
	}
	w.ships = compact(w.ships, func(s *CargoShip) bool { return s.live() })
}

func (w *World) stepRaiders(dt float64) {
	seen := make(map[uint64]bool, len(w.raiders))
	for _, r := range w.raiders {
		if seen[r.ID] {
			w.diagnostic("raider", fmt.Sprintf("duplicate raider id %d dropped", r.ID))
			r.State = Arrived
			continue
		}
		seen[r.ID] = true
		if !w.safeUpdate("raider", fmt.Sprint(r.ID), func() error { return w.tickRaider(r, dt) }) {
			r.State = Arrived
		}
	}
	w.raiders = compact(w.raiders, func(r *Raider) bool { return r.State != Arrived })
	// Raiders may have destroyed ships.
	w.ships = compact(w.ships, func(s *CargoShip) bool { return s.live() })
}

func (w *World) stepStatus(dt float64) {
	w.statusAcc += dt
	if w.statusAcc < w.cfg.StatusEverySeconds {
		return
	}
	w.statusAcc -= w.cfg.StatusEverySeconds
	st := w.status()
	w.emit(protocol.Event{Kind: protocol.KindStatus, Status: &st})
}

func (w *World) status() protocol.Status {
	return protocol.Status{
		Ships:      len(w.ships),
		Raiders:    len(w.raiders),
		Bases:      len(w.bases),
		Planets:    len(w.planets),
		Launched:   w.counters.Launched,
		Delivered:  w.counters.Delivered,
		Raids:      w.counters.Raids,
		RaidsWon:   w.counters.RaidsWon,
		StolenUnit: w.counters.StolenUnits,
	}
}

// safeUpdate runs one agent update. Errors and panics become diagnostics and report false;
// the caller removes the agent.
func (w *World) safeUpdate(entity, id string, fn func() error) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			w.diagnostic(entity, fmt.Sprintf("%s %s panicked: %v; removed", entity, id, rec))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		w.diagnostic(entity, fmt.Sprintf("%s %s: %v; removed", entity, id, err))
		return false
	}
	return true
}

func compact[T any](xs []T, keep func(T) bool) []T {
	out := xs[:0]
	for _, x := range xs {
		if keep(x) {
			out = append(out, x)
		}
	}
	clear(xs[len(out):])
	return out
}
