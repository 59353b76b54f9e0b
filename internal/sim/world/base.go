package world

import (
	"fmt"
	"math"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/rng"
	"blackflag.space/internal/sim/spatial"
)

// PirateBase consumes supplies continuously and launches raiders to restock.
type PirateBase struct {
	Name             string
	Pos              spatial.Vec3
	Stock            map[string]float64
	DailyConsumption map[string]float64
	// Intel in insertion order; oldest entries are dropped past the cache bound.
	Intel        []CargoIntel
	LastRaidAt   float64
	RaidInterval float64

	attempted bool
}

func NewPirateBase(name string, pos spatial.Vec3) *PirateBase {
	return &PirateBase{
		Name:             name,
		Pos:              pos,
		Stock:            map[string]float64{},
		DailyConsumption: map[string]float64{},
	}
}

func (b *PirateBase) receiveIntel(i CargoIntel, max int) {
	b.Intel = append(b.Intel, i)
	if max > 0 && len(b.Intel) > max {
		drop := len(b.Intel) - max
		b.Intel = append(b.Intel[:0:0], b.Intel[drop:]...)
	}
}

// inCrisis reports whether any consumed commodity has fewer than lowDays of supply left.
func (b *PirateBase) inCrisis(lowDays float64) bool {
	for _, c := range sortedKeys(b.DailyConsumption) {
		rate := b.DailyConsumption[c]
		if rate <= 0 {
			continue
		}
		if b.Stock[c]/rate < lowDays {
			return true
		}
	}
	return false
}

// SelectTarget returns the fresh, unclaimed intel with the greatest estimated value,
// ties going to the most recent sighting, and marks it claimed.
func (b *PirateBase) SelectTarget(now, window float64) (CargoIntel, bool) {
	best := -1
	for i, in := range b.Intel {
		if in.Claimed || !in.Fresh(now, window) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := b.Intel[best]
		if in.EstimatedValue > cur.EstimatedValue ||
			(in.EstimatedValue == cur.EstimatedValue && in.Timestamp > cur.Timestamp) {
			best = i
		}
	}
	if best < 0 {
		return CargoIntel{}, false
	}
	b.Intel[best].Claimed = true
	return b.Intel[best].clone(), true
}

// FreshIntel counts entries still eligible for targeting.
func (b *PirateBase) FreshIntel(now, window float64) int {
	n := 0
	for _, in := range b.Intel {
		if !in.Claimed && in.Fresh(now, window) {
			n++
		}
	}
	return n
}

func (w *World) tickBase(b *PirateBase, dt float64) error {
	day := w.clock.DaySeconds()
	for _, c := range sortedKeys(b.DailyConsumption) {
		rate := b.DailyConsumption[c]
		if rate <= 0 {
			continue
		}
		b.Stock[c] = math.Max(0, b.Stock[c]-rate*dt/day)
	}

	now := w.clock.Now()
	if b.attempted && now-b.LastRaidAt < b.RaidInterval {
		return nil
	}
	b.attempted = true
	b.LastRaidAt = now

	launch := b.inCrisis(w.cfg.LowStockDays)
	if !launch {
		launch = rng.Chance(w.rng, w.cfg.OpportunisticRaidProbability)
	}
	if !launch {
		return nil
	}
	var target *CargoIntel
	if in, ok := b.SelectTarget(now, w.cfg.IntelFreshSeconds); ok {
		target = &in
	}
	if _, err := w.LaunchRaider(b.Name, target); err != nil {
		return fmt.Errorf("base %s launch: %w", b.Name, err)
	}
	return nil
}

// LaunchRaider puts a new raider into space at the base. A nil intel launches a patrol.
func (w *World) LaunchRaider(base string, intel *CargoIntel) (uint64, error) {
	b := w.baseByName[base]
	if b == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBase, base)
	}
	r := &Raider{
		ID:        w.nextRaiderID,
		Base:      b.Name,
		Pos:       b.Pos,
		Speed:     w.cfg.RaiderSpeed,
		Weapons:   w.cfg.RaiderWeapons,
		Crew:      w.cfg.RaiderCrew,
		RaidRange: w.cfg.RaidRange,
		State:     Hunting,
	}
	if intel != nil {
		in := intel.clone()
		r.Intel = &in
	}
	w.nextRaiderID++
	w.raiders = append(w.raiders, r)

	ev := protocol.Event{Kind: protocol.KindRaiderLaunched, RaiderID: r.ID, Base: b.Name, Patrol: r.Intel == nil}
	if r.Intel != nil {
		ev.ShipID = r.Intel.ShipID
		ev.Manifest = copyManifest(r.Intel.Manifest)
		ev.Value = r.Intel.EstimatedValue
	}
	w.emit(ev)
	return r.ID, nil
}
