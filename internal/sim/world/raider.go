package world

import (
	"fmt"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/rng"
	"blackflag.space/internal/sim/spatial"
)

type RaiderState string

const (
	Hunting   RaiderState = "HUNTING"
	Engaging  RaiderState = "ENGAGING"
	Returning RaiderState = "RETURNING"
	Arrived   RaiderState = "ARRIVED"
)

func (s RaiderState) valid() bool {
	switch s {
	case Hunting, Engaging, Returning, Arrived:
		return true
	}
	return false
}

// Raider is a pirate ship owned by a base. It refers to its base and target by name and id.
type Raider struct {
	ID        uint64
	Base      string
	Intel     *CargoIntel
	Pos       spatial.Vec3
	Speed     float64
	Weapons   int
	Crew      int
	RaidRange float64
	State     RaiderState
	Stolen    map[string]int
	// Target is the ship engaged last, 0 before any engagement.
	Target   uint64
	HuntTime float64
}

func (r *Raider) EntityID() uint64       { return r.ID }
func (r *Raider) Position() spatial.Vec3 { return r.Pos }
func (r *Raider) Hunting() bool          { return r.State == Hunting }
func (r *Raider) Delivered() bool        { return r.State == Arrived }

func (w *World) eligible(r *Raider, s *CargoShip) bool {
	if w.cfg.PursueIntel && r.Intel != nil {
		return r.Intel.sharesCommodity(s.Manifest)
	}
	return s.ContractValue > w.cfg.PiracyValueThreshold
}

func (w *World) tickRaider(r *Raider, dt float64) error {
	switch r.State {
	case Hunting:
		return w.hunt(r, dt)
	case Engaging:
		return w.engage(r, w.ship(r.Target))
	case Returning:
		return w.returnHome(r, dt)
	case Arrived:
		return nil
	default:
		return fmt.Errorf("raider %d: unknown state %q", r.ID, r.State)
	}
}

func (w *World) hunt(r *Raider, dt float64) error {
	r.HuntTime += dt

	inRange := spatial.Within(w.liveShips(), r.Pos, r.RaidRange)
	candidates := inRange[:0:0]
	for _, s := range inRange {
		if w.eligible(r, s) {
			candidates = append(candidates, s)
		}
	}
	if target, ok := spatial.Closest(candidates, r.Pos); ok {
		r.Target = target.ID
		r.State = Engaging
		return w.engage(r, target)
	}

	if r.HuntTime >= w.cfg.HuntTimeout {
		r.State = Returning
		return nil
	}

	if r.Intel != nil {
		if s := w.ship(r.Intel.ShipID); s != nil {
			r.Pos = spatial.MoveToward(r.Pos, s.Pos, r.Speed*dt)
		}
	}
	j := w.cfg.PatrolJitter
	r.Pos = r.Pos.Add(spatial.V(
		rng.Uniform(w.rng, -j, j)*dt,
		rng.Uniform(w.rng, -j, j)*dt,
		rng.Uniform(w.rng, -j, j)*dt,
	))
	return nil
}

// engage resolves one combat and always leaves the raider Returning.
func (w *World) engage(r *Raider, s *CargoShip) error {
	r.State = Returning
	if s == nil {
		w.diagnostic("raider", fmt.Sprintf("raider %d: engagement target %d gone", r.ID, r.Target))
		return nil
	}
	res := ResolveCombat(r.Weapons, r.Crew, w.rng)
	w.counters.Raids++

	success := res.Success
	value := 0
	if success {
		r.Stolen = copyManifest(s.Manifest)
		s.destroyed = true
		value = s.ContractValue
		units := protocol.ManifestUnits(s.Manifest)
		w.counters.RaidsWon++
		w.counters.StolenUnits += units
		w.emit(protocol.Event{
			Kind:        protocol.KindSupplyDisruption,
			ShipID:      s.ID,
			RaiderID:    r.ID,
			Planet:      s.Destination,
			Destination: s.Destination,
			Manifest:    copyManifest(s.Manifest),
			Units:       units,
		})
	}
	w.emit(protocol.Event{
		Kind:     protocol.KindRaidResolved,
		RaiderID: r.ID,
		ShipID:   s.ID,
		Base:     r.Base,
		Success:  &success,
		Value:    value,
	})
	return nil
}

func (w *World) returnHome(r *Raider, dt float64) error {
	b := w.baseByName[r.Base]
	if b == nil {
		return fmt.Errorf("raider %d: %w: %q", r.ID, ErrUnknownBase, r.Base)
	}
	r.Pos = spatial.MoveToward(r.Pos, b.Pos, r.Speed*dt)
	if spatial.Distance(r.Pos, b.Pos) >= w.cfg.ReturnRadius {
		return nil
	}
	for _, c := range sortedKeys(r.Stolen) {
		if !w.cat.Has(c) {
			return fmt.Errorf("raider %d deposit: %q not in catalog", r.ID, c)
		}
	}
	for _, c := range sortedKeys(r.Stolen) {
		b.Stock[c] += float64(r.Stolen[c])
	}
	r.State = Arrived
	w.emit(protocol.Event{
		Kind:     protocol.KindRaiderReturned,
		RaiderID: r.ID,
		Base:     b.Name,
		Manifest: copyManifest(r.Stolen),
		Units:    protocol.ManifestUnits(r.Stolen),
	})
	return nil
}
