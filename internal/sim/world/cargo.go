package world

import (
	"fmt"
	"sort"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/spatial"
)

// Route is one entry of the cargo spawner's table. ContractValue overrides the
// per-unit estimate when non-zero.
type Route struct {
	Origin        string         `json:"origin" yaml:"origin"`
	Destination   string         `json:"destination" yaml:"destination"`
	Manifest      map[string]int `json:"manifest" yaml:"manifest"`
	ContractValue int            `json:"contract_value,omitempty" yaml:"contract_value,omitempty"`
}

// CargoShip flies a manifest from its origin to its destination in a straight line.
type CargoShip struct {
	ID            uint64
	Origin        string
	Destination   string
	Manifest      map[string]int
	Pos           spatial.Vec3
	Speed         float64
	Delivered     bool
	ContractValue int

	destroyed bool
}

func (s *CargoShip) EntityID() uint64       { return s.ID }
func (s *CargoShip) Position() spatial.Vec3 { return s.Pos }
func (s *CargoShip) live() bool             { return !s.Delivered && !s.destroyed }

// SpawnCargo launches a ship on the given route and publishes intel about it.
func (w *World) SpawnCargo(r Route) (uint64, error) {
	if err := w.validateRoute(r); err != nil {
		return 0, err
	}
	origin := w.planetByName[r.Origin]
	value := r.ContractValue
	if value == 0 {
		value = manifestValue(r.Manifest, w.cfg.ContractValuePerUnit)
	}
	s := &CargoShip{
		ID:            w.nextShipID,
		Origin:        r.Origin,
		Destination:   r.Destination,
		Manifest:      copyManifest(r.Manifest),
		Pos:           origin.Pos,
		Speed:         w.cfg.CargoSpeed,
		ContractValue: value,
	}
	w.nextShipID++
	w.ships = append(w.ships, s)
	w.counters.Launched++
	w.emit(protocol.Event{
		Kind:        protocol.KindCargoLaunched,
		ShipID:      s.ID,
		Origin:      s.Origin,
		Destination: s.Destination,
		Manifest:    copyManifest(s.Manifest),
		Value:       s.ContractValue,
	})
	w.publishIntel(s)
	return s.ID, nil
}

func (w *World) spawnFromRoutes(dt float64) {
	if len(w.routes) == 0 {
		return
	}
	w.spawnAcc += dt
	for w.spawnAcc >= w.cfg.CargoSpawnInterval {
		w.spawnAcc -= w.cfg.CargoSpawnInterval
		r := w.routes[w.rng.IntN(len(w.routes))]
		if _, err := w.SpawnCargo(r); err != nil {
			w.diagnostic("spawner", fmt.Sprintf("route %s->%s: %v", r.Origin, r.Destination, err))
		}
	}
}

func (w *World) tickShip(s *CargoShip, dt float64) error {
	dest := w.planetByName[s.Destination]
	if dest == nil {
		return fmt.Errorf("ship %d: %w: %q", s.ID, ErrUnknownPlanet, s.Destination)
	}
	s.Pos = spatial.MoveToward(s.Pos, dest.Pos, s.Speed*dt)
	if spatial.Distance(s.Pos, dest.Pos) > w.cfg.ArrivalRadius {
		return nil
	}
	if err := w.cat.CheckManifest(s.Manifest); err != nil {
		return fmt.Errorf("ship %d delivery: %w", s.ID, err)
	}
	for _, c := range sortedKeys(s.Manifest) {
		if err := dest.Economy.Add(c, s.Manifest[c]); err != nil {
			return fmt.Errorf("ship %d delivery: %w", s.ID, err)
		}
	}
	s.Delivered = true
	w.counters.Delivered++
	w.emit(protocol.Event{
		Kind:        protocol.KindCargoDelivered,
		ShipID:      s.ID,
		Origin:      s.Origin,
		Destination: s.Destination,
		Planet:      s.Destination,
		Manifest:    copyManifest(s.Manifest),
		Units:       protocol.ManifestUnits(s.Manifest),
		Value:       s.ContractValue,
	})
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
