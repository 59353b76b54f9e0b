package world

import (
	"encoding"
	"errors"
	"fmt"

	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/sim/clock"
	"blackflag.space/internal/sim/economy"
	"blackflag.space/internal/sim/market"
	"blackflag.space/internal/sim/spatial"
)

// ImportSnapshot replaces the world state with s. The world must use the catalog the
// snapshot was taken with. Registered sinks and host hooks are kept. On error the world
// is left as it was.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}
	if s.CatalogDigest != "" && w.cat.Digest != "" && s.CatalogDigest != w.cat.Digest {
		return fmt.Errorf("catalog digest mismatch: snapshot %s, world %s", s.CatalogDigest, w.cat.Digest)
	}
	var restorer encoding.BinaryUnmarshaler
	if len(s.RNG) > 0 {
		u, ok := w.rng.(encoding.BinaryUnmarshaler)
		if !ok {
			return errors.New("snapshot carries generator state but the world generator cannot restore it")
		}
		restorer = u
	}

	// Everything is staged on a scratch world and copied over once it all checks out.
	next := &World{
		cfg:          w.cfg,
		cat:          w.cat,
		planetByName: map[string]*economy.Planet{},
		baseByName:   map[string]*PirateBase{},
	}
	if s.TickRate > 0 {
		next.cfg.TickRateHz = s.TickRate
	}
	if s.DaySeconds > 0 {
		next.cfg.DaySeconds = s.DaySeconds
	}
	if s.Seed != 0 {
		seed := s.Seed
		next.cfg.Seed = &seed
	}
	if s.Header.WorldID != "" {
		next.cfg.ID = s.Header.WorldID
	}
	next.cfg.Reputation = s.Reputation

	next.market = market.New(w.cat, s.Reputation)
	for _, t := range s.Trends {
		if err := next.market.SetTrend(t.Commodity, market.Trend{Demand: t.Demand, Supply: t.Supply, Direction: market.Direction(t.Direction)}); err != nil {
			return fmt.Errorf("trend: %w", err)
		}
	}

	for _, ps := range s.Planets {
		p := economy.NewPlanet(w.cat, ps.Name, spatial.FromArray(ps.Pos), economy.ParseType(ps.Type), ps.Population)
		if err := p.Economy.Restore(economy.State{
			Stock:        ps.Stock,
			Production:   ps.Production,
			Consumption:  ps.Consumption,
			TradeVolume:  ps.TradeVolume,
			Blockaded:    ps.Blockaded,
			BlockadeDays: ps.BlockadeDays,
		}); err != nil {
			return fmt.Errorf("planet %s: %w", ps.Name, err)
		}
		if err := next.AddPlanet(p); err != nil {
			return err
		}
	}

	for _, bs := range s.Bases {
		b := &PirateBase{
			Name:             bs.Name,
			Pos:              spatial.FromArray(bs.Pos),
			Stock:            copyFloats(bs.Stock),
			DailyConsumption: copyFloats(bs.DailyConsumption),
			LastRaidAt:       bs.LastRaidAt,
			RaidInterval:     bs.RaidInterval,
			attempted:        bs.Attempted,
		}
		for _, in := range bs.Intel {
			b.Intel = append(b.Intel, intelFromV1(in))
		}
		if err := next.AddBase(b); err != nil {
			return err
		}
	}

	for _, rs := range s.Routes {
		if err := next.AddRoute(Route{Origin: rs.Origin, Destination: rs.Destination, Manifest: rs.Manifest, ContractValue: rs.ContractValue}); err != nil {
			return err
		}
	}

	for _, ss := range s.Ships {
		next.ships = append(next.ships, &CargoShip{
			ID:            ss.ID,
			Origin:        ss.Origin,
			Destination:   ss.Destination,
			Manifest:      copyManifest(ss.Manifest),
			Pos:           spatial.FromArray(ss.Pos),
			Speed:         ss.Speed,
			ContractValue: ss.ContractValue,
		})
	}

	for _, rs := range s.Raiders {
		st := RaiderState(rs.State)
		if !st.valid() {
			return fmt.Errorf("raider %d: unknown state %q", rs.ID, rs.State)
		}
		r := &Raider{
			ID:        rs.ID,
			Base:      rs.Base,
			Pos:       spatial.FromArray(rs.Pos),
			Speed:     rs.Speed,
			Weapons:   rs.Weapons,
			Crew:      rs.Crew,
			RaidRange: rs.RaidRange,
			State:     st,
			Stolen:    copyManifest(rs.Stolen),
			Target:    rs.Target,
			HuntTime:  rs.HuntTime,
		}
		if rs.Intel != nil {
			in := intelFromV1(*rs.Intel)
			r.Intel = &in
		}
		next.raiders = append(next.raiders, r)
	}

	// The generator is the only live state touched before the commit. A failed
	// UnmarshalBinary leaves it unchanged.
	if restorer != nil {
		if err := restorer.UnmarshalBinary(s.RNG); err != nil {
			return fmt.Errorf("restore generator: %w", err)
		}
	}

	w.cfg = next.cfg
	w.clock = clock.New(w.cfg.DaySeconds)
	w.clock.OnDay(w.onDay)
	w.clock.Restore(s.Now, s.DT, s.Day, s.DayAcc)
	w.market = next.market
	w.planets, w.planetByName = next.planets, next.planetByName
	w.bases, w.baseByName = next.bases, next.baseByName
	w.routes = next.routes
	w.ships = next.ships
	w.raiders = next.raiders
	w.nextShipID = max(s.NextShipID, 1)
	w.nextRaiderID = max(s.NextRaiderID, 1)
	w.spawnAcc = s.SpawnAcc
	w.statusAcc = s.StatusAcc
	w.counters = Counters(s.Counters)
	w.stepEvents = nil
	w.tick.Store(s.Header.Tick)
	w.publishMetrics(0)
	return nil
}

func intelFromV1(in snapshot.IntelV1) CargoIntel {
	return CargoIntel{
		ShipID:         in.ShipID,
		Origin:         in.Origin,
		Destination:    in.Destination,
		Manifest:       copyManifest(in.Manifest),
		EstimatedValue: in.EstimatedValue,
		Timestamp:      in.Timestamp,
		Claimed:        in.Claimed,
	}
}
