package world

import (
	"encoding"

	"blackflag.space/internal/persistence/snapshot"
)

// ExportSnapshot captures the full world state. Header.Tick is the next tick to run.
// It must be called from the stepping goroutine.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
			Day:     w.clock.Day(),
		},
		Seed:          w.Seed(),
		TickRate:      w.cfg.TickRateHz,
		DaySeconds:    w.clock.DaySeconds(),
		CatalogDigest: w.cat.Digest,
		Reputation:    w.market.Reputation(),

		Now:    w.clock.Now(),
		DT:     w.clock.DT(),
		Day:    w.clock.Day(),
		DayAcc: w.clock.DayProgress(),

		NextShipID:   w.nextShipID,
		NextRaiderID: w.nextRaiderID,
		SpawnAcc:     w.spawnAcc,
		StatusAcc:    w.statusAcc,
		Counters:     snapshot.CountersV1(w.counters),
	}
	if m, ok := w.rng.(encoding.BinaryMarshaler); ok {
		if b, err := m.MarshalBinary(); err == nil {
			s.RNG = b
		}
	}

	for _, p := range w.planets {
		st := p.Economy.State()
		s.Planets = append(s.Planets, snapshot.PlanetV1{
			Name:         p.Name,
			Pos:          p.Pos.Array(),
			Type:         string(p.Type),
			Population:   p.Population,
			Stock:        st.Stock,
			Production:   st.Production,
			Consumption:  st.Consumption,
			TradeVolume:  st.TradeVolume,
			Blockaded:    st.Blockaded,
			BlockadeDays: st.BlockadeDays,
		})
	}

	trends := w.market.Trends()
	for _, c := range sortedKeys(trends) {
		t := trends[c]
		s.Trends = append(s.Trends, snapshot.TrendV1{Commodity: c, Demand: t.Demand, Supply: t.Supply, Direction: string(t.Direction)})
	}

	for _, r := range w.routes {
		s.Routes = append(s.Routes, snapshot.RouteV1{
			Origin:        r.Origin,
			Destination:   r.Destination,
			Manifest:      copyManifest(r.Manifest),
			ContractValue: r.ContractValue,
		})
	}

	for _, b := range w.bases {
		bs := snapshot.BaseV1{
			Name:             b.Name,
			Pos:              b.Pos.Array(),
			Stock:            copyFloats(b.Stock),
			DailyConsumption: copyFloats(b.DailyConsumption),
			LastRaidAt:       b.LastRaidAt,
			Attempted:        b.attempted,
			RaidInterval:     b.RaidInterval,
		}
		for _, in := range b.Intel {
			bs.Intel = append(bs.Intel, intelToV1(in))
		}
		s.Bases = append(s.Bases, bs)
	}

	for _, sh := range w.ships {
		if !sh.live() {
			continue
		}
		s.Ships = append(s.Ships, snapshot.ShipV1{
			ID:            sh.ID,
			Origin:        sh.Origin,
			Destination:   sh.Destination,
			Manifest:      copyManifest(sh.Manifest),
			Pos:           sh.Pos.Array(),
			Speed:         sh.Speed,
			ContractValue: sh.ContractValue,
		})
	}

	for _, r := range w.raiders {
		rs := snapshot.RaiderV1{
			ID:        r.ID,
			Base:      r.Base,
			Pos:       r.Pos.Array(),
			Speed:     r.Speed,
			Weapons:   r.Weapons,
			Crew:      r.Crew,
			RaidRange: r.RaidRange,
			State:     string(r.State),
			Stolen:    copyManifest(r.Stolen),
			Target:    r.Target,
			HuntTime:  r.HuntTime,
		}
		if r.Intel != nil {
			in := intelToV1(*r.Intel)
			rs.Intel = &in
		}
		s.Raiders = append(s.Raiders, rs)
	}
	return s
}

func intelToV1(in CargoIntel) snapshot.IntelV1 {
	return snapshot.IntelV1{
		ShipID:         in.ShipID,
		Origin:         in.Origin,
		Destination:    in.Destination,
		Manifest:       copyManifest(in.Manifest),
		EstimatedValue: in.EstimatedValue,
		Timestamp:      in.Timestamp,
		Claimed:        in.Claimed,
	}
}

func copyFloats(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
