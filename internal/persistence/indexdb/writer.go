package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"blackflag.space/internal/protocol"
)

func (s *Index) loop() {
	ctx := context.Background()

	insertTick := s.upsertQuery("ticks", []string{"tick"}, []string{"tick", "t", "day", "digest", "events"})
	insertEvent := s.upsertQuery("events", []string{"tick", "seq"}, []string{"tick", "seq", "kind", "raw_json"})
	insertRaid := s.upsertQuery("raids", []string{"tick", "raider_id"},
		[]string{"tick", "raider_id", "ship_id", "base", "success", "value", "units", "planet"})
	insertSnapshot := s.upsertQuery("snapshots", []string{"tick"},
		[]string{"tick", "path", "seed", "day", "planets", "bases", "ships", "raiders"})

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 500 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(q string, args ...any) bool {
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()

	for {
		var r req
		var ok bool
		select {
		case r, ok = <-s.ch:
			if !ok {
				commit()
				return
			}
		case <-idle.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		}

		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			if !exec(insertTick, int64(e.Tick), e.T, e.Day, e.Digest, len(e.Events)) {
				continue
			}
			for i, ev := range e.Events {
				raw, _ := json.Marshal(ev)
				if !exec(insertEvent, int64(e.Tick), i, ev.Kind, string(raw)) {
					break
				}
			}
			if tx == nil {
				continue
			}
			for _, rr := range raidRows(e.Events) {
				if !exec(insertRaid, int64(e.Tick), int64(rr.RaiderID), int64(rr.ShipID), rr.Base,
					boolInt(rr.Success), int64(rr.Value), rr.Units, rr.Planet) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.Seed, sn.Day, sn.Planets, sn.Bases, sn.Ships, sn.Raiders)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}
}

// raidRows joins each RAID_RESOLVED with the SUPPLY_DISRUPTION its raider caused in the
// same tick.
func raidRows(events []protocol.Event) []Raid {
	disrupted := map[uint64]protocol.Event{}
	for _, ev := range events {
		if ev.Kind == protocol.KindSupplyDisruption {
			disrupted[ev.RaiderID] = ev
		}
	}
	var out []Raid
	for _, ev := range events {
		if ev.Kind != protocol.KindRaidResolved {
			continue
		}
		r := Raid{
			Tick:     ev.Tick,
			RaiderID: ev.RaiderID,
			ShipID:   ev.ShipID,
			Base:     ev.Base,
			Success:  ev.Success != nil && *ev.Success,
			Value:    ev.Value,
		}
		if d, ok := disrupted[ev.RaiderID]; ok && r.Success {
			r.Units = d.Units
			r.Planet = d.Planet
		}
		out = append(out, r)
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
