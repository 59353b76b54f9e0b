package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Raid struct {
	Tick     uint64 `json:"tick"`
	RaiderID uint64 `json:"raider_id"`
	ShipID   uint64 `json:"ship_id"`
	Base     string `json:"base"`
	Success  bool   `json:"success"`
	Value    int    `json:"value"`
	Units    int    `json:"units,omitempty"`
	Planet   string `json:"planet,omitempty"`
}

// RecentRaids returns up to limit raids, newest first, optionally for one base.
func (s *Index) RecentRaids(ctx context.Context, base string, limit int) ([]Raid, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := "SELECT tick, raider_id, ship_id, base, success, value, units, planet FROM raids"
	args := []any{}
	if base != "" {
		q += " WHERE base = " + s.bind(1)
		args = append(args, base)
	}
	q += fmt.Sprintf(" ORDER BY tick DESC, raider_id DESC LIMIT %s", s.bind(len(args)+1))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Raid
	for rows.Next() {
		var (
			r       Raid
			tick    int64
			raider  int64
			ship    int64
			success int
			value   int64
		)
		if err := rows.Scan(&tick, &raider, &ship, &r.Base, &success, &value, &r.Units, &r.Planet); err != nil {
			return nil, err
		}
		r.Tick, r.RaiderID, r.ShipID = uint64(tick), uint64(raider), uint64(ship)
		r.Success = success != 0
		r.Value = int(value)
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventCounts tallies indexed events by kind.
func (s *Index) EventCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM events GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// LastTick is the highest indexed tick, or ok=false when nothing is indexed yet.
func (s *Index) LastTick(ctx context.Context) (tick uint64, digest string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, "SELECT tick, digest FROM ticks ORDER BY tick DESC LIMIT 1")
	var t int64
	switch err := row.Scan(&t, &digest); {
	case err == nil:
		return uint64(t), digest, true, nil
	case isNoRows(err):
		return 0, "", false, nil
	default:
		return 0, "", false, err
	}
}

// Snapshots lists recorded snapshots, newest first.
func (s *Index) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT tick, path, seed, day, planets, bases, ships, raiders FROM snapshots ORDER BY tick DESC LIMIT "+s.bind(1), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var tick int64
		if err := rows.Scan(&tick, &r.Path, &r.Seed, &r.Day, &r.Planets, &r.Bases, &r.Ships, &r.Raiders); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
