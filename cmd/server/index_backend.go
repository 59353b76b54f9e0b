package main

import (
	"context"

	"blackflag.space/internal/persistence/indexdb"
	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/tuning"
	"blackflag.space/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	Close() error
	UpsertCatalogs(ctx context.Context, cat *catalogs.Catalog, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	RecentRaids(ctx context.Context, base string, limit int) ([]indexdb.Raid, error)
	Stats() indexdb.Stats
}

// openRuntimeIndex returns nil when BF_INDEX_DIALECT turns indexing off.
func openRuntimeIndex(worldDir string) (runtimeIndex, error) {
	idx, err := indexdb.OpenFromEnv(worldDir)
	if err != nil || idx == nil {
		return nil, err
	}
	return idx, nil
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}
