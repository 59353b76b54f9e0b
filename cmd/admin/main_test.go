package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"blackflag.space/internal/persistence/indexdb"
	"blackflag.space/internal/persistence/snapshot"
)

func TestListSnapshotsOrdersByTick(t *testing.T) {
	dir := t.TempDir()
	for _, s := range []struct {
		tick  uint64
		codec snapshot.Codec
	}{{300, snapshot.CodecZstd}, {100, snapshot.CodecLZ4}, {200, snapshot.CodecZstd}} {
		snap := snapshot.SnapshotV1{Header: snapshot.Header{Version: snapshot.Version, WorldID: "w", Tick: s.tick}}
		if err := snapshot.WriteSnapshot(filepath.Join(dir, snapshot.FileName(s.tick, s.codec)), snap); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got, err := listSnapshots(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].Tick != 100 || got[1].Tick != 200 || got[2].Tick != 300 {
		t.Fatalf("order: %+v", got)
	}
	if !strings.HasSuffix(got[0].Path, ".snap.lz4") || got[0].WorldID != "w" {
		t.Fatalf("first: %+v", got[0])
	}
}

func TestAdminURL(t *testing.T) {
	if got := adminURL(" http://h:1/ ", "state", nil); got != "http://h:1/admin/v1/state" {
		t.Fatalf("state url: %q", got)
	}
	got := adminURL("http://h", "price", map[string][]string{"planet": {"Ceres"}, "commodity": {"food"}})
	if got != "http://h/admin/v1/price?commodity=food&planet=Ceres" {
		t.Fatalf("price url: %q", got)
	}
}

func TestRunQueryUnknown(t *testing.T) {
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	if err := runQuery(context.Background(), idx, "agents", "", 10); err == nil || !strings.HasPrefix(err.Error(), "unknown query") {
		t.Fatalf("want unknown query, got %v", err)
	}
	if err := runQuery(context.Background(), idx, "last", "", 10); err != nil {
		t.Fatalf("last on empty index: %v", err)
	}
}
