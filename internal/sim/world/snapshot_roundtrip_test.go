package world

import (
	"path/filepath"
	"reflect"
	"testing"

	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/sim/catalogs"
)

func seededDemo(t *testing.T, seed int64) *World {
	t.Helper()
	cfg := Config{Seed: &seed, DaySeconds: 60}
	w := New(cfg, catalogs.Default())
	buildDemo(t, w)
	return w
}

func TestSnapshotRoundTrip_IdenticalTrace(t *testing.T) {
	a := seededDemo(t, 42)
	stepFor(a, 60, 0.1)
	if a.Counters().Launched == 0 {
		t.Fatalf("demo produced no traffic")
	}

	path := filepath.Join(t.TempDir(), snapshot.FileName(a.Tick(), snapshot.CodecZstd))
	if err := snapshot.WriteSnapshot(path, a.ExportSnapshot()); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// A different seed proves the generator state comes from the snapshot.
	b := seededDemo(t, 7)
	if err := b.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if b.Tick() != a.Tick() {
		t.Fatalf("tick a=%d b=%d", a.Tick(), b.Tick())
	}
	if da, db := a.stateDigest(a.Tick()), b.stateDigest(b.Tick()); da != db {
		t.Fatalf("digest after import: %s vs %s", da, db)
	}

	sawRaid := false
	for i := 0; i < 1000; i++ {
		ea := a.Step(0.1)
		eb := b.Step(0.1)
		if !reflect.DeepEqual(ea, eb) {
			t.Fatalf("tick %d: traces diverge:\n a=%+v\n b=%+v", a.Tick()-1, ea, eb)
		}
		if len(eventsOf(ea, "RAID_RESOLVED")) > 0 {
			sawRaid = true
		}
		if da, db := a.stateDigest(a.Tick()-1), b.stateDigest(b.Tick()-1); da != db {
			t.Fatalf("tick %d: digests diverge", a.Tick()-1)
		}
	}
	if !sawRaid {
		t.Fatalf("trace exercised no raids")
	}
}

func TestImportSnapshot_Rejects(t *testing.T) {
	a := seededDemo(t, 1)
	stepFor(a, 5, 0.1)

	bad := a.ExportSnapshot()
	bad.CatalogDigest = "not-the-catalog"
	if err := seededDemo(t, 1).ImportSnapshot(bad); err == nil {
		t.Fatalf("expected catalog digest mismatch")
	}

	bad = a.ExportSnapshot()
	bad.Header.Version = 2
	if err := seededDemo(t, 1).ImportSnapshot(bad); err == nil {
		t.Fatalf("expected version error")
	}

	bad = a.ExportSnapshot()
	if len(bad.Raiders) == 0 {
		t.Fatalf("demo launched no raider")
	}
	bad.Raiders[0].State = "SUNK"
	if err := seededDemo(t, 1).ImportSnapshot(bad); err == nil {
		t.Fatalf("expected unknown raider state error")
	}

	w := New(quietConfig(), catalogs.Default(), WithRand(constRand(0.5)))
	if err := w.ImportSnapshot(a.ExportSnapshot()); err == nil {
		t.Fatalf("expected generator restore error")
	}
}

func TestImportSnapshot_FailureLeavesWorldUntouched(t *testing.T) {
	a := seededDemo(t, 1)
	stepFor(a, 30, 0.1)

	corrupt := map[string]func(*snapshot.SnapshotV1){
		"raider state": func(s *snapshot.SnapshotV1) {
			s.Raiders = append(s.Raiders, snapshot.RaiderV1{ID: 99, Base: "Tortuga", State: "SUNK"})
		},
		"generator state": func(s *snapshot.SnapshotV1) { s.RNG = []byte{1, 2, 3} },
		"route planet": func(s *snapshot.SnapshotV1) {
			s.Routes = append(s.Routes, snapshot.RouteV1{Origin: "Nowhere", Destination: "Ceres", Manifest: map[string]int{"food": 1}})
		},
	}
	for name, mutate := range corrupt {
		b := seededDemo(t, 9)
		stepFor(b, 10, 0.1)
		before := b.ExportSnapshot()
		digest := b.stateDigest(b.Tick())

		bad := a.ExportSnapshot()
		mutate(&bad)
		if err := b.ImportSnapshot(bad); err == nil {
			t.Fatalf("%s: expected import error", name)
		}
		if got := b.stateDigest(b.Tick()); got != digest {
			t.Fatalf("%s: digest changed after failed import", name)
		}
		if after := b.ExportSnapshot(); !reflect.DeepEqual(before, after) {
			t.Fatalf("%s: world changed after failed import:\n before=%+v\n after=%+v", name, before.Header, after.Header)
		}
	}
}

func TestStepOnce_DigestMatchesTickLog(t *testing.T) {
	a := seededDemo(t, 5)
	var log []TickLogEntry
	a.SetTickLogger(tickLogFunc(func(e TickLogEntry) error {
		log = append(log, e)
		return nil
	}))
	start := a.ExportSnapshot()
	for i := 0; i < 300; i++ {
		a.Step(0.1)
	}

	b := seededDemo(t, 5)
	if err := b.ImportSnapshot(start); err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, e := range log {
		tick, digest := b.StepOnce(e.DT)
		if tick != e.Tick || digest != e.Digest {
			t.Fatalf("replay tick %d digest %s, log tick %d digest %s", tick, digest, e.Tick, e.Digest)
		}
	}
}

type tickLogFunc func(TickLogEntry) error

func (f tickLogFunc) WriteTick(e TickLogEntry) error { return f(e) }
