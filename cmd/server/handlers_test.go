package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blackflag.space/internal/persistence/indexdb"
	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/economy"
	"blackflag.space/internal/sim/spatial"
	"blackflag.space/internal/sim/tuning"
	"blackflag.space/internal/sim/world"
	"blackflag.space/internal/transport/ws"
)

type fakeIndex struct {
	raids    []indexdb.Raid
	lastBase string
	err      error
}

func (f *fakeIndex) WriteTick(world.TickLogEntry) error { return nil }
func (f *fakeIndex) Close() error                       { return nil }
func (f *fakeIndex) UpsertCatalogs(context.Context, *catalogs.Catalog, tuning.Tuning) error {
	return nil
}
func (f *fakeIndex) RecordSnapshot(string, snapshot.SnapshotV1) {}
func (f *fakeIndex) RecentRaids(_ context.Context, base string, limit int) ([]indexdb.Raid, error) {
	f.lastBase = base
	return f.raids, f.err
}
func (f *fakeIndex) Stats() indexdb.Stats { return indexdb.Stats{QueueDepth: 3, QueueCapacity: 16} }

func testApp(t *testing.T, run bool, setup ...func(*world.World)) *app {
	t.Helper()
	seed := int64(7)
	w := world.New(world.Config{
		ID:                           "test",
		TickRateHz:                   200,
		Seed:                         &seed,
		SpyProbability:               -1,
		OpportunisticRaidProbability: -1,
	}, catalogs.Default())
	for _, p := range []*economy.Planet{
		economy.NewPlanet(w.Catalog(), "Ceres", spatial.V(-50, 0, 0), economy.Agricultural, 1_000_000),
		economy.NewPlanet(w.Catalog(), "Vesta", spatial.V(50, 0, 0), economy.Mining, 500_000),
	} {
		if err := w.AddPlanet(p); err != nil {
			t.Fatalf("planet: %v", err)
		}
	}
	w.StepOnce(0.1)
	for _, fn := range setup {
		fn(w)
	}
	if run {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = w.Run(ctx)
			close(done)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}
	logger := log.New(io.Discard, "", 0)
	return &app{
		worldID:     "test",
		w:           w,
		logger:      logger,
		stream:      ws.NewServer(w, logger, nil),
		snapLimiter: ws.NewIPLimiter(100, 10),
		enableAdmin: true,
	}
}

func serve(a *app, method, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	a.routes().ServeHTTP(rr, req)
	return rr
}

const local = "127.0.0.1:40000"

func TestHealthz(t *testing.T) {
	a := testApp(t, false)
	rr := serve(a, http.MethodGet, "/healthz", "192.0.2.1:1234")
	if rr.Code != 200 || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestMetricsExposition(t *testing.T) {
	a := testApp(t, false)
	a.idx = &fakeIndex{}
	rr := serve(a, http.MethodGet, "/metrics", "192.0.2.1:1234")
	body := rr.Body.String()
	for _, want := range []string{
		`blackflag_world_tick{world="test"} 1`,
		`blackflag_world_planets{world="test"} 2`,
		`blackflag_planet_stock_units{world="test",planet="Ceres"}`,
		`blackflag_index_queue_depth{world="test"} 3`,
		"# TYPE blackflag_raids_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, `planet="Ceres"`) > strings.Index(body, `planet="Vesta"`) {
		t.Fatalf("planet series not sorted")
	}
}

func TestAdminRequiresLoopback(t *testing.T) {
	a := testApp(t, false)
	if rr := serve(a, http.MethodGet, "/admin/v1/state", "192.0.2.1:1234"); rr.Code != http.StatusForbidden {
		t.Fatalf("remote admin: want 403, got %d", rr.Code)
	}
	rr := serve(a, http.MethodGet, "/admin/v1/state", local)
	if rr.Code != 200 {
		t.Fatalf("local admin: %d", rr.Code)
	}
	var got struct {
		WorldID string `json:"world_id"`
		Tick    uint64 `json:"tick"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.WorldID != "test" || got.Tick != 1 {
		t.Fatalf("state: %+v", got)
	}
}

func TestAdminDisabled(t *testing.T) {
	a := testApp(t, false)
	a.enableAdmin = false
	if rr := serve(a, http.MethodGet, "/admin/v1/state", local); rr.Code != http.StatusNotFound {
		t.Fatalf("disabled admin: want 404, got %d", rr.Code)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:9000":   true,
		"10.0.0.1:80":  false,
		"garbage":      false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}

func TestPriceQuote(t *testing.T) {
	a := testApp(t, true)
	rr := serve(a, http.MethodGet, "/admin/v1/price?commodity=food&planet=Ceres&side=buy", local)
	if rr.Code != 200 {
		t.Fatalf("price: %d %s", rr.Code, rr.Body.String())
	}
	var got struct {
		Price int `json:"price"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil || got.Price <= 0 {
		t.Fatalf("price body: %s err=%v", rr.Body.String(), err)
	}

	cases := map[string]string{
		"/admin/v1/price?commodity=food&planet=Nowhere": protocol.ErrUnknownPlanet,
		"/admin/v1/price?commodity=spice&planet=Ceres":  protocol.ErrUnknownCommodity,
	}
	for target, code := range cases {
		rr := serve(a, http.MethodGet, target, local)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d", target, rr.Code)
		}
		var em protocol.ErrorMsg
		if err := json.Unmarshal(rr.Body.Bytes(), &em); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if em.Code != code {
			t.Fatalf("%s: code=%s want %s", target, em.Code, code)
		}
	}
}

func TestBlockadeToggle(t *testing.T) {
	a := testApp(t, true)
	if rr := serve(a, http.MethodGet, "/admin/v1/blockade?planet=Vesta&on=true", local); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET blockade: %d", rr.Code)
	}
	if rr := serve(a, http.MethodPost, "/admin/v1/blockade?planet=Vesta&on=maybe", local); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad flag: %d", rr.Code)
	}
	if rr := serve(a, http.MethodPost, "/admin/v1/blockade?planet=Vesta&on=true", local); rr.Code != 200 {
		t.Fatalf("blockade: %d %s", rr.Code, rr.Body.String())
	}
	deadline := time.Now().Add(2 * time.Second)
	for a.w.Metrics().BlockadedPlanets != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("blockade not reflected in metrics")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	sink := make(chan snapshot.SnapshotV1, 1)
	a := testApp(t, true, func(w *world.World) { w.SetSnapshotSink(sink) })

	rr := serve(a, http.MethodPost, "/admin/v1/snapshot", local)
	if rr.Code != 200 {
		t.Fatalf("snapshot: %d %s", rr.Code, rr.Body.String())
	}
	select {
	case snap := <-sink:
		if snap.Header.WorldID != "test" {
			t.Fatalf("snapshot world id: %q", snap.Header.WorldID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot delivered")
	}
}

func TestRaidsEndpoint(t *testing.T) {
	a := testApp(t, false)
	if rr := serve(a, http.MethodGet, "/admin/v1/raids", local); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("no index: %d", rr.Code)
	}

	idx := &fakeIndex{raids: []indexdb.Raid{{Tick: 9, Base: "Tortuga", Success: true, Value: 1500, Units: 150}}}
	a.idx = idx
	rr := serve(a, http.MethodGet, "/admin/v1/raids?base=Tortuga&limit=5", local)
	if rr.Code != 200 || idx.lastBase != "Tortuga" {
		t.Fatalf("raids: %d base=%q", rr.Code, idx.lastBase)
	}
	var got struct {
		Raids []indexdb.Raid `json:"raids"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil || len(got.Raids) != 1 || got.Raids[0].Value != 1500 {
		t.Fatalf("raids body: %s", rr.Body.String())
	}

	idx.err = errors.New("boom")
	if rr := serve(a, http.MethodGet, "/admin/v1/raids", local); rr.Code != http.StatusInternalServerError {
		t.Fatalf("index error: %d", rr.Code)
	}
}
