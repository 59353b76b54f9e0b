package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/world"
	"blackflag.space/internal/transport/ws"
)

type app struct {
	worldID string
	w       *world.World
	idx     runtimeIndex
	logger  *log.Logger

	stream      *ws.Server
	snapLimiter *ws.IPLimiter
	enableAdmin bool
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.handleMetrics)
	if a.stream != nil {
		mux.HandleFunc("/v1/events", a.stream.Handler())
	}
	if a.enableAdmin {
		// Local-only admin endpoints.
		mux.Handle("/admin/v1/state", loopbackOnly(http.HandlerFunc(a.handleState)))
		mux.Handle("/admin/v1/snapshot", loopbackOnly(a.snapLimiter.Middleware(http.HandlerFunc(a.handleSnapshot))))
		mux.Handle("/admin/v1/price", loopbackOnly(http.HandlerFunc(a.handlePrice)))
		mux.Handle("/admin/v1/blockade", loopbackOnly(http.HandlerFunc(a.handleBlockade)))
		mux.Handle("/admin/v1/raids", loopbackOnly(http.HandlerFunc(a.handleRaids)))
	}
	return mux
}

func (a *app) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m := a.w.Metrics()
	id := a.worldID

	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s{world=%q} %v\n", name, id, v)
	}
	counter := func(name, help string, v int) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
		fmt.Fprintf(rw, "%s{world=%q} %d\n", name, id, v)
	}

	gauge("blackflag_world_tick", "Current world tick.", m.Tick)
	gauge("blackflag_world_day", "Current in-world day.", m.Day)
	gauge("blackflag_world_planets", "Registered planets.", m.Planets)
	gauge("blackflag_world_bases", "Active pirate bases.", m.Bases)
	gauge("blackflag_world_ships", "Cargo ships in flight.", m.Ships)
	gauge("blackflag_world_raiders", "Raiders in space.", m.Raiders)
	gauge("blackflag_world_subscribers", "Connected event stream subscribers.", m.Subscribers)
	gauge("blackflag_world_blockaded_planets", "Planets under blockade.", m.BlockadedPlanets)
	fmt.Fprintf(rw, "# HELP blackflag_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE blackflag_world_step_ms gauge\n")
	fmt.Fprintf(rw, "blackflag_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

	counter("blackflag_cargo_launched_total", "Cargo ships launched.", m.Counters.Launched)
	counter("blackflag_cargo_delivered_total", "Cargo ships delivered.", m.Counters.Delivered)
	counter("blackflag_raids_total", "Raids resolved.", m.Counters.Raids)
	counter("blackflag_raids_won_total", "Raids that seized cargo.", m.Counters.RaidsWon)
	counter("blackflag_stolen_units_total", "Cargo units seized by raiders.", m.Counters.StolenUnits)
	counter("blackflag_diagnostics_total", "Diagnostic events emitted.", m.Counters.Diagnostics)

	names := make([]string, 0, len(m.PlanetStock))
	for name := range m.PlanetStock {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(rw, "# HELP blackflag_planet_stock_units Total stockpile per planet.\n")
	fmt.Fprintf(rw, "# TYPE blackflag_planet_stock_units gauge\n")
	for _, name := range names {
		fmt.Fprintf(rw, "blackflag_planet_stock_units{world=%q,planet=%q} %.3f\n", id, name, m.PlanetStock[name])
	}

	if a.idx != nil {
		st := a.idx.Stats()
		gauge("blackflag_index_queue_depth", "Index writer queue depth.", st.QueueDepth)
		counter("blackflag_index_dropped_ticks_total", "Ticks dropped by a saturated index queue.", int(st.DropTickTotal))
	}
}

func (a *app) handleState(rw http.ResponseWriter, r *http.Request) {
	resp := struct {
		WorldID string             `json:"world_id"`
		Tick    uint64             `json:"tick"`
		Metrics world.WorldMetrics `json:"metrics"`
	}{
		WorldID: a.worldID,
		Tick:    a.w.Tick(),
		Metrics: a.w.Metrics(),
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (a *app) handleSnapshot(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	tick, err := a.w.RequestSnapshot(ctx)
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": tick, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick})
}

// handlePrice quotes the centre of the spread so that reads never advance the generator.
func (a *app) handlePrice(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	commodity := strings.TrimSpace(q.Get("commodity"))
	planet := strings.TrimSpace(q.Get("planet"))
	selling := strings.EqualFold(q.Get("side"), "sell")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	var (
		price int
		qerr  error
	)
	if err := a.w.Do(ctx, func(w *world.World) { price, qerr = w.Quote(commodity, planet, selling) }); err != nil {
		writeError(rw, http.StatusServiceUnavailable, err)
		return
	}
	if qerr != nil {
		writeError(rw, http.StatusBadRequest, qerr)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"commodity": commodity, "planet": planet, "selling": selling, "price": price})
}

func (a *app) handleBlockade(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	planet := strings.TrimSpace(r.URL.Query().Get("planet"))
	on, err := strconv.ParseBool(r.URL.Query().Get("on"))
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.NewCodedError(protocol.ErrBadRequest, "on must be a boolean"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	var berr error
	if err := a.w.Do(ctx, func(w *world.World) { berr = w.SetBlockade(planet, on) }); err != nil {
		writeError(rw, http.StatusServiceUnavailable, err)
		return
	}
	if berr != nil {
		writeError(rw, http.StatusBadRequest, berr)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"planet": planet, "blockaded": on})
}

func (a *app) handleRaids(rw http.ResponseWriter, r *http.Request) {
	if a.idx == nil {
		writeError(rw, http.StatusServiceUnavailable, errors.New("index disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	raids, err := a.idx.RecentRaids(r.Context(), strings.TrimSpace(r.URL.Query().Get("base")), limit)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"raids": raids})
}

func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, err error) {
	writeJSON(rw, status, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            protocol.CodeFor(err),
		Message:         err.Error(),
	})
}
