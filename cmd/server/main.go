package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "blackflag.space/internal/persistence/log"
	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/galaxy"
	"blackflag.space/internal/sim/tuning"
	"blackflag.space/internal/sim/world"
	"blackflag.space/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "sector_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		galaxyPath = flag.String("galaxy", "", "path to galaxy.yaml (default: <configs>/galaxy.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the read-model index")
		snapCodec  = flag.String("snapshot_codec", "zstd", "periodic snapshot codec: zstd or lz4")
		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := catalogs.Load(filepath.Join(*configDir, "commodities.json"))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load catalog: %v", err)
		}
		logger.Printf("commodities.json not found; using builtin catalog")
		cat = catalogs.Default()
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)
	snapDir := filepath.Join(worldDir, "snapshots")

	var idx runtimeIndex
	if !*disableDB {
		idx, err = openRuntimeIndex(worldDir)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(context.Background(), cat, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		if p, _, err := snapshot.Latest(snapDir); err != nil {
			logger.Printf("scan snapshots: %v", err)
		} else {
			snapshotToLoad = p
		}
	}

	w := world.New(tune.WorldConfig(*worldID, seed), cat)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.Tick())
	} else {
		gp := strings.TrimSpace(*galaxyPath)
		if gp == "" {
			gp = filepath.Join(*configDir, "galaxy.yaml")
		}
		gal, err := galaxy.Load(gp)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Fatalf("load galaxy: %v", err)
			}
			logger.Printf("galaxy not found (%s); using demo sector", gp)
			gal, _ = galaxy.Load("")
		}
		if err := gal.Apply(w); err != nil {
			logger.Fatalf("galaxy: %v", err)
		}
	}

	w.AddSink(world.SinkFunc(func(ev protocol.Event) {
		if ev.Kind == protocol.KindDiagnostic {
			logger.Printf("diagnostic tick=%d entity=%s: %s", ev.Tick, ev.Entity, ev.Message)
		}
	}))

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})

	ctx, cancel := signalContext()
	defer cancel()

	codec := snapshot.CodecZstd
	if strings.EqualFold(strings.TrimSpace(*snapCodec), string(snapshot.CodecLZ4)) {
		codec = snapshot.CodecLZ4
	}
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(snapDir, snapshot.FileName(snap.Header.Tick, codec))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	a := &app{
		worldID:     *worldID,
		w:           w,
		idx:         idx,
		logger:      logger,
		stream:      ws.NewServer(w, logger, ws.NewIPLimiter(tune.RateLimits.EventStreamPerSecond, tune.RateLimits.EventStreamBurst)),
		snapLimiter: ws.NewIPLimiter(tune.RateLimits.SnapshotPerMinute/60, 1),
		enableAdmin: envBool("BF_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
	}
	if !a.enableAdmin {
		logger.Printf("admin endpoints disabled (BF_ENABLE_ADMIN_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s tick=%d", *addr, *worldID, w.Tick())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	logger.Printf("shutdown")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
