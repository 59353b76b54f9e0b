package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/galaxy"
	"blackflag.space/internal/sim/tuning"
	"blackflag.space/internal/sim/world"
)

func main() {
	var (
		seconds    = flag.Float64("seconds", 600, "in-world seconds to simulate")
		dt         = flag.Float64("dt", 0.1, "step size in in-world seconds")
		realtime   = flag.Bool("realtime", false, "pace steps to wall-clock time")
		seed       = flag.Int64("seed", 1337, "world seed")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		galaxyPath = flag.String("galaxy", "", "path to galaxy.yaml (default: built-in demo sector)")
		kinds      = flag.String("kinds", "", "comma-separated event kinds to print (default: all)")
		savePath   = flag.String("save", "", "write a snapshot here at the end (.snap.zst or .snap.lz4)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[headless] ", 0)

	cat, err := catalogs.Load(filepath.Join(*configDir, "commodities.json"))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load catalog: %v", err)
		}
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
		tune = tuning.Defaults()
	}
	gal, err := galaxy.Load(*galaxyPath)
	if err != nil {
		logger.Fatalf("load galaxy: %v", err)
	}

	filter, err := parseKinds(*kinds)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	w := world.New(tune.WorldConfig("headless", seed), cat)
	if err := gal.Apply(w); err != nil {
		logger.Fatalf("galaxy: %v", err)
	}
	w.AddSink(world.SinkFunc(func(ev protocol.Event) {
		if filter == nil || filter[ev.Kind] {
			logger.Print(ev.String())
		}
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	steps := run(ctx, w, *seconds, *dt, *realtime)
	c := w.Counters()
	logger.Printf("done: steps=%d t=%.1f day=%d launched=%d delivered=%d raids=%d won=%d stolen=%d",
		steps, w.Clock().Now(), w.Clock().Day(), c.Launched, c.Delivered, c.Raids, c.RaidsWon, c.StolenUnits)

	if p := strings.TrimSpace(*savePath); p != "" {
		if err := snapshot.WriteSnapshot(p, w.ExportSnapshot()); err != nil {
			logger.Fatalf("save snapshot: %v", err)
		}
		logger.Printf("saved snapshot %s tick=%d", p, w.Tick())
	}
}

// run steps w for the given in-world duration and returns the number of steps taken.
func run(ctx context.Context, w *world.World, seconds, dt float64, realtime bool) int {
	if dt <= 0 {
		return 0
	}
	n := int(seconds/dt + 0.5)
	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}
	for i := 0; i < n; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return i
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return i
		}
		w.Step(dt)
	}
	return n
}

func parseKinds(s string) (map[string]bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := map[string]bool{}
	for _, k := range strings.Split(s, ",") {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if !protocol.IsKnownKind(k) {
			return nil, protocol.NewCodedError(protocol.ErrBadRequest, "unknown event kind "+k)
		}
		out[k] = true
	}
	return out, nil
}
