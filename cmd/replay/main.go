package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "blackflag.space/internal/persistence/log"
	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/tuning"
	"blackflag.space/internal/sim/world"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst or .snap.lz4")
		ticksDir   = flag.String("ticks", "", "tick log dir containing ticks-*.jsonl.zst (default: <snapshot dir>/../ticks)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d world=%s tick=%d day=%d seed=%d planets=%d bases=%d ships=%d raiders=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Header.Day, snap.Seed,
		len(snap.Planets), len(snap.Bases), len(snap.Ships), len(snap.Raiders))

	cat, err := catalogs.Load(filepath.Join(*configDir, "commodities.json"))
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load catalog:", err)
			os.Exit(1)
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
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	seed := snap.Seed
	w := world.New(tune.WorldConfig(snap.Header.WorldID, &seed), cat)
	if err := w.ImportSnapshot(snap); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}

	dir := strings.TrimSpace(*ticksDir)
	if dir == "" {
		dir = persistlog.TickDir(filepath.Dir(filepath.Dir(*snapPath)))
	}

	startTick := w.Tick()
	verifyFrom := *fromTick
	if verifyFrom == 0 {
		verifyFrom = startTick
	}
	checked, err := replay(w, dir, startTick, verifyFrom, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if checked == 0 {
		fmt.Fprintln(os.Stderr, "no ticks at or after", verifyFrom, "in", dir)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (from snapshot tick=%d)\n", checked, snap.Header.Tick)
}

// replay steps w through the logged ticks that follow its current tick and compares each
// resulting digest with the recorded one.
func replay(w *world.World, dir string, startTick, verifyFrom, toTick uint64) (uint64, error) {
	var checked uint64
	err := persistlog.ReadTicks(dir, func(entry world.TickLogEntry) error {
		if entry.Tick < startTick {
			return nil
		}
		if toTick != 0 && entry.Tick > toTick {
			return persistlog.ErrStop
		}
		if entry.Tick != w.Tick() {
			return fmt.Errorf("tick mismatch: want=%d got=%d", w.Tick(), entry.Tick)
		}
		tick, got := w.StepOnce(entry.DT)
		if tick != entry.Tick {
			return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
		}
		if tick >= verifyFrom {
			checked++
			if got != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, got, entry.Digest)
			}
		}
		return nil
	})
	if errors.Is(err, persistlog.ErrStop) {
		err = nil
	}
	return checked, err
}
