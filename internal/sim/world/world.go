package world

import (
	"fmt"
	"sync/atomic"

	"blackflag.space/internal/persistence/snapshot"
	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/clock"
	"blackflag.space/internal/sim/economy"
	"blackflag.space/internal/sim/market"
	"blackflag.space/internal/sim/rng"
	"blackflag.space/internal/sim/spatial"
)

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the goroutine calling Step (or the Run loop).
type World struct {
	cfg Config
	cat *catalogs.Catalog

	clock  *clock.Clock
	rng    rng.Rand
	market *market.Market

	tick    atomic.Uint64
	metrics atomic.Value

	planets      []*economy.Planet
	planetByName map[string]*economy.Planet
	bases        []*PirateBase
	baseByName   map[string]*PirateBase
	routes       []Route

	// Arenas in creation order.
	ships   []*CargoShip
	raiders []*Raider

	nextShipID   uint64
	nextRaiderID uint64
	spawnAcc     float64
	statusAcc    float64
	counters     Counters

	stepEvents []protocol.Event
	sinks      []EventSink

	// Optional host hooks (may be nil).
	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1

	// Run loop plumbing.
	stop     chan struct{}
	stopped  atomic.Bool
	reqs     chan worldReq
	snapReqs chan snapshotReq
	subJoin  chan subscribeReq
	subLeave chan uint64
	subs     map[uint64]*subscriber
	nextSub  uint64
}

type Option func(*World)

// WithRand injects the random source. It overrides Config.Seed.
func WithRand(r rng.Rand) Option {
	return func(w *World) { w.rng = r }
}

// WithSink registers an event sink.
func WithSink(s EventSink) Option {
	return func(w *World) {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
}

func New(cfg Config, cat *catalogs.Catalog, opts ...Option) *World {
	cfg.applyDefaults()
	if cat == nil {
		cat = catalogs.Default()
	}
	w := &World{
		cfg:          cfg,
		cat:          cat,
		clock:        clock.New(cfg.DaySeconds),
		market:       market.New(cat, cfg.Reputation),
		planetByName: map[string]*economy.Planet{},
		baseByName:   map[string]*PirateBase{},
		nextShipID:   1,
		nextRaiderID: 1,

		stop:     make(chan struct{}),
		reqs:     make(chan worldReq, 64),
		snapReqs: make(chan snapshotReq, 8),
		subJoin:  make(chan subscribeReq, 16),
		subLeave: make(chan uint64, 16),
		subs:     map[uint64]*subscriber{},
	}
	for _, o := range opts {
		o(w)
	}
	if w.rng == nil {
		if cfg.Seed != nil {
			w.rng = rng.New(*cfg.Seed)
		} else {
			w.rng = rng.NewUnseeded()
		}
	}
	w.clock.OnDay(w.onDay)
	w.publishMetrics(0)
	return w
}

func (w *World) Config() Config                     { return w.cfg }
func (w *World) Catalog() *catalogs.Catalog         { return w.cat }
func (w *World) Market() *market.Market             { return w.market }
func (w *World) Clock() *clock.Clock                { return w.clock }
func (w *World) Rand() rng.Rand                     { return w.rng }
func (w *World) Tick() uint64                       { return w.tick.Load() }
func (w *World) Counters() Counters                 { return w.counters }
func (w *World) Routes() []Route                    { return append([]Route(nil), w.routes...) }
func (w *World) Planets() []*economy.Planet         { return w.planets }
func (w *World) Planet(name string) *economy.Planet { return w.planetByName[name] }
func (w *World) Base(name string) *PirateBase       { return w.baseByName[name] }
func (w *World) Bases() []*PirateBase               { return w.bases }
func (w *World) Ships() []*CargoShip                { return w.ships }
func (w *World) Raiders() []*Raider                 { return w.raiders }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

// Seed reports the configured seed, or 0 when the world runs unseeded.
func (w *World) Seed() int64 {
	if w.cfg.Seed == nil {
		return 0
	}
	return *w.cfg.Seed
}

func (w *World) AddSink(s EventSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

// AddPlanet registers a planet. Names are unique; planets are never removed.
func (w *World) AddPlanet(p *economy.Planet) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("%w: planet needs a name", ErrUnknownPlanet)
	}
	if _, ok := w.planetByName[p.Name]; ok {
		return fmt.Errorf("%w: planet %q", ErrDuplicateName, p.Name)
	}
	w.planets = append(w.planets, p)
	w.planetByName[p.Name] = p
	return nil
}

// AddBase registers a pirate base. Stock and consumption keys must be catalog commodities.
func (w *World) AddBase(b *PirateBase) error {
	if b == nil || b.Name == "" {
		return fmt.Errorf("%w: base needs a name", ErrUnknownBase)
	}
	if _, ok := w.baseByName[b.Name]; ok {
		return fmt.Errorf("%w: base %q", ErrDuplicateName, b.Name)
	}
	for _, m := range []map[string]float64{b.Stock, b.DailyConsumption} {
		for c := range m {
			if !w.cat.Has(c) {
				return fmt.Errorf("base %s: %w: %q", b.Name, catalogs.ErrUnknownCommodity, c)
			}
		}
	}
	if b.Stock == nil {
		b.Stock = map[string]float64{}
	}
	if b.DailyConsumption == nil {
		b.DailyConsumption = map[string]float64{}
	}
	if b.RaidInterval <= 0 {
		b.RaidInterval = w.cfg.RaidInterval
	}
	w.bases = append(w.bases, b)
	w.baseByName[b.Name] = b
	return nil
}

// AddRoute validates and appends a route to the spawner's table.
func (w *World) AddRoute(r Route) error {
	if err := w.validateRoute(r); err != nil {
		return err
	}
	r.Manifest = copyManifest(r.Manifest)
	w.routes = append(w.routes, r)
	return nil
}

func (w *World) validateRoute(r Route) error {
	if _, ok := w.planetByName[r.Origin]; !ok {
		return fmt.Errorf("%w: origin %q: %w", ErrRouteInvalid, r.Origin, ErrUnknownPlanet)
	}
	if _, ok := w.planetByName[r.Destination]; !ok {
		return fmt.Errorf("%w: destination %q: %w", ErrRouteInvalid, r.Destination, ErrUnknownPlanet)
	}
	if r.Origin == r.Destination {
		return fmt.Errorf("%w: origin and destination are both %q", ErrRouteInvalid, r.Origin)
	}
	if len(r.Manifest) == 0 {
		return fmt.Errorf("%w: empty manifest", ErrRouteInvalid)
	}
	if err := w.cat.CheckManifest(r.Manifest); err != nil {
		return fmt.Errorf("%w: %w", ErrRouteInvalid, err)
	}
	return nil
}

// Price quotes a commodity at a planet. Each call draws once from the world generator.
func (w *World) Price(commodity, planet string, selling bool) (int, error) {
	if _, ok := w.planetByName[planet]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlanet, planet)
	}
	return w.market.Price(commodity, selling, w.rng)
}

// Quote is Price without the random spread; it leaves the generator untouched.
func (w *World) Quote(commodity, planet string, selling bool) (int, error) {
	if _, ok := w.planetByName[planet]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlanet, planet)
	}
	return w.market.MidPrice(commodity, selling)
}

func (w *World) SetBlockade(planet string, on bool) error {
	p, ok := w.planetByName[planet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlanet, planet)
	}
	p.Economy.SetBlockade(on)
	return nil
}

func (w *World) ship(id uint64) *CargoShip {
	for _, s := range w.ships {
		if s.ID == id && s.live() {
			return s
		}
	}
	return nil
}

func (w *World) liveShips() []*CargoShip {
	out := make([]*CargoShip, 0, len(w.ships))
	for _, s := range w.ships {
		if s.live() {
			out = append(out, s)
		}
	}
	return out
}

func copyManifest(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func manifestValue(m map[string]int, perUnit int) int {
	return protocol.ManifestUnits(m) * perUnit
}

var _ spatial.Entity = (*CargoShip)(nil)
