package world

// Counters are cumulative totals since the world was created (or restored).
type Counters struct {
	Launched    int `json:"launched"`
	Delivered   int `json:"delivered"`
	Raids       int `json:"raids"`
	RaidsWon    int `json:"raids_won"`
	StolenUnits int `json:"stolen_units"`
	Diagnostics int `json:"diagnostics"`
}

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the stepping goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64  `json:"tick"`
	Day  int     `json:"day"`
	Now  float64 `json:"now"`

	Planets int `json:"planets"`
	Bases   int `json:"bases"`
	Ships   int `json:"ships"`
	Raiders int `json:"raiders"`

	Subscribers int `json:"subscribers"`

	StepMS float64 `json:"step_ms"`

	Counters Counters `json:"counters"`

	BlockadedPlanets int                `json:"blockaded_planets"`
	PlanetStock      map[string]float64 `json:"planet_stock,omitempty"`
}

func (w *World) publishMetrics(stepMS float64) {
	stock := make(map[string]float64, len(w.planets))
	blockaded := 0
	for _, p := range w.planets {
		stock[p.Name] = p.Economy.TotalStock()
		if p.Economy.Blockaded() {
			blockaded++
		}
	}
	w.metrics.Store(WorldMetrics{
		Tick:             w.tick.Load(),
		Day:              w.clock.Day(),
		Now:              w.clock.Now(),
		Planets:          len(w.planets),
		Bases:            len(w.bases),
		Ships:            len(w.ships),
		Raiders:          len(w.raiders),
		Subscribers:      len(w.subs),
		StepMS:           stepMS,
		Counters:         w.counters,
		BlockadedPlanets: blockaded,
		PlanetStock:      stock,
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
