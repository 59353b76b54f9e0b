package market

import (
	"fmt"
	"math"

	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/rng"
)

type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Stable  Direction = "stable"
)

var directions = []Direction{Rising, Falling, Stable}

const (
	MinFactor = 0.3
	MaxFactor = 2.0

	directionResampleChance = 0.10
)

type Trend struct {
	Demand    float64   `json:"demand"`
	Supply    float64   `json:"supply"`
	Direction Direction `json:"direction"`
}

// Market prices goods from per-commodity trends, rarity and the trader's reputation.
// Stockpiles are not consulted; they are only the delivery substrate.
type Market struct {
	cat        *catalogs.Catalog
	trends     map[string]*Trend
	reputation int
}

func New(cat *catalogs.Catalog, reputation int) *Market {
	m := &Market{cat: cat, trends: map[string]*Trend{}, reputation: reputation}
	for _, id := range cat.IDs() {
		m.trends[id] = &Trend{Demand: 1, Supply: 1, Direction: Stable}
	}
	return m
}

func (m *Market) Reputation() int            { return m.reputation }
func (m *Market) SetReputation(r int)        { m.reputation = r }
func (m *Market) Catalog() *catalogs.Catalog { return m.cat }

func (m *Market) Trend(id string) (Trend, error) {
	t, ok := m.trends[id]
	if !ok {
		return Trend{}, fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, id)
	}
	return *t, nil
}

// SetTrend overrides a trend (clamped); used by scenarios and snapshot import.
func (m *Market) SetTrend(id string, t Trend) error {
	cur, ok := m.trends[id]
	if !ok {
		return fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, id)
	}
	cur.Demand = clampFactor(t.Demand)
	cur.Supply = clampFactor(t.Supply)
	cur.Direction = t.Direction
	if cur.Direction == "" {
		cur.Direction = Stable
	}
	return nil
}

// Price quotes one unit. selling is from the trader's point of view: reputation raises what
// they get when selling and lowers what they pay when buying.
func (m *Market) Price(id string, selling bool, r rng.Rand) (int, error) {
	p, err := m.quote(id, selling)
	if err != nil {
		return 0, err
	}
	return floorPrice(p * rng.Uniform(r, 0.9, 1.1)), nil
}

// MidPrice is Price without the random spread. It draws nothing.
func (m *Market) MidPrice(id string, selling bool) (int, error) {
	p, err := m.quote(id, selling)
	if err != nil {
		return 0, err
	}
	return floorPrice(p), nil
}

func (m *Market) quote(id string, selling bool) (float64, error) {
	c, err := m.cat.Get(id)
	if err != nil {
		return 0, err
	}
	t := m.trends[id]

	p := float64(c.BasePrice)
	p *= t.Demand / t.Supply
	p *= c.Rarity.Factor()
	rep := 1 + 0.01*float64(m.reputation)
	if rep <= 0 {
		rep = 0.01
	}
	if selling {
		p *= rep
	} else {
		p /= rep
	}
	return p, nil
}

func floorPrice(p float64) int {
	out := int(math.Floor(p))
	if out < 1 {
		out = 1
	}
	return out
}

// UpdateTrends is the daily random walk. Commodities are visited in sorted order so the
// draw sequence is reproducible.
func (m *Market) UpdateTrends(r rng.Rand) {
	for _, id := range m.cat.IDs() {
		t := m.trends[id]
		t.Demand = clampFactor(t.Demand * rng.Uniform(r, 0.95, 1.05))
		t.Supply = clampFactor(t.Supply * rng.Uniform(r, 0.95, 1.05))
		if r.Float64() < directionResampleChance {
			t.Direction = directions[r.IntN(len(directions))]
		}
	}
}

// Trends returns a copy of every trend keyed by commodity id.
func (m *Market) Trends() map[string]Trend {
	out := make(map[string]Trend, len(m.trends))
	for id, t := range m.trends {
		out[id] = *t
	}
	return out
}

func clampFactor(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	return math.Min(MaxFactor, math.Max(MinFactor, v))
}
