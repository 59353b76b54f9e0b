package economy

import (
	"errors"
	"fmt"
	"math"

	"blackflag.space/internal/sim/catalogs"
)

var ErrInsufficientStock = errors.New("insufficient stock")

const (
	panicThresholdDays = 3.0
	panicMultiplier    = 1.2
	blockadeWasteRate  = 0.02
)

// Economy tracks one planet's stockpiles. Every catalog commodity is always present as a key.
// Stockpiles are fractional units; Available reports whole units.
type Economy struct {
	cat *catalogs.Catalog

	stock       map[string]float64
	production  map[string]float64
	consumption map[string]float64
	tradeVolume map[string]float64

	blockaded    bool
	blockadeDays int
}

func NewEconomy(cat *catalogs.Catalog) *Economy {
	e := &Economy{
		cat:         cat,
		stock:       map[string]float64{},
		production:  map[string]float64{},
		consumption: map[string]float64{},
		tradeVolume: map[string]float64{},
	}
	for _, id := range cat.IDs() {
		e.stock[id] = 0
		e.production[id] = 0
		e.consumption[id] = 0
		e.tradeVolume[id] = 0
	}
	return e
}

func (e *Economy) applyProfile(typ PlanetType, population int) {
	produce, consume := profileFor(typ, population)
	for _, id := range e.cat.IDs() {
		e.production[id] = produce[id]
		e.consumption[id] = consume[id]
		e.stock[id] = 10*consume[id] + 5*produce[id]
	}
}

// DailyReport describes what one DailyUpdate did, per commodity.
type DailyReport struct {
	Produced map[string]float64
	Intended map[string]float64
	Consumed map[string]float64
	Wasted   map[string]float64
	// Clamped lists commodities whose stockpile had gone negative and was reset to zero.
	Clamped []string
}

// BlockadeFactor is the production multiplier after the given number of blockade days.
func BlockadeFactor(days int) float64 {
	return math.Max(0.1, 0.5-0.05*float64(days))
}

// DailyUpdate runs production, then consumption, then blockade waste, then resets today's
// trade volume.
func (e *Economy) DailyUpdate() DailyReport {
	r := DailyReport{
		Produced: map[string]float64{},
		Intended: map[string]float64{},
		Consumed: map[string]float64{},
		Wasted:   map[string]float64{},
	}
	ids := e.cat.IDs()

	factor := 1.0
	if e.blockaded {
		factor = BlockadeFactor(e.blockadeDays)
	}
	for _, id := range ids {
		p := e.production[id] * factor
		if p <= 0 {
			continue
		}
		e.stock[id] += p
		r.Produced[id] = p
	}

	for _, id := range ids {
		rate := e.consumption[id]
		if rate <= 0 {
			continue
		}
		intended := rate
		if e.stock[id] < panicThresholdDays*rate {
			intended *= panicMultiplier
		}
		actual := math.Min(intended, e.stock[id])
		if actual < 0 {
			actual = 0
		}
		e.stock[id] -= actual
		r.Intended[id] = intended
		r.Consumed[id] = actual
	}

	if e.blockaded {
		for _, id := range ids {
			w := e.stock[id] * blockadeWasteRate
			if w <= 0 {
				continue
			}
			e.stock[id] -= w
			r.Wasted[id] = w
		}
		e.blockadeDays++
	} else {
		e.blockadeDays = 0
	}

	for _, id := range ids {
		if e.stock[id] < 0 {
			e.stock[id] = 0
			r.Clamped = append(r.Clamped, id)
		}
		e.tradeVolume[id] = 0
	}
	return r
}

// Available returns the whole units on hand.
func (e *Economy) Available(c string) (int, error) {
	s, ok := e.stock[c]
	if !ok {
		return 0, fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, c)
	}
	return int(math.Floor(s)), nil
}

// Stock returns the exact fractional stockpile (zero for unknown ids).
func (e *Economy) Stock(c string) float64 { return e.stock[c] }

// TotalStock sums every stockpile.
func (e *Economy) TotalStock() float64 {
	total := 0.0
	for _, id := range e.cat.IDs() {
		total += e.stock[id]
	}
	return total
}

func (e *Economy) Add(c string, n int) error {
	if _, ok := e.stock[c]; !ok {
		return fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, c)
	}
	if n < 0 {
		return e.Remove(c, -n)
	}
	e.stock[c] += float64(n)
	e.tradeVolume[c] += float64(n)
	return nil
}

// Remove takes n whole units. When fewer are available the stockpile is left untouched
// and ErrInsufficientStock is returned; the caller decides what to do.
func (e *Economy) Remove(c string, n int) error {
	s, ok := e.stock[c]
	if !ok {
		return fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, c)
	}
	if n < 0 {
		return e.Add(c, -n)
	}
	if float64(n) > s {
		return fmt.Errorf("%w: %s: want %d have %d", ErrInsufficientStock, c, n, int(math.Floor(s)))
	}
	e.stock[c] = s - float64(n)
	e.tradeVolume[c] += float64(n)
	return nil
}

func (e *Economy) SetStock(c string, v float64) error {
	if _, ok := e.stock[c]; !ok {
		return fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, c)
	}
	e.stock[c] = math.Max(0, v)
	return nil
}

func (e *Economy) SetProduction(c string, perDay float64) error {
	if _, ok := e.production[c]; !ok {
		return fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, c)
	}
	e.production[c] = math.Max(0, perDay)
	return nil
}

func (e *Economy) SetConsumption(c string, perDay float64) error {
	if _, ok := e.consumption[c]; !ok {
		return fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, c)
	}
	e.consumption[c] = math.Max(0, perDay)
	return nil
}

func (e *Economy) Production(c string) float64  { return e.production[c] }
func (e *Economy) Consumption(c string) float64 { return e.consumption[c] }
func (e *Economy) TradeVolume(c string) float64 { return e.tradeVolume[c] }

func (e *Economy) SetBlockade(on bool) { e.blockaded = on }
func (e *Economy) Blockaded() bool     { return e.blockaded }
func (e *Economy) BlockadeDays() int   { return e.blockadeDays }

// State is the serialisable form of an Economy.
type State struct {
	Stock        map[string]float64
	Production   map[string]float64
	Consumption  map[string]float64
	TradeVolume  map[string]float64
	Blockaded    bool
	BlockadeDays int
}

func (e *Economy) State() State {
	return State{
		Stock:        copyRates(e.stock),
		Production:   copyRates(e.production),
		Consumption:  copyRates(e.consumption),
		TradeVolume:  copyRates(e.tradeVolume),
		Blockaded:    e.blockaded,
		BlockadeDays: e.blockadeDays,
	}
}

// Restore replaces the economy state. Unknown commodity keys are rejected; missing ones
// become zero so every catalog id stays present.
func (e *Economy) Restore(s State) error {
	for _, m := range []map[string]float64{s.Stock, s.Production, s.Consumption, s.TradeVolume} {
		for k := range m {
			if !e.cat.Has(k) {
				return fmt.Errorf("%w: %q", catalogs.ErrUnknownCommodity, k)
			}
		}
	}
	for _, id := range e.cat.IDs() {
		e.stock[id] = math.Max(0, s.Stock[id])
		e.production[id] = s.Production[id]
		e.consumption[id] = s.Consumption[id]
		e.tradeVolume[id] = s.TradeVolume[id]
	}
	e.blockaded = s.Blockaded
	e.blockadeDays = s.BlockadeDays
	return nil
}

func copyRates(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
