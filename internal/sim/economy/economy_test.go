package economy

import (
	"errors"
	"math"
	"testing"

	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/spatial"
)

func newTestEconomy(t *testing.T) (*catalogs.Catalog, *Economy) {
	t.Helper()
	cat := catalogs.Default()
	return cat, NewEconomy(cat)
}

func TestNewEconomy_EveryCommodityPresent(t *testing.T) {
	cat, e := newTestEconomy(t)
	for _, id := range cat.IDs() {
		n, err := e.Available(id)
		if err != nil || n != 0 {
			t.Fatalf("%s: n=%d err=%v", id, n, err)
		}
	}
	if _, err := e.Available("gold"); !errors.Is(err, catalogs.ErrUnknownCommodity) {
		t.Fatalf("err=%v want ErrUnknownCommodity", err)
	}
}

func TestRemove_InsufficientLeavesStockUntouched(t *testing.T) {
	_, e := newTestEconomy(t)
	if err := e.Add(catalogs.Food, 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.Remove(catalogs.Food, 11); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err=%v want ErrInsufficientStock", err)
	}
	if n, _ := e.Available(catalogs.Food); n != 10 {
		t.Fatalf("stock=%d want 10", n)
	}
	if err := e.Remove(catalogs.Food, 4); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n, _ := e.Available(catalogs.Food); n != 6 {
		t.Fatalf("stock=%d want 6", n)
	}
	if v := e.TradeVolume(catalogs.Food); v != 14 {
		t.Fatalf("trade volume=%v want 14", v)
	}
}

func TestDailyUpdate_NoBlockadeDeltaIsProductionMinusConsumption(t *testing.T) {
	cat := catalogs.Default()
	for _, typ := range []PlanetType{Agricultural, Industrial, Mining, Tech, Luxury, Desert, Ice, Volcanic, Generic} {
		p := NewPlanet(cat, string(typ), spatial.Vec3{}, typ, 250000)
		for day := 0; day < 40; day++ {
			before := p.Economy.State().Stock
			r := p.Economy.DailyUpdate()
			for _, id := range cat.IDs() {
				got := p.Economy.Stock(id) - before[id]
				want := r.Produced[id] - r.Consumed[id]
				if math.Abs(got-want) > 1e-9 {
					t.Fatalf("%s day %d %s: delta=%v want %v", typ, day, id, got, want)
				}
				if r.Consumed[id] > r.Intended[id]+1e-12 {
					t.Fatalf("%s %s consumed %v > intended %v", typ, id, r.Consumed[id], r.Intended[id])
				}
				if p.Economy.Stock(id) < 0 {
					t.Fatalf("%s %s negative stockpile", typ, id)
				}
			}
		}
	}
}

func TestDailyUpdate_PanicBuyingIsBoundedByStock(t *testing.T) {
	_, e := newTestEconomy(t)
	_ = e.SetConsumption(catalogs.Food, 50)
	_ = e.SetStock(catalogs.Food, 100) // < 3 days of consumption
	r := e.DailyUpdate()
	if r.Intended[catalogs.Food] != 60 {
		t.Fatalf("intended=%v want 60 (x1.2)", r.Intended[catalogs.Food])
	}
	if e.Stock(catalogs.Food) != 40 {
		t.Fatalf("stock=%v want 40", e.Stock(catalogs.Food))
	}

	_ = e.SetStock(catalogs.Food, 20)
	r = e.DailyUpdate()
	if r.Consumed[catalogs.Food] != 20 || e.Stock(catalogs.Food) != 0 {
		t.Fatalf("consumed=%v stock=%v", r.Consumed[catalogs.Food], e.Stock(catalogs.Food))
	}
}

func TestDailyUpdate_BlockadeScalesProductionAndCountsDays(t *testing.T) {
	_, e := newTestEconomy(t)
	_ = e.SetProduction(catalogs.Minerals, 100)
	e.SetBlockade(true)

	r := e.DailyUpdate()
	if r.Produced[catalogs.Minerals] != 50 {
		t.Fatalf("day0 produced=%v want 50", r.Produced[catalogs.Minerals])
	}
	if e.BlockadeDays() != 1 {
		t.Fatalf("blockade days=%d want 1", e.BlockadeDays())
	}
	for i := 0; i < 20; i++ {
		e.DailyUpdate()
	}
	r = e.DailyUpdate()
	if math.Abs(r.Produced[catalogs.Minerals]-10) > 1e-9 {
		t.Fatalf("floor produced=%v want 10", r.Produced[catalogs.Minerals])
	}

	e.SetBlockade(false)
	e.DailyUpdate()
	if e.BlockadeDays() != 0 {
		t.Fatalf("blockade days=%d want reset", e.BlockadeDays())
	}
}

func TestBlockadeFactor(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{{0, 0.5}, {1, 0.45}, {4, 0.3}, {8, 0.1}, {30, 0.1}}
	for _, c := range cases {
		if got := BlockadeFactor(c.days); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("days=%d factor=%v want %v", c.days, got, c.want)
		}
	}
}

func TestDailyUpdate_SustainedBlockadeDecaysSum(t *testing.T) {
	cat := catalogs.Default()
	p := NewPlanet(cat, "mine", spatial.Vec3{}, Mining, 100000)
	p.Economy.SetBlockade(true)
	for i := 0; i < 10; i++ {
		p.Economy.DailyUpdate()
	}
	prev := p.Economy.TotalStock()
	for day := 10; day < 40; day++ {
		p.Economy.DailyUpdate()
		cur := p.Economy.TotalStock()
		if cur >= prev {
			t.Fatalf("day %d: sum %v did not decrease from %v", day, cur, prev)
		}
		prev = cur
	}
}

func TestDailyUpdate_BlockadeWasteThirtyDays(t *testing.T) {
	cat, e := newTestEconomy(t)
	for _, id := range cat.IDs() {
		_ = e.SetStock(id, 1250)
	}
	if e.TotalStock() != 10000 {
		t.Fatalf("setup sum=%v", e.TotalStock())
	}
	e.SetBlockade(true)
	for i := 0; i < 30; i++ {
		e.DailyUpdate()
	}
	want := 10000 * math.Pow(0.98, 30)
	if got := e.TotalStock(); math.Abs(got-want) > 1 {
		t.Fatalf("sum=%v want %v±1", got, want)
	}
	if e.BlockadeDays() != 30 {
		t.Fatalf("blockade days=%d", e.BlockadeDays())
	}
}

func TestStateRestoreRoundTrip(t *testing.T) {
	cat := catalogs.Default()
	p := NewPlanet(cat, "farm", spatial.Vec3{}, Agricultural, 300000)
	p.Economy.SetBlockade(true)
	p.Economy.DailyUpdate()

	e2 := NewEconomy(cat)
	if err := e2.Restore(p.Economy.State()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	p.Economy.DailyUpdate()
	e2.DailyUpdate()
	for _, id := range cat.IDs() {
		if p.Economy.Stock(id) != e2.Stock(id) {
			t.Fatalf("%s diverged: %v vs %v", id, p.Economy.Stock(id), e2.Stock(id))
		}
	}
	if err := e2.Restore(State{Stock: map[string]float64{"gold": 1}}); !errors.Is(err, catalogs.ErrUnknownCommodity) {
		t.Fatalf("err=%v", err)
	}
}
