package market

import (
	"errors"
	"testing"

	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/rng"
)

// constRand always returns the same draw.
type constRand float64

func (c constRand) Float64() float64 { return float64(c) }
func (c constRand) IntN(n int) int   { return 0 }

func TestPrice_Formula(t *testing.T) {
	cat := catalogs.Default()
	m := New(cat, 0)
	if err := m.SetTrend(catalogs.Weapons, Trend{Demand: 1.5, Supply: 0.75, Direction: Rising}); err != nil {
		t.Fatalf("set trend: %v", err)
	}
	// Uniform(0.9,1.1) with draw 0.5 is exactly 1.0.
	got, err := m.Price(catalogs.Weapons, true, constRand(0.5))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	// 150 base * 2.0 trend * 2.5 rare = 750
	if got != 750 {
		t.Fatalf("price=%d want 750", got)
	}
}

func TestPrice_ReputationMultipliesSellingDividesBuying(t *testing.T) {
	cat := catalogs.Default()
	m := New(cat, 50)
	sell, _ := m.Price(catalogs.Food, true, constRand(0.5))
	buy, _ := m.Price(catalogs.Food, false, constRand(0.5))
	if sell != 15 {
		t.Fatalf("sell=%d want 15", sell)
	}
	if buy != 6 {
		t.Fatalf("buy=%d want floor(10/1.5)=6", buy)
	}
}

func TestPrice_AlwaysPositive(t *testing.T) {
	cat := catalogs.Default()
	m := New(cat, -99)
	r := rng.New(11)
	for i := 0; i < 200; i++ {
		m.UpdateTrends(r)
		for _, id := range cat.IDs() {
			p, err := m.Price(id, i%2 == 0, r)
			if err != nil {
				t.Fatalf("price: %v", err)
			}
			if p < 1 {
				t.Fatalf("%s price=%d", id, p)
			}
		}
	}
	if _, err := m.Price("gold", true, r); !errors.Is(err, catalogs.ErrUnknownCommodity) {
		t.Fatalf("err=%v", err)
	}
}

func TestUpdateTrends_FactorsStayClamped(t *testing.T) {
	cat := catalogs.Default()
	m := New(cat, 0)
	r := rng.New(5)
	for i := 0; i < 5000; i++ {
		m.UpdateTrends(r)
		for id, tr := range m.Trends() {
			if tr.Demand < MinFactor || tr.Demand > MaxFactor || tr.Supply < MinFactor || tr.Supply > MaxFactor {
				t.Fatalf("iteration %d %s out of range: %+v", i, id, tr)
			}
		}
	}
}

func TestSetTrend_Clamps(t *testing.T) {
	m := New(catalogs.Default(), 0)
	_ = m.SetTrend(catalogs.Fuel, Trend{Demand: 10, Supply: 0})
	tr, _ := m.Trend(catalogs.Fuel)
	if tr.Demand != MaxFactor || tr.Supply != MinFactor || tr.Direction != Stable {
		t.Fatalf("trend=%+v", tr)
	}
}

func TestMidPrice_MatchesCentreOfSpread(t *testing.T) {
	m := New(catalogs.Default(), 0)
	if err := m.SetTrend(catalogs.Weapons, Trend{Demand: 1.5, Supply: 0.75}); err != nil {
		t.Fatalf("SetTrend: %v", err)
	}
	mid, err := m.MidPrice(catalogs.Weapons, true)
	if err != nil {
		t.Fatalf("MidPrice: %v", err)
	}
	// Uniform(0.9, 1.1) at a 0.5 draw is exactly 1.
	p, _ := m.Price(catalogs.Weapons, true, constRand(0.5))
	if mid != p {
		t.Fatalf("mid=%d price@0.5=%d", mid, p)
	}
	if _, err := m.MidPrice("unobtainium", true); !errors.Is(err, catalogs.ErrUnknownCommodity) {
		t.Fatalf("expected ErrUnknownCommodity, got %v", err)
	}
}
