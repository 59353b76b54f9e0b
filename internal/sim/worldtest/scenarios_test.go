package worldtest

import (
	"math"
	"testing"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/economy"
	"blackflag.space/internal/sim/spatial"
	world "blackflag.space/internal/sim/world"
)

// quiet disables spy and opportunistic draws.
func quiet() world.Config {
	return world.Config{SpyProbability: -1, OpportunisticRaidProbability: -1}
}

func deliveryGalaxy(h *Harness) {
	h.Planet("Ceres", spatial.V(-50, 0, 0), economy.Agricultural, 1_000_000)
	h.Planet("Vesta", spatial.V(50, 0, 0), economy.Mining, 500_000)
}

func TestS1_Delivery(t *testing.T) {
	h := NewHarness(t, quiet(), FixedRand(0.5))
	deliveryGalaxy(h)
	before := h.W.Planet("Vesta").Economy.Stock(catalogs.Food)

	id := h.Spawn("Ceres", "Vesta", map[string]int{"food": 150}, 0)
	h.StepFor(130, 0.1)

	if got := h.W.Planet("Vesta").Economy.Stock(catalogs.Food) - before; got != 150 {
		t.Fatalf("mining food delta=%v want 150", got)
	}
	if h.Ship(id) != nil || len(h.W.Ships()) != 0 {
		t.Fatalf("ship still live")
	}
	if h.Count(protocol.KindCargoDelivered) != 1 {
		t.Fatalf("delivered events=%d", h.Count(protocol.KindCargoDelivered))
	}
}

func TestS2_RaidSuccessForced(t *testing.T) {
	// Defense draw 0 gives 35, success roll 0 < 74/109.
	h := NewHarness(t, quiet(), FixedRand(0))
	deliveryGalaxy(h)
	h.Base("Tortuga", spatial.V(-50, 30, 0), nil, nil)
	foodBefore := h.W.Planet("Vesta").Economy.Stock(catalogs.Food)

	ship := h.Spawn("Ceres", "Vesta", map[string]int{"food": 150}, 0)
	raider, err := h.W.LaunchRaider("Tortuga", nil)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	r := h.W.Raiders()[0]
	if r.ID != raider || r.Weapons != 50 || r.Crew != 12 || r.RaidRange != 200 {
		t.Fatalf("raider %+v", r)
	}

	h.Step(0.1)

	if h.Ship(ship) != nil {
		t.Fatalf("raided ship still live")
	}
	if r.State != world.Returning || r.Stolen["food"] != 150 || len(r.Stolen) != 1 {
		t.Fatalf("raider state=%s stolen=%v", r.State, r.Stolen)
	}
	dis := h.Of(protocol.KindSupplyDisruption)
	if len(dis) != 1 || dis[0].Planet != "Vesta" || dis[0].Units != 150 {
		t.Fatalf("disruption events %+v", dis)
	}
	res := h.Of(protocol.KindRaidResolved)
	if len(res) != 1 || res[0].Success == nil || !*res[0].Success || res[0].Value != 1500 {
		t.Fatalf("resolved events %+v", res)
	}

	h.StepFor(30, 0.1)
	if got := h.W.Planet("Vesta").Economy.Stock(catalogs.Food); got != foodBefore {
		t.Fatalf("intercepted cargo reached Vesta: %v -> %v", foodBefore, got)
	}
	if got := h.W.Base("Tortuga").Stock["food"]; got != 150 {
		t.Fatalf("base food=%v want 150", got)
	}
}

func TestS3_RaidFailureForced(t *testing.T) {
	// Defense 54.8, p ~ 0.574; roll 0.99 fails.
	h := NewHarness(t, quiet(), FixedRand(0.99))
	deliveryGalaxy(h)
	h.Base("Tortuga", spatial.V(-50, 30, 0), nil, nil)
	before := h.W.Planet("Vesta").Economy.Stock(catalogs.Food)

	ship := h.Spawn("Ceres", "Vesta", map[string]int{"food": 150}, 0)
	if _, err := h.W.LaunchRaider("Tortuga", nil); err != nil {
		t.Fatalf("launch: %v", err)
	}
	r := h.W.Raiders()[0]
	h.Step(0.1)

	if h.Ship(ship) == nil {
		t.Fatalf("ship destroyed on a failed raid")
	}
	if r.State != world.Returning || len(r.Stolen) != 0 {
		t.Fatalf("raider state=%s stolen=%v", r.State, r.Stolen)
	}
	res := h.Of(protocol.KindRaidResolved)
	if len(res) != 1 || res[0].Success == nil || *res[0].Success || res[0].Value != 0 {
		t.Fatalf("resolved events %+v", res)
	}
	if h.Count(protocol.KindSupplyDisruption) != 0 {
		t.Fatalf("disruption on failure")
	}

	h.StepFor(20, 0.1)
	if got := h.W.Planet("Vesta").Economy.Stock(catalogs.Food) - before; got != 150 {
		t.Fatalf("surviving ship delivered %v", got)
	}
	ret := h.Of(protocol.KindRaiderReturned)
	if len(ret) != 1 || ret[0].Units != 0 {
		t.Fatalf("returned events %+v", ret)
	}
}

func TestS4_BaseStarvationLaunch(t *testing.T) {
	h := NewHarness(t, quiet(), FixedRand(0.5))
	deliveryGalaxy(h)
	h.Base("Tortuga", spatial.V(0, 100, 0), map[string]float64{"food": 40}, map[string]float64{"food": 50})

	h.StepFor(29.9, 0.1)
	launched := h.Of(protocol.KindRaiderLaunched)
	if len(launched) != 1 {
		t.Fatalf("launches within one raid interval=%d want 1", len(launched))
	}
	if !launched[0].Patrol || launched[0].Base != "Tortuga" {
		t.Fatalf("launch %+v", launched[0])
	}

	h.StepFor(1, 0.1)
	if n := h.Count(protocol.KindRaiderLaunched); n != 2 {
		t.Fatalf("launches after the interval=%d want 2", n)
	}
}

func TestS5_IntelTargeting(t *testing.T) {
	cfg := quiet()
	cfg.SpyProbability = 1
	h := NewHarness(t, cfg, FixedRand(0))
	deliveryGalaxy(h)
	h.Planet("Pallas", spatial.V(0, -80, 0), economy.Industrial, 800_000)
	h.Base("Tortuga", spatial.V(-40, 10, 0), map[string]float64{"food": 40}, map[string]float64{"food": 50})

	food := h.Spawn("Ceres", "Vesta", map[string]int{"food": 10}, 0)
	weapons := h.Spawn("Pallas", "Vesta", map[string]int{"weapons": 5}, 3000)
	if h.Ship(food).ContractValue != 100 || h.Ship(weapons).ContractValue != 3000 {
		t.Fatalf("contract values %d %d", h.Ship(food).ContractValue, h.Ship(weapons).ContractValue)
	}
	if n := len(h.W.Base("Tortuga").Intel); n != 2 {
		t.Fatalf("base intel=%d", n)
	}

	h.Step(0.1)

	launched := h.Of(protocol.KindRaiderLaunched)
	if len(launched) != 1 || launched[0].ShipID != weapons || launched[0].Patrol {
		t.Fatalf("launch %+v", launched)
	}
	res := h.Of(protocol.KindRaidResolved)
	if len(res) != 1 || res[0].ShipID != weapons || res[0].Value != 3000 {
		t.Fatalf("raid went for %+v", res)
	}
	if h.Ship(food) == nil {
		t.Fatalf("food ship was attacked")
	}
	if h.W.Base("Tortuga").FreshIntel(h.W.Clock().Now(), 3600) != 1 {
		t.Fatalf("weapons intel not claimed")
	}
}

func TestS6_BlockadeDecay(t *testing.T) {
	cfg := quiet()
	cfg.DaySeconds = 10
	h := NewHarness(t, cfg, FixedRand(0.5))
	p := h.Planet("Callisto", spatial.V(0, 0, 0), economy.Ice, 100_000)
	for _, c := range h.W.Catalog().IDs() {
		if err := p.Economy.SetProduction(c, 0); err != nil {
			t.Fatalf("production: %v", err)
		}
		if err := p.Economy.SetConsumption(c, 0); err != nil {
			t.Fatalf("consumption: %v", err)
		}
		if err := p.Economy.SetStock(c, 1250); err != nil {
			t.Fatalf("stock: %v", err)
		}
	}
	if err := h.W.SetBlockade("Callisto", true); err != nil {
		t.Fatalf("blockade: %v", err)
	}

	h.StepFor(305, 0.1)
	if d := h.W.Clock().Day(); d != 30 {
		t.Fatalf("day=%d want 30", d)
	}
	want := 10000 * math.Pow(0.98, 30)
	if got := p.Economy.TotalStock(); math.Abs(got-want) > 1 {
		t.Fatalf("total=%v want %v ±1", got, want)
	}
	if p.Economy.BlockadeDays() != 30 {
		t.Fatalf("blockade days=%d", p.Economy.BlockadeDays())
	}
}
