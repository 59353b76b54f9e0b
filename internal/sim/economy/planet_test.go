package economy

import (
	"testing"

	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/spatial"
)

func TestParseType(t *testing.T) {
	if ParseType(" Agricultural ") != Agricultural {
		t.Fatalf("case-insensitive parse failed")
	}
	if ParseType("gas_giant") != Generic {
		t.Fatalf("unknown type should map to generic")
	}
}

func TestNewPlanet_ProfilesFollowPopulation(t *testing.T) {
	cat := catalogs.Default()
	farm := NewPlanet(cat, "Ceres", spatial.V(-50, 0, 0), Agricultural, 500000)
	if got := farm.Economy.Consumption(catalogs.Food); got != 100 {
		t.Fatalf("ration=%v want pop/5000=100", got)
	}
	if got := farm.Economy.Consumption(catalogs.Medicine); got != 10 {
		t.Fatalf("medicine=%v want pop/50000=10", got)
	}
	if got := farm.Economy.Consumption(catalogs.Fuel); got != 50 {
		t.Fatalf("fuel=%v want pop/10000=50", got)
	}
	if farm.Economy.Production(catalogs.Food) <= farm.Economy.Consumption(catalogs.Food) {
		t.Fatalf("agricultural planet should be a food exporter")
	}
	if farm.Economy.Production(catalogs.Spices) <= 0 || farm.Economy.Consumption(catalogs.Technology) <= 0 {
		t.Fatalf("agricultural profile missing spices/technology")
	}

	factory := NewPlanet(cat, "Vulcan Works", spatial.V(0, 0, 0), Industrial, 200000)
	for _, id := range []string{catalogs.Technology, catalogs.Weapons, catalogs.Medicine} {
		if factory.Economy.Production(id) <= 0 {
			t.Fatalf("industrial should produce %s", id)
		}
	}
	for _, id := range []string{catalogs.Minerals, catalogs.LuxuryGoods} {
		if factory.Economy.Consumption(id) <= 0 {
			t.Fatalf("industrial should consume %s", id)
		}
	}
	if factory.Economy.Stock(catalogs.Minerals) != 10*factory.Economy.Consumption(catalogs.Minerals) {
		t.Fatalf("initial stock should be ten days of consumption")
	}
}
