package economy

import (
	"strings"

	"blackflag.space/internal/sim/catalogs"
	"blackflag.space/internal/sim/spatial"
)

type PlanetType string

const (
	Agricultural PlanetType = "agricultural"
	Industrial   PlanetType = "industrial"
	Mining       PlanetType = "mining"
	Tech         PlanetType = "tech"
	Luxury       PlanetType = "luxury"
	Desert       PlanetType = "desert"
	Ice          PlanetType = "ice"
	Volcanic     PlanetType = "volcanic"
	Generic      PlanetType = "generic"
)

// ParseType maps a config string onto a planet type; anything unrecognised is generic.
func ParseType(s string) PlanetType {
	switch t := PlanetType(strings.ToLower(strings.TrimSpace(s))); t {
	case Agricultural, Industrial, Mining, Tech, Luxury, Desert, Ice, Volcanic:
		return t
	default:
		return Generic
	}
}

// Planet has a fixed position; only its economy mutates.
type Planet struct {
	Name       string
	Pos        spatial.Vec3
	Type       PlanetType
	Population int
	Economy    *Economy
}

func NewPlanet(cat *catalogs.Catalog, name string, pos spatial.Vec3, typ PlanetType, population int) *Planet {
	e := NewEconomy(cat)
	e.applyProfile(typ, population)
	return &Planet{
		Name:       name,
		Pos:        pos,
		Type:       typ,
		Population: population,
		Economy:    e,
	}
}

// rates is a per-commodity daily amount.
type rates map[string]float64

func profileFor(typ PlanetType, population int) (produce, consume rates) {
	pop := float64(population)
	ration := pop / 5000
	meds := pop / 50000
	fuel := pop / 10000

	consume = rates{
		catalogs.Food:     ration,
		catalogs.Medicine: meds,
		catalogs.Fuel:     fuel,
	}
	produce = rates{}

	switch typ {
	case Agricultural:
		produce[catalogs.Food] = ration * 3
		produce[catalogs.Spices] = 15
		consume[catalogs.Technology] = 5
		consume[catalogs.LuxuryGoods] = 3
	case Industrial:
		produce[catalogs.Technology] = 25
		produce[catalogs.Weapons] = 15
		produce[catalogs.Medicine] = meds*2 + 5
		consume[catalogs.Minerals] = 40
		consume[catalogs.LuxuryGoods] = 4
	case Mining:
		produce[catalogs.Minerals] = 60
		produce[catalogs.Fuel] = fuel*2 + 10
		consume[catalogs.Technology] = 6
	case Tech:
		produce[catalogs.Technology] = 40
		produce[catalogs.Medicine] = 10
		consume[catalogs.Minerals] = 20
		consume[catalogs.LuxuryGoods] = 6
	case Luxury:
		produce[catalogs.LuxuryGoods] = 20
		produce[catalogs.Spices] = 10
		consume[catalogs.Technology] = 8
	case Desert:
		produce[catalogs.Spices] = 25
		produce[catalogs.Minerals] = 15
		consume[catalogs.Food] = ration * 1.5
	case Ice:
		produce[catalogs.Fuel] = fuel*3 + 15
		consume[catalogs.Food] = ration * 1.25
		consume[catalogs.Technology] = 4
	case Volcanic:
		produce[catalogs.Minerals] = 45
		produce[catalogs.Fuel] = fuel + 10
		consume[catalogs.Medicine] = meds * 2
		consume[catalogs.Technology] = 4
	default:
		produce[catalogs.Food] = ration
		produce[catalogs.Minerals] = 10
		produce[catalogs.Fuel] = fuel
	}
	return produce, consume
}
