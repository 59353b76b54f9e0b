package galaxy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"blackflag.space/internal/sim/economy"
	"blackflag.space/internal/sim/spatial"
	"blackflag.space/internal/sim/world"
)

// Config is the static layout of a sector: where planets and bases sit and which
// routes the spawner draws from.
type Config struct {
	Planets []PlanetSpec  `yaml:"planets"`
	Bases   []BaseSpec    `yaml:"bases"`
	Routes  []world.Route `yaml:"routes"`
}

type PlanetSpec struct {
	Name       string     `yaml:"name"`
	Pos        [3]float64 `yaml:"pos"`
	Type       string     `yaml:"type"`
	Population int        `yaml:"population"`
	// Stock overrides the type profile's opening stockpile per commodity.
	Stock     map[string]float64 `yaml:"stock,omitempty"`
	Blockaded bool               `yaml:"blockaded,omitempty"`
}

type BaseSpec struct {
	Name                string             `yaml:"name"`
	Pos                 [3]float64         `yaml:"pos"`
	Stock               map[string]float64 `yaml:"stock"`
	DailyConsumption    map[string]float64 `yaml:"daily_consumption"`
	RaidIntervalSeconds float64            `yaml:"raid_interval_seconds,omitempty"`
}

// Load reads a galaxy file. An empty path yields the built-in demo sector.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Demo()
		cfg.Normalize()
		return cfg, nil
	}
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("galaxy.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("galaxy.yaml: %w", err)
	}
	return cfg, nil
}

// Demo is the two-planet, one-base sector of the text-mode demo.
func Demo() Config {
	return Config{
		Planets: []PlanetSpec{
			{Name: "Ceres", Pos: [3]float64{-50, 0, 0}, Type: "agricultural", Population: 1_000_000},
			{Name: "Vesta", Pos: [3]float64{50, 0, 0}, Type: "mining", Population: 500_000},
		},
		Bases: []BaseSpec{
			{
				Name:             "Tortuga",
				Pos:              [3]float64{0, 40, 0},
				Stock:            map[string]float64{"food": 500, "fuel": 200, "weapons": 50},
				DailyConsumption: map[string]float64{"food": 50, "fuel": 10},
			},
		},
		Routes: []world.Route{
			{Origin: "Ceres", Destination: "Vesta", Manifest: map[string]int{"food": 150}},
			{Origin: "Vesta", Destination: "Ceres", Manifest: map[string]int{"minerals": 80}},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Planets {
		c.Planets[i].Name = strings.TrimSpace(c.Planets[i].Name)
		c.Planets[i].Type = strings.ToLower(strings.TrimSpace(c.Planets[i].Type))
		c.Planets[i].Stock = lowerKeys(c.Planets[i].Stock)
	}
	for i := range c.Bases {
		c.Bases[i].Name = strings.TrimSpace(c.Bases[i].Name)
		c.Bases[i].Stock = lowerKeys(c.Bases[i].Stock)
		c.Bases[i].DailyConsumption = lowerKeys(c.Bases[i].DailyConsumption)
	}
	for i := range c.Routes {
		c.Routes[i].Origin = strings.TrimSpace(c.Routes[i].Origin)
		c.Routes[i].Destination = strings.TrimSpace(c.Routes[i].Destination)
		if len(c.Routes[i].Manifest) > 0 {
			m := make(map[string]int, len(c.Routes[i].Manifest))
			for k, v := range c.Routes[i].Manifest {
				m[strings.ToLower(strings.TrimSpace(k))] += v
			}
			c.Routes[i].Manifest = m
		}
	}
}

// Validate checks the layout on its own. Commodity ids are checked against the catalog
// when the layout is applied to a world.
func (c Config) Validate() error {
	c.Normalize()
	if len(c.Planets) == 0 {
		return fmt.Errorf("planets must not be empty")
	}
	planets := map[string]bool{}
	for _, p := range c.Planets {
		if p.Name == "" {
			return fmt.Errorf("planet name must not be empty")
		}
		if planets[p.Name] {
			return fmt.Errorf("duplicate planet: %s", p.Name)
		}
		planets[p.Name] = true
		if p.Population < 0 {
			return fmt.Errorf("planet %s population must be >= 0", p.Name)
		}
		for k, v := range p.Stock {
			if v < 0 {
				return fmt.Errorf("planet %s stock %s must be >= 0", p.Name, k)
			}
		}
	}
	bases := map[string]bool{}
	for _, b := range c.Bases {
		if b.Name == "" {
			return fmt.Errorf("base name must not be empty")
		}
		if bases[b.Name] {
			return fmt.Errorf("duplicate base: %s", b.Name)
		}
		bases[b.Name] = true
		if b.RaidIntervalSeconds < 0 {
			return fmt.Errorf("base %s raid_interval_seconds must be >= 0", b.Name)
		}
		for k, v := range b.DailyConsumption {
			if v < 0 {
				return fmt.Errorf("base %s daily_consumption %s must be >= 0", b.Name, k)
			}
		}
	}
	for i, r := range c.Routes {
		if !planets[r.Origin] {
			return fmt.Errorf("routes[%d] origin %q not found", i, r.Origin)
		}
		if !planets[r.Destination] {
			return fmt.Errorf("routes[%d] destination %q not found", i, r.Destination)
		}
		if r.Origin == r.Destination {
			return fmt.Errorf("routes[%d] origin and destination are both %q", i, r.Origin)
		}
		if len(r.Manifest) == 0 {
			return fmt.Errorf("routes[%d] manifest must not be empty", i)
		}
	}
	return nil
}

// Apply registers every planet, base and route with w, in file order.
func (c Config) Apply(w *world.World) error {
	cat := w.Catalog()
	for _, ps := range c.Planets {
		p := economy.NewPlanet(cat, ps.Name, spatial.FromArray(ps.Pos), economy.ParseType(ps.Type), ps.Population)
		for _, k := range sortedKeys(ps.Stock) {
			if err := p.Economy.SetStock(k, ps.Stock[k]); err != nil {
				return fmt.Errorf("planet %s: %w", ps.Name, err)
			}
		}
		p.Economy.SetBlockade(ps.Blockaded)
		if err := w.AddPlanet(p); err != nil {
			return err
		}
	}
	for _, bs := range c.Bases {
		b := world.NewPirateBase(bs.Name, spatial.FromArray(bs.Pos))
		for k, v := range bs.Stock {
			b.Stock[k] = v
		}
		for k, v := range bs.DailyConsumption {
			b.DailyConsumption[k] = v
		}
		b.RaidInterval = bs.RaidIntervalSeconds
		if err := w.AddBase(b); err != nil {
			return err
		}
	}
	for i, r := range c.Routes {
		if err := w.AddRoute(r); err != nil {
			return fmt.Errorf("routes[%d]: %w", i, err)
		}
	}
	return nil
}

func lowerKeys(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] += v
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
