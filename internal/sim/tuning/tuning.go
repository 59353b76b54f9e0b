package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"blackflag.space/internal/sim/world"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int     `yaml:"tick_rate_hz"`
	DaySeconds         float64 `yaml:"day_seconds"`
	StatusEverySeconds float64 `yaml:"status_every_seconds"`
	SnapshotEveryTicks uint64  `yaml:"snapshot_every_ticks"`
	Reputation         int     `yaml:"reputation"`

	Cargo      Cargo      `yaml:"cargo"`
	Raid       Raid       `yaml:"raid"`
	Raider     Raider     `yaml:"raider"`
	Intel      Intel      `yaml:"intel"`
	RateLimits RateLimits `yaml:"rate_limits"`
}

type Cargo struct {
	SpawnIntervalSeconds float64 `yaml:"spawn_interval_seconds"`
	Speed                float64 `yaml:"speed"`
	ArrivalRadius        float64 `yaml:"arrival_radius"`
	ContractValuePerUnit int     `yaml:"contract_value_per_unit"`
}

type Raid struct {
	IntervalSeconds          float64 `yaml:"interval_seconds"`
	Range                    float64 `yaml:"range"`
	ReturnRadius             float64 `yaml:"return_radius"`
	LowStockDays             float64 `yaml:"low_stock_days"`
	OpportunisticProbability float64 `yaml:"opportunistic_probability"`
	PiracyValueThreshold     int     `yaml:"piracy_value_threshold"`
	HuntTimeoutSeconds       float64 `yaml:"hunt_timeout_seconds"`
	PatrolJitter             float64 `yaml:"patrol_jitter"`
	PursueIntel              bool    `yaml:"pursue_intel"`
}

type Raider struct {
	Speed   float64 `yaml:"speed"`
	Weapons int     `yaml:"weapons"`
	Crew    int     `yaml:"crew"`
}

type Intel struct {
	SpyProbability float64 `yaml:"spy_probability"`
	FreshSeconds   float64 `yaml:"fresh_seconds"`
	CacheMax       int     `yaml:"cache_max"`
}

// RateLimits bound the host's network surfaces; the simulation never reads them.
type RateLimits struct {
	EventStreamPerSecond float64 `yaml:"event_stream_per_second"`
	EventStreamBurst     int     `yaml:"event_stream_burst"`
	SnapshotPerMinute    float64 `yaml:"snapshot_per_minute"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         10,
		DaySeconds:         300,
		StatusEverySeconds: 10,
		SnapshotEveryTicks: 3000,
		Cargo: Cargo{
			SpawnIntervalSeconds: 20,
			Speed:                8,
			ArrivalRadius:        5,
			ContractValuePerUnit: 10,
		},
		Raid: Raid{
			IntervalSeconds:          30,
			Range:                    200,
			ReturnRadius:             5,
			LowStockDays:             20,
			OpportunisticProbability: 0.3,
			PiracyValueThreshold:     500,
			HuntTimeoutSeconds:       240,
			PatrolJitter:             5,
		},
		Raider: Raider{Speed: 12, Weapons: 50, Crew: 12},
		Intel:  Intel{SpyProbability: 0.7, FreshSeconds: 3600, CacheMax: 256},
		RateLimits: RateLimits{
			EventStreamPerSecond: 10,
			EventStreamBurst:     20,
			SnapshotPerMinute:    6,
		},
	}
}

// Load overlays the file onto Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be > 0"))
	}
	if t.DaySeconds <= 0 {
		errs = append(errs, fmt.Errorf("day_seconds must be > 0"))
	}
	if t.Cargo.SpawnIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("cargo.spawn_interval_seconds must be > 0"))
	}
	if t.Raid.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("raid.interval_seconds must be > 0"))
	}
	for name, p := range map[string]float64{
		"intel.spy_probability":          t.Intel.SpyProbability,
		"raid.opportunistic_probability": t.Raid.OpportunisticProbability,
	} {
		if p > 1 {
			errs = append(errs, fmt.Errorf("%s must be <= 1", name))
		}
	}
	if t.Raider.Weapons < 0 || t.Raider.Crew < 0 {
		errs = append(errs, fmt.Errorf("raider weapons and crew must be >= 0"))
	}
	return errors.Join(errs...)
}

// WorldConfig maps the file onto a sector config. A probability of 0 in the file disables
// the draw; the world config reserves 0 for its own default.
func (t Tuning) WorldConfig(id string, seed *int64) world.Config {
	return world.Config{
		ID:                           id,
		TickRateHz:                   t.TickRateHz,
		DaySeconds:                   t.DaySeconds,
		CargoSpawnInterval:           t.Cargo.SpawnIntervalSeconds,
		RaidInterval:                 t.Raid.IntervalSeconds,
		ArrivalRadius:                t.Cargo.ArrivalRadius,
		RaidRange:                    t.Raid.Range,
		ReturnRadius:                 t.Raid.ReturnRadius,
		SpyProbability:               disableZero(t.Intel.SpyProbability),
		OpportunisticRaidProbability: disableZero(t.Raid.OpportunisticProbability),
		LowStockDays:                 t.Raid.LowStockDays,
		Reputation:                   t.Reputation,
		Seed:                         seed,
		StatusEverySeconds:           t.StatusEverySeconds,
		IntelFreshSeconds:            t.Intel.FreshSeconds,
		IntelCacheMax:                t.Intel.CacheMax,
		CargoSpeed:                   t.Cargo.Speed,
		ContractValuePerUnit:         t.Cargo.ContractValuePerUnit,
		PiracyValueThreshold:         t.Raid.PiracyValueThreshold,
		RaiderSpeed:                  t.Raider.Speed,
		RaiderWeapons:                t.Raider.Weapons,
		RaiderCrew:                   t.Raider.Crew,
		HuntTimeout:                  t.Raid.HuntTimeoutSeconds,
		PatrolJitter:                 t.Raid.PatrolJitter,
		PursueIntel:                  t.Raid.PursueIntel,
		SnapshotEveryTicks:           t.SnapshotEveryTicks,
	}
}

func disableZero(p float64) float64 {
	if p == 0 {
		return -1
	}
	return p
}
