package world

// Config holds every tunable of one simulated sector. Zero values are replaced by
// defaults; probabilities below zero disable the draw they control.
type Config struct {
	ID         string
	TickRateHz int

	DaySeconds         float64
	CargoSpawnInterval float64
	RaidInterval       float64
	ArrivalRadius      float64
	RaidRange          float64
	ReturnRadius       float64

	SpyProbability               float64
	OpportunisticRaidProbability float64
	LowStockDays                 float64

	Reputation int

	// Seed is optional. Nil means an unseeded generator.
	Seed *int64

	StatusEverySeconds float64
	IntelFreshSeconds  float64
	IntelCacheMax      int

	CargoSpeed           float64
	ContractValuePerUnit int
	PiracyValueThreshold int

	RaiderSpeed   float64
	RaiderWeapons int
	RaiderCrew    int
	HuntTimeout   float64
	PatrolJitter  float64
	// PursueIntel makes a hunting raider close in on the ship its intel names, on top of
	// the patrol jitter. Off by default: a hunting raider without a target only patrols.
	PursueIntel bool

	// Host-side cadence; not used by Step.
	SnapshotEveryTicks uint64
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "sector_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.DaySeconds <= 0 {
		c.DaySeconds = 300
	}
	if c.CargoSpawnInterval <= 0 {
		c.CargoSpawnInterval = 20
	}
	if c.RaidInterval <= 0 {
		c.RaidInterval = 30
	}
	if c.ArrivalRadius <= 0 {
		c.ArrivalRadius = 5
	}
	if c.RaidRange <= 0 {
		c.RaidRange = 200
	}
	if c.ReturnRadius <= 0 {
		c.ReturnRadius = 5
	}
	if c.SpyProbability == 0 {
		c.SpyProbability = 0.7
	}
	if c.OpportunisticRaidProbability == 0 {
		c.OpportunisticRaidProbability = 0.3
	}
	if c.LowStockDays <= 0 {
		c.LowStockDays = 20
	}
	if c.StatusEverySeconds <= 0 {
		c.StatusEverySeconds = 10
	}
	if c.IntelFreshSeconds <= 0 {
		c.IntelFreshSeconds = 3600
	}
	if c.IntelCacheMax <= 0 {
		c.IntelCacheMax = 256
	}
	if c.CargoSpeed <= 0 {
		c.CargoSpeed = 8
	}
	if c.ContractValuePerUnit <= 0 {
		c.ContractValuePerUnit = 10
	}
	if c.PiracyValueThreshold <= 0 {
		c.PiracyValueThreshold = 500
	}
	if c.RaiderSpeed <= 0 {
		c.RaiderSpeed = 12
	}
	if c.RaiderWeapons <= 0 {
		c.RaiderWeapons = 50
	}
	if c.RaiderCrew <= 0 {
		c.RaiderCrew = 12
	}
	if c.HuntTimeout <= 0 {
		c.HuntTimeout = 240
	}
	if c.PatrolJitter <= 0 {
		c.PatrolJitter = 5
	}
	if c.SnapshotEveryTicks == 0 {
		c.SnapshotEveryTicks = 3000
	}
}
