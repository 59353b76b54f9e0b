package protocol

// Event kinds emitted by the simulation.
const (
	KindCargoLaunched    = "CARGO_LAUNCHED"
	KindCargoDelivered   = "CARGO_DELIVERED"
	KindIntelObserved    = "INTEL_OBSERVED"
	KindRaiderLaunched   = "RAIDER_LAUNCHED"
	KindRaidResolved     = "RAID_RESOLVED"
	KindSupplyDisruption = "SUPPLY_DISRUPTION"
	KindRaiderReturned   = "RAIDER_RETURNED"
	KindDailyTick        = "DAILY_TICK"
	KindStatus           = "STATUS"
	KindDiagnostic       = "DIAGNOSTIC"
)

var knownKinds = map[string]struct{}{
	KindCargoLaunched:    {},
	KindCargoDelivered:   {},
	KindIntelObserved:    {},
	KindRaiderLaunched:   {},
	KindRaidResolved:     {},
	KindSupplyDisruption: {},
	KindRaiderReturned:   {},
	KindDailyTick:        {},
	KindStatus:           {},
	KindDiagnostic:       {},
}

func IsKnownKind(kind string) bool {
	_, ok := knownKinds[kind]
	return ok
}

// Event is one simulation occurrence. Only the fields relevant to Kind are set.
type Event struct {
	Kind string  `json:"kind"`
	Tick uint64  `json:"tick"`
	T    float64 `json:"t"`
	Day  int     `json:"day,omitempty"`

	ShipID   uint64 `json:"ship_id,omitempty"`
	RaiderID uint64 `json:"raider_id,omitempty"`
	Base     string `json:"base,omitempty"`
	Planet   string `json:"planet,omitempty"`

	Origin      string         `json:"origin,omitempty"`
	Destination string         `json:"destination,omitempty"`
	Manifest    map[string]int `json:"manifest,omitempty"`
	Value       int            `json:"value,omitempty"`
	Units       int            `json:"units,omitempty"`

	// Success is set on RAID_RESOLVED only.
	Success *bool `json:"success,omitempty"`
	Patrol  bool  `json:"patrol,omitempty"`

	Status *Status `json:"status,omitempty"`

	Entity  string `json:"entity,omitempty"`
	Message string `json:"message,omitempty"`
}

type Status struct {
	Ships      int `json:"ships"`
	Raiders    int `json:"raiders"`
	Bases      int `json:"bases"`
	Planets    int `json:"planets"`
	Launched   int `json:"launched"`
	Delivered  int `json:"delivered"`
	Raids      int `json:"raids"`
	RaidsWon   int `json:"raids_won"`
	StolenUnit int `json:"stolen_units"`
}

// ManifestUnits sums a manifest.
func ManifestUnits(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
