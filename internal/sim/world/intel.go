package world

import (
	"fmt"

	"blackflag.space/internal/protocol"
	"blackflag.space/internal/sim/rng"
)

// CargoIntel is a sighting of a cargo ship taken when it launched.
// Bases hold their own copies; Claimed marks an entry already used to arm a raider.
type CargoIntel struct {
	ShipID         uint64
	Origin         string
	Destination    string
	Manifest       map[string]int
	EstimatedValue int
	Timestamp      float64
	Claimed        bool
}

func (i CargoIntel) Fresh(now, window float64) bool { return now-i.Timestamp < window }

func (i CargoIntel) clone() CargoIntel {
	i.Manifest = copyManifest(i.Manifest)
	return i
}

// sharesCommodity reports whether the manifest carries any commodity the intel names.
func (i CargoIntel) sharesCommodity(m map[string]int) bool {
	for c, n := range i.Manifest {
		if n > 0 && m[c] > 0 {
			return true
		}
	}
	return false
}

func (w *World) publishIntel(s *CargoShip) {
	if len(w.bases) == 0 {
		return
	}
	if !rng.Chance(w.rng, w.cfg.SpyProbability) {
		return
	}
	intel := CargoIntel{
		ShipID:         s.ID,
		Origin:         s.Origin,
		Destination:    s.Destination,
		Manifest:       copyManifest(s.Manifest),
		EstimatedValue: s.ContractValue,
		Timestamp:      w.clock.Now(),
	}
	if intel.EstimatedValue <= 0 {
		w.diagnostic("intel", fmt.Sprintf("ship %d: non-positive estimated value %d, intel skipped", s.ID, intel.EstimatedValue))
		return
	}
	for _, b := range w.bases {
		b.receiveIntel(intel.clone(), w.cfg.IntelCacheMax)
		w.emit(protocol.Event{
			Kind:        protocol.KindIntelObserved,
			ShipID:      s.ID,
			Base:        b.Name,
			Origin:      intel.Origin,
			Destination: intel.Destination,
			Manifest:    copyManifest(intel.Manifest),
			Value:       intel.EstimatedValue,
		})
	}
}
