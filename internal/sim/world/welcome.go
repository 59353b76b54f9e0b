package world

import "blackflag.space/internal/protocol"

// Welcome describes the sector to a new stream subscriber. Call it on the loop goroutine
// (via Do) while Run is active.
func (w *World) Welcome() protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldID:         w.cfg.ID,
		Tick:            w.tick.Load(),
		WorldParams: protocol.WorldParams{
			TickRateHz: w.cfg.TickRateHz,
			DaySeconds: w.clock.DaySeconds(),
			Seed:       w.Seed(),
			Planets:    len(w.planets),
			Bases:      len(w.bases),
			Routes:     len(w.routes),
		},
		Catalog: protocol.DigestRef{Digest: w.cat.Digest, Count: len(w.cat.IDs())},
	}
}
