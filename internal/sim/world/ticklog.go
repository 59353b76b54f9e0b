package world

import "blackflag.space/internal/protocol"

// TickLogger receives one entry per advanced tick. Implemented in internal/persistence/log.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick   uint64           `json:"tick"`
	T      float64          `json:"t"`
	DT     float64          `json:"dt"`
	Day    int              `json:"day"`
	Digest string           `json:"digest"`
	Events []protocol.Event `json:"events,omitempty"`
}

func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }
