package world

import "blackflag.space/internal/protocol"

// EventSink receives every event in emission order, from the goroutine that calls Step.
type EventSink interface {
	Emit(ev protocol.Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ev protocol.Event)

func (f SinkFunc) Emit(ev protocol.Event) { f(ev) }

func (w *World) emit(ev protocol.Event) {
	ev.Tick = w.tick.Load()
	ev.T = w.clock.Now()
	if ev.Day == 0 {
		ev.Day = w.clock.Day()
	}
	w.stepEvents = append(w.stepEvents, ev)
}

func (w *World) diagnostic(entity, msg string) {
	w.counters.Diagnostics++
	w.emit(protocol.Event{Kind: protocol.KindDiagnostic, Entity: entity, Message: msg})
}

func (w *World) flushEvents() []protocol.Event {
	evs := w.stepEvents
	w.stepEvents = nil
	for _, s := range w.sinks {
		for _, ev := range evs {
			s.Emit(ev)
		}
	}
	return evs
}
