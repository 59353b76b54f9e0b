package world

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"blackflag.space/internal/protocol"
)

var ErrNotRunning = errors.New("world loop not running")

type worldReq struct {
	fn   func(w *World)
	done chan struct{}
}

type subscribeReq struct {
	kinds []string
	out   chan []byte
	resp  chan uint64
}

type subscriber struct {
	id    uint64
	kinds map[string]bool
	out   chan []byte
}

// Run paces Step at the configured tick rate until ctx is done or Stop is called.
// Requests from other goroutines are applied between ticks. Once Run returns the world
// counts as stopped and later requests fail with ErrNotRunning.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	dt := 1.0 / float64(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingSnaps []snapshotReq

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.reqs:
			req.fn(w)
			close(req.done)
		case req := <-w.subJoin:
			w.handleSubscribe(req)
		case id := <-w.subLeave:
			w.handleUnsubscribe(id)
		case req := <-w.snapReqs:
			pendingSnaps = append(pendingSnaps, req)
		case <-ticker.C:
			evs := w.Step(dt)
			w.fanOut(w.tick.Load()-1, evs)
			w.answerSnapshotRequests(pendingSnaps)
			pendingSnaps = pendingSnaps[:0]
		}
	}
}

// Stop ends Run at the next tick boundary. It is safe to call more than once.
func (w *World) Stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stop)
	}
}

// Do runs fn on the loop goroutine between ticks and waits for it to finish.
func (w *World) Do(ctx context.Context, fn func(w *World)) error {
	if w.stopped.Load() {
		return ErrNotRunning
	}
	req := worldReq{fn: fn, done: make(chan struct{})}
	select {
	case w.reqs <- req:
	case <-w.stop:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-w.stop:
		select {
		case <-req.done:
			return nil
		default:
			return ErrNotRunning
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers out for EVENTS messages filtered to kinds (all kinds when empty).
// Slow readers lose the oldest pending message.
func (w *World) Subscribe(ctx context.Context, kinds []string, out chan []byte) (uint64, error) {
	if w.stopped.Load() {
		return 0, ErrNotRunning
	}
	req := subscribeReq{kinds: kinds, out: out, resp: make(chan uint64, 1)}
	select {
	case w.subJoin <- req:
	case <-w.stop:
		return 0, ErrNotRunning
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case id := <-req.resp:
		return id, nil
	case <-w.stop:
		select {
		case id := <-req.resp:
			return id, nil
		default:
			return 0, ErrNotRunning
		}
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) Unsubscribe(id uint64) {
	select {
	case w.subLeave <- id:
	case <-w.stop:
	}
}

func (w *World) handleSubscribe(req subscribeReq) {
	w.nextSub++
	s := &subscriber{id: w.nextSub, out: req.out}
	if len(req.kinds) > 0 {
		s.kinds = map[string]bool{}
		for _, k := range req.kinds {
			s.kinds[k] = true
		}
	}
	w.subs[s.id] = s
	req.resp <- s.id
}

func (w *World) handleUnsubscribe(id uint64) {
	delete(w.subs, id)
}

func (w *World) fanOut(tick uint64, evs []protocol.Event) {
	if len(w.subs) == 0 || len(evs) == 0 {
		return
	}
	for _, id := range sortedSubIDs(w.subs) {
		s := w.subs[id]
		msg := protocol.EventsMsg{Type: protocol.TypeEvents, ProtocolVersion: protocol.Version, Tick: tick}
		for _, ev := range evs {
			if s.kinds == nil || s.kinds[ev.Kind] {
				msg.Events = append(msg.Events, ev)
			}
		}
		if len(msg.Events) == 0 {
			continue
		}
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(s.out, b)
	}
}

func sortedSubIDs(m map[uint64]*subscriber) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
