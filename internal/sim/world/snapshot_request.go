package world

import (
	"context"
	"errors"

	"blackflag.space/internal/persistence/snapshot"
)

var (
	ErrNoSnapshotSink = errors.New("snapshot sink not configured")
	ErrSnapshotBusy   = errors.New("snapshot sink full")
)

type snapshotReq struct {
	resp chan snapshotResp
}

type snapshotResp struct {
	tick uint64
	err  error
}

// SetSnapshotSink sets where periodic and requested snapshots go. Sends never block the loop;
// a full sink drops periodic snapshots and fails requested ones with ErrSnapshotBusy.
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// RequestSnapshot asks the running loop for a snapshot at the next tick boundary and returns
// its header tick once the snapshot is in the sink.
func (w *World) RequestSnapshot(ctx context.Context) (uint64, error) {
	if w == nil || w.snapReqs == nil || w.stopped.Load() {
		return 0, ErrNotRunning
	}
	req := snapshotReq{resp: make(chan snapshotResp, 1)}
	select {
	case w.snapReqs <- req:
	case <-w.stop:
		return 0, ErrNotRunning
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-req.resp:
		return r.tick, r.err
	case <-w.stop:
		return 0, ErrNotRunning
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// answerSnapshotRequests exports once for every request queued during the last tick.
func (w *World) answerSnapshotRequests(reqs []snapshotReq) {
	if len(reqs) == 0 {
		return
	}
	r := snapshotResp{tick: w.tick.Load()}
	if w.snapshotSink == nil {
		r.err = ErrNoSnapshotSink
	} else if !w.offerSnapshot() {
		r.err = ErrSnapshotBusy
	}
	for _, req := range reqs {
		// Buffered; a caller that gave up is simply not read.
		req.resp <- r
	}
}

func (w *World) maybeSnapshot(tick uint64) {
	if w.snapshotSink == nil || tick == 0 || w.cfg.SnapshotEveryTicks == 0 {
		return
	}
	if tick%w.cfg.SnapshotEveryTicks == 0 {
		w.offerSnapshot()
	}
}

func (w *World) offerSnapshot() bool {
	select {
	case w.snapshotSink <- w.ExportSnapshot():
		return true
	default:
		return false
	}
}
