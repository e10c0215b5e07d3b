package workers

import (
	"context"
	"sync/atomic"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/state"
)

// SnapshotBroadcaster pushes a snapshot to connected spectators.
type SnapshotBroadcaster interface {
	BroadcastSnapshot(snapshot types.Snapshot)
}

// StatusPublisher pushes a snapshot to an external message bus.
type StatusPublisher interface {
	PublishStatus(snapshot types.Snapshot) error
}

// BroadcastWorker drains the engine's snapshot stream and fans each
// snapshot out to the shared state manager, the websocket hub, and the
// status publisher. A failing sink never holds up the others.
type BroadcastWorker struct {
	snapshots    <-chan types.Snapshot
	stateManager state.Manager
	broadcaster  SnapshotBroadcaster
	publisher    StatusPublisher

	broadcasts    atomic.Uint64
	stateErrors   atomic.Uint64
	publishErrors atomic.Uint64
}

type NewBroadcastWorkerOptions struct {
	Snapshots    <-chan types.Snapshot
	StateManager state.Manager
	// Broadcaster is optional: nil when the cabinet runs headless.
	Broadcaster SnapshotBroadcaster
	// Publisher is optional: nil when no message bus is configured.
	Publisher StatusPublisher
}

func NewBroadcastWorker(opts NewBroadcastWorkerOptions) *BroadcastWorker {
	return &BroadcastWorker{
		snapshots:    opts.Snapshots,
		stateManager: opts.StateManager,
		broadcaster:  opts.Broadcaster,
		publisher:    opts.Publisher,
	}
}

func (w *BroadcastWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-w.snapshots:
			w.handleSnapshot(ctx, snapshot)
		}
	}
}

func (w *BroadcastWorker) handleSnapshot(ctx context.Context, snapshot types.Snapshot) {
	w.broadcasts.Add(1)

	if err := w.stateManager.Set(ctx, snapshot); err != nil {
		w.stateErrors.Add(1)
		log.Error("Failed to store snapshot: %v", err)
	}
	if w.broadcaster != nil {
		w.broadcaster.BroadcastSnapshot(snapshot)
	}
	if w.publisher != nil {
		if err := w.publisher.PublishStatus(snapshot); err != nil {
			w.publishErrors.Add(1)
			log.Error("Failed to publish snapshot: %v", err)
		}
	}
}

// BroadcastWorkerStats counts fan-out outcomes for the stats endpoint.
type BroadcastWorkerStats struct {
	Broadcasts    uint64 `json:"broadcasts"`
	StateErrors   uint64 `json:"state_errors"`
	PublishErrors uint64 `json:"publish_errors"`
}

func (w *BroadcastWorker) Stats() BroadcastWorkerStats {
	return BroadcastWorkerStats{
		Broadcasts:    w.broadcasts.Load(),
		StateErrors:   w.stateErrors.Load(),
		PublishErrors: w.publishErrors.Load(),
	}
}
