package workers

import (
	"context"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/recovery"
)

// RecoveryWorker mirrors the engine's resumable state to disk. States
// in a live phase overwrite the recovery file; anything else means the
// game ended or was abandoned, so the file is cleared instead.
type RecoveryWorker struct {
	store  *recovery.Store
	states <-chan recovery.State
}

type NewRecoveryWorkerOptions struct {
	Store  *recovery.Store
	States <-chan recovery.State
}

func NewRecoveryWorker(opts NewRecoveryWorkerOptions) *RecoveryWorker {
	return &RecoveryWorker{
		store:  opts.Store,
		states: opts.States,
	}
}

func (w *RecoveryWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-w.states:
			w.handleState(st)
		}
	}
}

func (w *RecoveryWorker) handleState(st recovery.State) {
	switch st.Phase {
	case types.PhaseInPeriod, types.PhaseOvertime, types.PhaseIntermission:
		if err := w.store.Save(st); err != nil {
			log.Error("Failed to save recovery state for game %s: %v", st.GameID, err)
		}
	default:
		if err := w.store.Clear(); err != nil {
			log.Error("Failed to clear recovery file: %v", err)
		}
	}
}
