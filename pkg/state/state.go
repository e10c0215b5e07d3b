package state

import (
	"context"

	"github.com/cfortin/slapshot/pkg/engine/types"
)

// Manager provides shared access to the latest game snapshot.
// Implementations must be thread-safe.
type Manager interface {
	// Get returns a copy of the current snapshot.
	Get(ctx context.Context) (types.Snapshot, error)
	// Set replaces the current snapshot.
	Set(ctx context.Context, snapshot types.Snapshot) error
}
