package state

import (
	"context"
	"sync"

	"github.com/cfortin/slapshot/pkg/engine/types"
)

// InMemoryManager holds the latest snapshot in process memory. It
// starts with the shape of a cabinet waiting in warmup so the API has
// something sensible to serve before the first tick lands.
type InMemoryManager struct {
	lock     sync.RWMutex
	snapshot types.Snapshot
}

func NewInMemoryManager() *InMemoryManager {
	return &InMemoryManager{
		snapshot: types.Snapshot{
			Period:     1,
			MaxPeriods: 3,
		},
	}
}

func (m *InMemoryManager) Get(ctx context.Context) (types.Snapshot, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.snapshot.Copy(), nil
}

func (m *InMemoryManager) Set(ctx context.Context, snapshot types.Snapshot) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	// Copy both ways so no caller ever shares the stored ActiveEvent
	// pointer.
	m.snapshot = snapshot.Copy()
	return nil
}
