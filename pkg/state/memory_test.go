package state

import (
	"context"
	"testing"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryManager_StartsWithWarmupShape(t *testing.T) {
	m := NewInMemoryManager()

	snap, err := m.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, snap.Period)
	assert.Equal(t, 3, snap.MaxPeriods)
	assert.Nil(t, snap.ActiveEvent)
}

func TestInMemoryManager_SetThenGetRoundTrips(t *testing.T) {
	m := NewInMemoryManager()
	label := "POWER PLAY!"
	in := types.Snapshot{
		Score:       types.ScorePair{Red: 3, Blue: 1},
		Period:      2,
		MaxPeriods:  3,
		Clock:       42.5,
		ActiveEvent: &label,
	}

	require.NoError(t, m.Set(context.Background(), in))
	out, err := m.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestInMemoryManager_GetReturnsIsolatedCopy(t *testing.T) {
	m := NewInMemoryManager()
	label := "COMBO x3!"
	require.NoError(t, m.Set(context.Background(), types.Snapshot{ActiveEvent: &label}))

	first, err := m.Get(context.Background())
	require.NoError(t, err)
	*first.ActiveEvent = "mutated"

	second, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "COMBO x3!", *second.ActiveEvent)

	// The caller's copy is not retained either.
	label = "mutated again"
	third, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "COMBO x3!", *third.ActiveEvent)
}
