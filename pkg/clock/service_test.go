package clock

import (
	"testing"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/queue"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainExpiries(t *testing.T, q queue.Queue, want int) []types.TimerExpiredEvent {
	t.Helper()
	var events []types.TimerExpiredEvent
	deadline := time.Now().Add(time.Second)
	for len(events) < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d expiries, got %d", want, len(events))
		}
		messages, err := q.ReadAllMessages()
		require.NoError(t, err)
		for _, item := range messages {
			ev, ok := item.(types.TimerExpiredEvent)
			require.True(t, ok, "unexpected queue item %T", item)
			events = append(events, ev)
		}
		time.Sleep(time.Millisecond)
	}
	return events
}

func TestTimerService_ExpiryReachesQueue(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := queue.NewInMemoryQueue(16)
	svc := NewTimerService(fc, q.Enqueue)

	id := svc.StartTimer(types.TimerKindPhase, "", 30*time.Second, true)
	assert.Equal(t, 30*time.Second, svc.Remaining(id))

	fc.Advance(30 * time.Second)
	events := drainExpiries(t, q, 1)

	assert.Equal(t, id, events[0].TimerID)
	assert.Equal(t, types.TimerKindPhase, events[0].Kind)
	assert.Equal(t, svc.Generation(), events[0].Generation)
}

func TestTimerService_CancelSuppressesExpiry(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := queue.NewInMemoryQueue(16)
	svc := NewTimerService(fc, q.Enqueue)

	id := svc.StartTimer(types.TimerKindPowerUp, types.TeamRed, 10*time.Second, true)
	svc.Cancel(id)

	fc.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	messages, err := q.ReadAllMessages()
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, time.Duration(0), svc.Remaining(id))
}

func TestTimerService_InvalidateGenerationTagsStale(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := queue.NewInMemoryQueue(16)
	svc := NewTimerService(fc, q.Enqueue)

	gen := svc.Generation()
	svc.StartTimer(types.TimerKindPhase, "", 10*time.Second, true)

	newGen := svc.InvalidateGeneration()
	assert.Equal(t, gen+1, newGen)

	// The old timer was canceled outright, so nothing reaches the queue.
	fc.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	messages, err := q.ReadAllMessages()
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Timers armed after the reset carry the new generation.
	svc.StartTimer(types.TimerKindPhase, "", 5*time.Second, true)
	fc.Advance(5 * time.Second)
	events := drainExpiries(t, q, 1)
	assert.Equal(t, newGen, events[0].Generation)
}

func TestTimerService_PauseAllHonorsPausableFlag(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := queue.NewInMemoryQueue(16)
	svc := NewTimerService(fc, q.Enqueue)

	phaseID := svc.StartTimer(types.TimerKindPhase, "", 20*time.Second, true)
	comboID := svc.StartTimer(types.TimerKindComboWindow, types.TeamBlue, 20*time.Second, false)

	fc.Advance(5 * time.Second)
	svc.PauseAll()
	fc.Advance(10 * time.Second)

	// The phase clock froze at 15s; the wall-time combo window kept
	// counting down.
	assert.Equal(t, 15*time.Second, svc.Remaining(phaseID))
	assert.Equal(t, 5*time.Second, svc.Remaining(comboID))

	svc.ResumeAll()
	fc.Advance(15 * time.Second)
	events := drainExpiries(t, q, 2)
	kinds := map[types.TimerKind]bool{}
	for _, ev := range events {
		kinds[ev.Kind] = true
	}
	assert.True(t, kinds[types.TimerKindPhase])
	assert.True(t, kinds[types.TimerKindComboWindow])
}
