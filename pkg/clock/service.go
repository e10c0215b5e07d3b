package clock

import (
	"sync"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/jonboulle/clockwork"
)

// EnqueueFunc delivers a timer expiry event to the engine queue.
type EnqueueFunc func(item interface{}) error

// TimerService owns every live countdown for the current game
// generation. Expiries are pushed onto the engine queue as
// TimerExpiredEvents tagged with the generation they were armed under,
// so the engine can discard leftovers from a game that has since been
// reset. Resetting a game invalidates all timers with one generation
// bump instead of chasing individual handles.
type TimerService struct {
	mu         sync.Mutex
	clk        clockwork.Clock
	enqueue    EnqueueFunc
	generation uint64
	nextID     uint64
	timers     map[uint64]*managedTimer
}

type managedTimer struct {
	id       uint64
	kind     types.TimerKind
	team     types.Team
	pausable bool
	clock    *GameClock
}

func NewTimerService(clk clockwork.Clock, enqueue EnqueueFunc) *TimerService {
	return &TimerService{
		clk:        clk,
		enqueue:    enqueue,
		generation: 1,
		timers:     make(map[uint64]*managedTimer),
	}
}

// StartTimer arms a one-shot countdown and returns its ID. Pausable
// timers freeze and thaw with PauseAll/ResumeAll; timers that track
// wall time (combo windows, display banners, idle reset) are armed
// with pausable false.
func (s *TimerService) StartTimer(kind types.TimerKind, team types.Team, d time.Duration, pausable bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	gen := s.generation
	gc := New(s.clk)
	gc.OnExpire(func() {
		s.expire(id, gen, kind, team)
	})
	s.timers[id] = &managedTimer{
		id:       id,
		kind:     kind,
		team:     team,
		pausable: pausable,
		clock:    gc,
	}
	gc.Start(d)
	return id
}

// Cancel stops a timer before expiry. Canceling an unknown or already
// expired timer is a no-op.
func (s *TimerService) Cancel(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mt, ok := s.timers[id]
	if !ok {
		return
	}
	mt.clock.Reset(0)
	delete(s.timers, id)
}

// Remaining returns the time left on a live timer, zero for unknown IDs.
func (s *TimerService) Remaining(id uint64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	mt, ok := s.timers[id]
	if !ok {
		return 0
	}
	return mt.clock.Remaining()
}

// PauseAll freezes every pausable timer. Wall-time timers keep running.
func (s *TimerService) PauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mt := range s.timers {
		if mt.pausable {
			mt.clock.Pause()
		}
	}
}

// ResumeAll continues every pausable timer.
func (s *TimerService) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mt := range s.timers {
		if mt.pausable {
			mt.clock.Resume()
		}
	}
}

// Generation returns the current timer generation.
func (s *TimerService) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// InvalidateGeneration cancels every live timer and bumps the
// generation, so expiries already in flight arrive stale and are
// discarded by the engine.
func (s *TimerService) InvalidateGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, mt := range s.timers {
		mt.clock.Reset(0)
		delete(s.timers, id)
	}
	s.generation++
	return s.generation
}

func (s *TimerService) expire(id, gen uint64, kind types.TimerKind, team types.Team) {
	s.mu.Lock()
	_, live := s.timers[id]
	if live {
		delete(s.timers, id)
	}
	s.mu.Unlock()
	if !live {
		// Canceled after the countdown fired but before the expiry
		// surfaced.
		return
	}
	ev := types.TimerExpiredEvent{
		TimerID:    id,
		Generation: gen,
		Kind:       kind,
		Team:       team,
	}
	if err := s.enqueue(ev); err != nil {
		log.Error("failed to enqueue %s timer expiry: %v", kind, err)
	}
}
