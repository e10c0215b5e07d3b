package types

import "time"

// EventClass groups active events for exclusivity rules. At most one
// power-play-class event may be active per team; display events overlap
// freely.
type EventClass string

const (
	EventClassPowerPlay EventClass = "power_play_class"
	EventClassDisplay   EventClass = "display"
)

// ActiveEvent is a currently active special event. ID is the timer that
// will expire it, which makes removal idempotent: the entry is deleted
// by ID exactly once, by expiry or by reset.
type ActiveEvent struct {
	ID        uint64
	Kind      string
	Class     EventClass
	Team      Team
	Label     string
	StartedAt time.Time
	ExpiresAt time.Time
}

// ComboState tracks a team's goal streak.
type ComboState struct {
	StreakCount   int
	LastGoalAt    time.Time
	WindowTimerID uint64
}

// GameState is the single source of truth for a running game. It is
// owned by the engine and mutated only on the tick goroutine.
type GameState struct {
	GameID         string
	Phase          Phase
	Period         int
	MaxPeriods     int
	Score          map[Team]int
	ClockRemaining time.Duration
	ActiveEvents   map[uint64]*ActiveEvent
	Combos         map[Team]*ComboState
	IsSuddenDeath  bool
	StartedAt      time.Time

	// Per-game counters carried into the summary.
	ComboCount   int
	PowerUpCount int
	GoalEvents   []GoalEvent
}

// NewGameState returns a fresh warmup state for a new game.
func NewGameState(gameID string, maxPeriods int, periodLength time.Duration) *GameState {
	return &GameState{
		GameID:         gameID,
		Phase:          PhaseWarmup,
		Period:         1,
		MaxPeriods:     maxPeriods,
		Score:          map[Team]int{TeamRed: 0, TeamBlue: 0},
		ClockRemaining: periodLength,
		ActiveEvents:   make(map[uint64]*ActiveEvent),
		Combos: map[Team]*ComboState{
			TeamRed:  {},
			TeamBlue: {},
		},
	}
}

// ActivePowerPlay returns the team's active power-play-class event, if any.
func (s *GameState) ActivePowerPlay(team Team) *ActiveEvent {
	for _, ev := range s.ActiveEvents {
		if ev.Class == EventClassPowerPlay && ev.Team == team {
			return ev
		}
	}
	return nil
}

// LatestActiveEvent returns the most recently started active event, or
// nil when none is active. This is what the cabinet display shows.
func (s *GameState) LatestActiveEvent() *ActiveEvent {
	var latest *ActiveEvent
	for _, ev := range s.ActiveEvents {
		if latest == nil || ev.StartedAt.After(latest.StartedAt) {
			latest = ev
		}
	}
	return latest
}
