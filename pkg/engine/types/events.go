package types

import "time"

// TimerKind distinguishes what a timer expiry means to the engine.
type TimerKind string

const (
	// TimerKindPhase is the period/intermission/overtime countdown.
	TimerKindPhase TimerKind = "phase"
	// TimerKindPowerUp expires an active power-up.
	TimerKindPowerUp TimerKind = "power_up"
	// TimerKindComboWindow closes a team's combo window.
	TimerKindComboWindow TimerKind = "combo_window"
	// TimerKindDisplay expires a display-only active event.
	TimerKindDisplay TimerKind = "display"
	// TimerKindIdleReset fires after a game sits at game over untouched.
	TimerKindIdleReset TimerKind = "idle_reset"
)

// GoalDetectedEvent is a debounced goal sensor event. Team is the
// team credited with the goal.
type GoalDetectedEvent struct {
	Team Team
	At   time.Time
}

// PuckReturnedEvent is a debounced puck-presence event. Team is the
// side the puck was returned to.
type PuckReturnedEvent struct {
	Team Team
	At   time.Time
}

// TimerExpiredEvent is pushed onto the engine queue when a timer owned
// by the timer service reaches zero. Expiries carry the generation they
// were armed under so the engine can discard leftovers from a previous
// game.
type TimerExpiredEvent struct {
	TimerID    uint64
	Generation uint64
	Kind       TimerKind
	Team       Team
}

// CommandEvent is an operator command. Team and Delta are only set for
// CommandAdjustScore.
type CommandEvent struct {
	Command Command
	Team    Team
	Delta   int
}
