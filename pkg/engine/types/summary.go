package types

import "time"

// ScoreResult reports what a goal did. EndedGame is true when the goal
// decided a sudden-death overtime and the caller must commit game over
// in the same processing step.
type ScoreResult struct {
	Team          Team
	Points        int
	StreakCount   int
	ComboApplied  bool
	CriticalGoal  bool
	QuickResponse bool
	EndedGame     bool
	Ignored       bool
}

// GoalEvent is one accepted goal, recorded for the game journal and the
// persistence gateway.
type GoalEvent struct {
	Team           Team          `json:"team"`
	Period         int           `json:"period"`
	Phase          Phase         `json:"phase"`
	Points         int           `json:"points"`
	ClockRemaining time.Duration `json:"clock_remaining"`
	At             time.Time     `json:"at"`
}

// GameSummary is emitted once per finished game.
type GameSummary struct {
	GameID         string        `json:"game_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Duration       time.Duration `json:"duration"`
	ScoreRed       int           `json:"score_red"`
	ScoreBlue      int           `json:"score_blue"`
	Periods        int           `json:"periods"`
	OvertimePlayed bool          `json:"overtime_played"`
	Winner         Team          `json:"winner,omitempty"`
	ComboCount     int           `json:"combo_count"`
	PowerUpCount   int           `json:"power_up_count"`
	GoalEvents     []GoalEvent   `json:"goal_events,omitempty"`
}
