package models

import (
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
)

// Game is the games table row shape. Timestamps are unix milliseconds.
type Game struct {
	GameID       string `json:"game_id"`
	StartedAt    int64  `json:"started_at"`
	FinishedAt   int64  `json:"finished_at"`
	DurationMs   int64  `json:"duration_ms"`
	ScoreRed     int    `json:"score_red"`
	ScoreBlue    int    `json:"score_blue"`
	Periods      int    `json:"periods"`
	Overtime     bool   `json:"overtime"`
	Winner       string `json:"winner"`
	ComboCount   int    `json:"combo_count"`
	PowerUpCount int    `json:"power_up_count"`
}

// Goal is the goals table row shape.
type Goal struct {
	GameID  string `json:"game_id"`
	Team    string `json:"team"`
	Period  int    `json:"period"`
	Phase   string `json:"phase"`
	Points  int    `json:"points"`
	ClockMs int64  `json:"clock_ms"`
	At      int64  `json:"at"`
}

// FromSummary flattens a game summary into row models.
func FromSummary(summary types.GameSummary) (Game, []Goal) {
	game := Game{
		GameID:       summary.GameID,
		StartedAt:    summary.StartedAt.UnixMilli(),
		FinishedAt:   summary.FinishedAt.UnixMilli(),
		DurationMs:   summary.Duration.Milliseconds(),
		ScoreRed:     summary.ScoreRed,
		ScoreBlue:    summary.ScoreBlue,
		Periods:      summary.Periods,
		Overtime:     summary.OvertimePlayed,
		Winner:       string(summary.Winner),
		ComboCount:   summary.ComboCount,
		PowerUpCount: summary.PowerUpCount,
	}
	goals := make([]Goal, 0, len(summary.GoalEvents))
	for _, g := range summary.GoalEvents {
		goals = append(goals, Goal{
			GameID:  summary.GameID,
			Team:    string(g.Team),
			Period:  g.Period,
			Phase:   string(g.Phase),
			Points:  g.Points,
			ClockMs: g.ClockRemaining.Milliseconds(),
			At:      g.At.UnixMilli(),
		})
	}
	return game, goals
}

// ToSummary rebuilds a game summary from row models.
func (g Game) ToSummary(goals []Goal) types.GameSummary {
	summary := types.GameSummary{
		GameID:         g.GameID,
		StartedAt:      time.UnixMilli(g.StartedAt).UTC(),
		FinishedAt:     time.UnixMilli(g.FinishedAt).UTC(),
		Duration:       time.Duration(g.DurationMs) * time.Millisecond,
		ScoreRed:       g.ScoreRed,
		ScoreBlue:      g.ScoreBlue,
		Periods:        g.Periods,
		OvertimePlayed: g.Overtime,
		Winner:         types.Team(g.Winner),
		ComboCount:     g.ComboCount,
		PowerUpCount:   g.PowerUpCount,
	}
	for _, goal := range goals {
		summary.GoalEvents = append(summary.GoalEvents, types.GoalEvent{
			Team:           types.Team(goal.Team),
			Period:         goal.Period,
			Phase:          types.Phase(goal.Phase),
			Points:         goal.Points,
			ClockRemaining: time.Duration(goal.ClockMs) * time.Millisecond,
			At:             time.UnixMilli(goal.At).UTC(),
		})
	}
	return summary
}
