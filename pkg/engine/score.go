package engine

import (
	"time"

	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine/constants"
	"github.com/cfortin/slapshot/pkg/engine/types"
)

// ScoreEngine applies the scoring rules for accepted goals. It mutates
// the state it is handed and reports what it did through a ScoreResult;
// arming display timers and granting combo power-ups stay with the
// caller, which owns the timer service.
type ScoreEngine struct {
	cfg config.Config
}

func newScoreEngine(cfg config.Config) *ScoreEngine {
	return &ScoreEngine{cfg: cfg}
}

// ApplyGoal scores one debounced goal. Goals outside a playing phase
// are rejected, so sensor bounce after the horn cannot corrupt a
// finalized score. Bonuses stack in a fixed order: base point, combo
// reward, power-up effect, critical-moment bonus.
func (se *ScoreEngine) ApplyGoal(state *types.GameState, team types.Team, at time.Time) types.ScoreResult {
	result := types.ScoreResult{Team: team}
	if !state.Phase.Playing() {
		result.Ignored = true
		return result
	}

	combo := state.Combos[team]
	streak := 1
	if se.cfg.ComboGoalsEnabled && !combo.LastGoalAt.IsZero() && at.Sub(combo.LastGoalAt) <= se.cfg.ComboWindow() {
		streak = combo.StreakCount + 1
		if streak > se.cfg.ComboMaxStack {
			streak = se.cfg.ComboMaxStack
		}
	}

	points := 1
	if se.cfg.ComboGoalsEnabled && streak >= 2 {
		result.ComboApplied = true
		if se.cfg.ComboRewardType == config.RewardExtraPoint {
			points++
		}
	}

	if pp := state.ActivePowerPlay(team); pp != nil {
		switch pp.Kind {
		case constants.PowerUpPowerPlay:
			points++
		case constants.PowerUpLuckyShot:
			points *= 2
		}
	}

	// Critical moment: the final minute of a period, or a game within
	// one goal, judged before this goal lands.
	if state.ClockRemaining <= constants.CriticalClockThreshold || scoreGap(state) <= constants.CriticalScoreGap {
		points++
		result.CriticalGoal = true
	}

	opponent := state.Combos[team.Opponent()]
	if !opponent.LastGoalAt.IsZero() && at.Sub(opponent.LastGoalAt) <= se.cfg.QuickResponseDuration() {
		result.QuickResponse = true
	}

	combo.StreakCount = streak
	combo.LastGoalAt = at

	state.Score[team] += points
	if result.ComboApplied {
		state.ComboCount++
	}
	state.GoalEvents = append(state.GoalEvents, types.GoalEvent{
		Team:           team,
		Period:         state.Period,
		Phase:          state.Phase,
		Points:         points,
		ClockRemaining: state.ClockRemaining,
		At:             at,
	})

	result.Points = points
	result.StreakCount = streak
	result.EndedGame = state.Phase == types.PhaseOvertime
	return result
}

// AdjustScore applies a manual operator correction. It bypasses combo
// and bonus logic entirely and never drops a score below zero. Returns
// the team's score after the adjustment.
func (se *ScoreEngine) AdjustScore(state *types.GameState, team types.Team, delta int) int {
	next := state.Score[team] + delta
	if next < 0 {
		next = 0
	}
	state.Score[team] = next
	return next
}

func scoreGap(s *types.GameState) int {
	gap := s.Score[types.TeamRed] - s.Score[types.TeamBlue]
	if gap < 0 {
		return -gap
	}
	return gap
}
