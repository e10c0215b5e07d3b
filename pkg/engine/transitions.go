package engine

import (
	"fmt"
	"time"

	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine/constants"
	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/journal"
	"github.com/cfortin/slapshot/pkg/log"
)

// handleGoal scores a debounced goal and fans out its side effects:
// the combo window timer, display banners, the combo power-up reward,
// momentum, the journal, and a sudden-death game end.
func (e *Engine) handleGoal(team types.Team, at time.Time) {
	if !team.Valid() {
		log.Warn("Ignoring goal for unknown team %q", team)
		return
	}
	if e.paused {
		e.stats.eventsIgnored.Add(1)
		log.Debug("Ignoring goal for %s while paused", team)
		return
	}
	// Score against the clock as it stands right now, not as of the
	// last tick.
	e.refreshClock()

	result := e.score.ApplyGoal(e.state, team, at)
	if result.Ignored {
		e.stats.eventsIgnored.Add(1)
		log.Debug("Ignoring goal for %s in phase %s", team, e.state.Phase)
		return
	}

	combo := e.state.Combos[team]
	if combo.WindowTimerID != 0 {
		e.timers.Cancel(combo.WindowTimerID)
	}
	combo.WindowTimerID = e.timers.StartTimer(types.TimerKindComboWindow, team, e.cfg.ComboWindow(), false)

	if result.ComboApplied {
		label := fmt.Sprintf("COMBO x%d!", result.StreakCount)
		addDisplayEvent(e.state, e.timers, constants.EventCombo, label, at)
		if e.cfg.ComboRewardType == config.RewardPowerUp {
			if e.state.ActivePowerPlay(team) == nil {
				e.scheduler.Grant(e.state, team, constants.PowerUpLuckyShot, at)
			} else {
				log.Debug("Combo power-up withheld, %s already has one active", team)
			}
		}
	}
	if result.CriticalGoal {
		addDisplayEvent(e.state, e.timers, constants.EventCritical, constants.LabelCritical, at)
	}
	if result.QuickResponse {
		addDisplayEvent(e.state, e.timers, constants.EventQuickResponse, constants.LabelQuickResponse, at)
	}
	if e.momentum != nil {
		e.momentum.AddGoal(team, at)
	}
	e.recorder.Add(journal.Entry{
		At:     at,
		Type:   journal.EntryGoal,
		Team:   team,
		Points: result.Points,
		Streak: result.StreakCount,
		Period: e.state.Period,
		Clock:  e.state.ClockRemaining.Seconds(),
		Score:  e.scorePair(),
	})
	log.Info("GOAL %s +%d (streak %d), score %d-%d", team, result.Points, result.StreakCount,
		e.state.Score[types.TeamRed], e.state.Score[types.TeamBlue])

	if result.EndedGame {
		log.Info("Sudden death goal by %s", team)
		e.endGame(at)
	}
}

func (e *Engine) handlePuckReturned(ev *types.PuckReturnedEvent) {
	if !ev.Team.Valid() {
		log.Warn("Ignoring puck return for unknown team %q", ev.Team)
		return
	}
	e.possession = ev.Team
	log.Debug("Puck returned to %s", ev.Team)
}

func (e *Engine) handleTimerExpired(ev types.TimerExpiredEvent, now time.Time) {
	if ev.Generation != e.timers.Generation() {
		e.stats.staleTimers.Add(1)
		log.Debug("Discarding stale %s timer %d from generation %d", ev.Kind, ev.TimerID, ev.Generation)
		return
	}
	switch ev.Kind {
	case types.TimerKindPhase:
		e.handlePhaseExpiry(ev, now)
	case types.TimerKindPowerUp, types.TimerKindDisplay:
		e.expireActiveEvent(ev, now)
	case types.TimerKindComboWindow:
		e.expireComboWindow(ev)
	case types.TimerKindIdleReset:
		e.handleIdleReset(now)
	default:
		log.Warn("Ignoring unknown timer kind %q", ev.Kind)
	}
}

func (e *Engine) handlePhaseExpiry(ev types.TimerExpiredEvent, now time.Time) {
	if ev.TimerID != e.phaseTimerID {
		// A goal or reset already moved the game on; a same-tick horn
		// loses to an earlier queued goal.
		e.stats.staleTimers.Add(1)
		log.Debug("Discarding phase expiry for timer %d, current is %d", ev.TimerID, e.phaseTimerID)
		return
	}
	e.phaseTimerID = 0
	e.state.ClockRemaining = 0

	switch e.state.Phase {
	case types.PhaseInPeriod:
		e.endPeriod(now)
	case types.PhaseIntermission:
		e.beginPeriod(e.state.Period+1, now)
	case types.PhaseOvertime:
		// The overtime horn with the score still level ends the game
		// as a draw.
		e.endGame(now)
	default:
		log.Warn("Phase expiry in non-playing phase %s", e.state.Phase)
	}
}

func (e *Engine) endPeriod(now time.Time) {
	if e.state.Period < e.state.MaxPeriods {
		e.beginIntermission(now)
		return
	}
	if e.state.Score[types.TeamRed] == e.state.Score[types.TeamBlue] {
		// Tied after regulation: straight to sudden death, skipping
		// the intermission.
		e.beginOvertime(now)
		return
	}
	e.endGame(now)
}

// beginPeriod moves the game into a playing period and arms its clock.
func (e *Engine) beginPeriod(period int, now time.Time) {
	e.clearTransientState()
	e.state.Phase = types.PhaseInPeriod
	e.state.Period = period
	e.state.ClockRemaining = e.cfg.PeriodDuration()
	e.phaseTimerID = e.timers.StartTimer(types.TimerKindPhase, "", e.cfg.PeriodDuration(), true)
	e.journalPhase(now)
	log.Info("Period %d/%d underway", period, e.state.MaxPeriods)
}

func (e *Engine) beginIntermission(now time.Time) {
	e.clearTransientState()
	e.state.Phase = types.PhaseIntermission
	e.state.ClockRemaining = e.cfg.IntermissionDuration()
	e.phaseTimerID = e.timers.StartTimer(types.TimerKindPhase, "", e.cfg.IntermissionDuration(), true)
	e.journalPhase(now)
	log.Info("Intermission before period %d", e.state.Period+1)
}

func (e *Engine) beginOvertime(now time.Time) {
	e.clearTransientState()
	e.state.Phase = types.PhaseOvertime
	e.state.IsSuddenDeath = true
	e.state.ClockRemaining = e.cfg.OvertimeDuration()
	e.phaseTimerID = e.timers.StartTimer(types.TimerKindPhase, "", e.cfg.OvertimeDuration(), true)
	e.journalPhase(now)
	log.Info("Overtime: next goal wins")
}

// endGame finalizes the game: summary and journal go to their workers,
// the recovery file is cleared, and the idle reset is armed.
func (e *Engine) endGame(now time.Time) {
	e.clearTransientState()
	if e.phaseTimerID != 0 {
		e.timers.Cancel(e.phaseTimerID)
		e.phaseTimerID = 0
	}
	e.state.Phase = types.PhaseGameOver
	e.paused = false

	red := e.state.Score[types.TeamRed]
	blue := e.state.Score[types.TeamBlue]
	var winner types.Team
	switch {
	case red > blue:
		winner = types.TeamRed
	case blue > red:
		winner = types.TeamBlue
	}

	e.journalPhase(now)
	e.publishSummary(types.GameSummary{
		GameID:         e.state.GameID,
		StartedAt:      e.state.StartedAt,
		FinishedAt:     now,
		Duration:       now.Sub(e.state.StartedAt),
		ScoreRed:       red,
		ScoreBlue:      blue,
		Periods:        e.state.Period,
		OvertimePlayed: e.state.IsSuddenDeath,
		Winner:         winner,
		ComboCount:     e.state.ComboCount,
		PowerUpCount:   e.state.PowerUpCount,
		GoalEvents:     append([]types.GoalEvent(nil), e.state.GoalEvents...),
	})
	e.publishJournal()
	e.sendRecoveryState(now)

	if e.cfg.IdleTimeout() > 0 {
		e.timers.StartTimer(types.TimerKindIdleReset, "", e.cfg.IdleTimeout(), false)
	}
	if winner == "" {
		log.Info("Game %s over: drawn %d-%d", e.state.GameID, red, blue)
	} else {
		log.Info("Game %s over: %s wins %d-%d", e.state.GameID, winner, red, blue)
	}
}

func (e *Engine) handleIdleReset(now time.Time) {
	if e.state.Phase != types.PhaseGameOver {
		log.Debug("Ignoring idle reset in phase %s", e.state.Phase)
		return
	}
	log.Info("Idle timeout reached, returning to warmup")
	e.resetGame(now)
}

// resetGame abandons the current game and returns to warmup under the
// freshest config. A staged hot-reload is promoted here and only here.
func (e *Engine) resetGame(now time.Time) {
	e.timers.InvalidateGeneration()
	if e.cfgProvider.HasStaged() {
		log.Info("Promoting staged configuration")
	}
	e.applyConfig(e.cfgProvider.Promote())
	e.newGame()
	// Whatever game the recovery file described is gone.
	e.sendRecoveryState(now)
}

// clearTransientState drops every active event and combo streak.
// Runs on every phase transition: power-ups and streaks never survive
// a period boundary.
func (e *Engine) clearTransientState() {
	for id := range e.state.ActiveEvents {
		e.timers.Cancel(id)
		delete(e.state.ActiveEvents, id)
	}
	for _, team := range types.Teams {
		combo := e.state.Combos[team]
		if combo.WindowTimerID != 0 {
			e.timers.Cancel(combo.WindowTimerID)
		}
		*combo = types.ComboState{}
	}
}

func (e *Engine) expireActiveEvent(ev types.TimerExpiredEvent, now time.Time) {
	active, ok := e.state.ActiveEvents[ev.TimerID]
	if !ok {
		// Already cleared by a phase transition.
		return
	}
	delete(e.state.ActiveEvents, ev.TimerID)
	if active.Class == types.EventClassPowerPlay {
		e.recorder.Add(journal.Entry{
			At:     now,
			Type:   journal.EntryPowerUp,
			Team:   active.Team,
			Kind:   active.Kind + "_expired",
			Period: e.state.Period,
			Score:  e.scorePair(),
		})
		log.Info("Power-up %s expired for team %s", active.Kind, active.Team)
	}
}

func (e *Engine) expireComboWindow(ev types.TimerExpiredEvent) {
	combo, ok := e.state.Combos[ev.Team]
	if !ok {
		return
	}
	if combo.WindowTimerID != ev.TimerID {
		// A newer goal re-armed the window.
		return
	}
	combo.WindowTimerID = 0
	combo.StreakCount = 0
	log.Debug("Combo window closed for %s", ev.Team)
}

func (e *Engine) handleCommand(cmd *types.CommandEvent, now time.Time) {
	switch cmd.Command {
	case types.CommandStart:
		e.commandStart(now)
	case types.CommandPause:
		e.commandPause(now)
	case types.CommandResume:
		e.commandResume(now)
	case types.CommandReset:
		log.Info("Reset requested")
		e.resetGame(now)
	case types.CommandAdjustScore:
		e.commandAdjustScore(cmd, now)
	default:
		log.Warn("Ignoring unknown command %q", cmd.Command)
	}
}

func (e *Engine) commandStart(now time.Time) {
	if e.paused {
		// A crash-resumed (or just paused) game continues on start as
		// well as on resume.
		e.commandResume(now)
		return
	}
	if e.state.Phase != types.PhaseWarmup {
		log.Warn("Ignoring start command in phase %s", e.state.Phase)
		return
	}
	e.state.StartedAt = now
	e.journalCommand(types.CommandStart, now)
	e.beginPeriod(1, now)
	log.Info("Game %s started", e.state.GameID)
}

func (e *Engine) commandPause(now time.Time) {
	switch e.state.Phase {
	case types.PhaseInPeriod, types.PhaseOvertime, types.PhaseIntermission:
	default:
		log.Warn("Ignoring pause command in phase %s", e.state.Phase)
		return
	}
	if e.paused {
		log.Debug("Already paused")
		return
	}
	e.paused = true
	e.timers.PauseAll()
	e.journalCommand(types.CommandPause, now)
	log.Info("Game paused")
}

func (e *Engine) commandResume(now time.Time) {
	if !e.paused {
		log.Warn("Ignoring resume command while not paused")
		return
	}
	e.paused = false
	e.timers.ResumeAll()
	e.journalCommand(types.CommandResume, now)
	log.Info("Game resumed")
}

func (e *Engine) commandAdjustScore(cmd *types.CommandEvent, now time.Time) {
	if !cmd.Team.Valid() {
		log.Warn("Ignoring score adjustment for unknown team %q", cmd.Team)
		return
	}
	if cmd.Delta == 0 {
		return
	}
	if e.state.Phase == types.PhaseGameOver {
		log.Warn("Ignoring score adjustment after game over")
		return
	}
	next := e.score.AdjustScore(e.state, cmd.Team, cmd.Delta)
	e.recorder.Add(journal.Entry{
		At:     now,
		Type:   journal.EntryAdjust,
		Team:   cmd.Team,
		Points: cmd.Delta,
		Period: e.state.Period,
		Score:  e.scorePair(),
	})
	log.Info("Manual score adjustment: %s %+d, now %d", cmd.Team, cmd.Delta, next)
}

func (e *Engine) journalPhase(now time.Time) {
	e.recorder.Add(journal.Entry{
		At:     now,
		Type:   journal.EntryPhase,
		Kind:   string(e.state.Phase),
		Period: e.state.Period,
		Clock:  e.state.ClockRemaining.Seconds(),
		Score:  e.scorePair(),
	})
}

func (e *Engine) journalCommand(cmd types.Command, now time.Time) {
	e.recorder.Add(journal.Entry{
		At:     now,
		Type:   journal.EntryCommand,
		Kind:   string(cmd),
		Period: e.state.Period,
		Score:  e.scorePair(),
	})
}
