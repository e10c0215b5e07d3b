package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cfortin/slapshot/pkg/analytics"
	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine/constants"
	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/queue"
	"github.com/cfortin/slapshot/pkg/recovery"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietYAML silences the random scheduler so gameplay tests stay
// deterministic without pinning draw sequences.
const quietYAML = `power_up_frequency: 1000000
taunts_enabled: false
random_sounds_enabled: false
`

type rig struct {
	t        *testing.T
	fc       *clockwork.FakeClock
	q        *queue.InMemoryQueue
	provider *config.Provider
	path     string
	eng      *Engine
}

func newRig(t *testing.T, extraYAML string) *rig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(quietYAML+extraYAML), 0644))
	provider, err := config.NewProvider(path)
	require.NoError(t, err)

	fc := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC))
	q := queue.NewInMemoryQueue(queue.DefaultBufferSize)
	eng := NewEngine(NewEngineOptions{
		Clock:          fc,
		ConfigProvider: provider,
		EventQueue:     q,
		Momentum:       analytics.NewTracker(time.Minute),
		Seed:           1,
	})
	eng.initializeGameState()
	return &rig{t: t, fc: fc, q: q, provider: provider, path: path, eng: eng}
}

func (r *rig) tick() {
	r.eng.tick(r.fc.Now())
}

func (r *rig) enqueue(item interface{}) {
	require.NoError(r.t, r.q.Enqueue(item))
}

func (r *rig) command(cmd types.Command) {
	r.enqueue(&types.CommandEvent{Command: cmd})
	r.tick()
}

func (r *rig) goal(team types.Team) {
	r.enqueue(&types.GoalDetectedEvent{Team: team, At: r.fc.Now()})
	r.tick()
}

// settle waits until at least n timer expiries have landed on the
// queue, then runs one tick to process them. Timer callbacks relay
// through a goroutine, so the fake clock advance needs a beat.
func (r *rig) settle(n int) {
	r.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.q.Size() < n {
		if time.Now().After(deadline) {
			r.t.Fatalf("expected %d queued events, have %d", n, r.q.Size())
		}
		time.Sleep(time.Millisecond)
	}
	r.tick()
}

// advance moves the fake clock and processes the n expiries that are
// due inside the window.
func (r *rig) advance(d time.Duration, n int) {
	r.t.Helper()
	r.fc.Advance(d)
	r.settle(n)
}

func (r *rig) latestSnapshot() types.Snapshot {
	r.t.Helper()
	var snap types.Snapshot
	got := false
	for {
		select {
		case s := <-r.eng.Snapshots():
			snap, got = s, true
		default:
			if !got {
				r.t.Fatal("no snapshot emitted")
			}
			return snap
		}
	}
}

func (r *rig) receiveSummary() types.GameSummary {
	r.t.Helper()
	select {
	case s := <-r.eng.Summaries():
		return s
	default:
		r.t.Fatal("no summary emitted")
		return types.GameSummary{}
	}
}

func TestEngine_StartCommandBeginsFirstPeriod(t *testing.T) {
	r := newRig(t, "")
	assert.Equal(t, types.PhaseWarmup, r.eng.state.Phase)

	r.command(types.CommandStart)

	assert.Equal(t, types.PhaseInPeriod, r.eng.state.Phase)
	assert.Equal(t, 1, r.eng.state.Period)
	assert.Equal(t, 180*time.Second, r.eng.state.ClockRemaining)

	snap := r.latestSnapshot()
	assert.Equal(t, 180.0, snap.Clock)
	assert.Equal(t, 1, snap.Period)
	assert.Equal(t, 3, snap.MaxPeriods)
}

func TestEngine_StartIgnoredOutsideWarmup(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)
	r.fc.Advance(30 * time.Second)
	r.tick()

	r.command(types.CommandStart)

	assert.Equal(t, 1, r.eng.state.Period)
	assert.Equal(t, 150*time.Second, r.eng.state.ClockRemaining, "restart must not rewind the clock")
}

func TestEngine_FirstGoalAtLevelScoreIsCritical(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)

	r.goal(types.TeamRed)

	// Base point plus the critical bonus for a level game.
	assert.Equal(t, 2, r.eng.state.Score[types.TeamRed])
	ev := r.eng.state.LatestActiveEvent()
	require.NotNil(t, ev)
	assert.Equal(t, constants.LabelCritical, ev.Label)

	snap := r.latestSnapshot()
	require.NotNil(t, snap.ActiveEvent)
	assert.Equal(t, constants.LabelCritical, *snap.ActiveEvent)
}

func TestEngine_ComboStreakBuildsCapsAndResets(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)

	// Goal 1 at t+0: streak 1, critical bonus for the level game.
	r.goal(types.TeamRed)
	assert.Equal(t, 1, r.eng.state.Combos[types.TeamRed].StreakCount)
	assert.Equal(t, 2, r.eng.state.Score[types.TeamRed])

	// Goals at +10/+20/+30/+40 stay inside the 30s window: streaks
	// 2..5, one combo point each. Each advance also retires the
	// previous goal's display banner.
	wantStreaks := []int{2, 3, 4, 5}
	wantScores := []int{4, 6, 8, 10}
	for i := range wantStreaks {
		r.advance(10*time.Second, 1)
		r.goal(types.TeamRed)
		assert.Equal(t, wantStreaks[i], r.eng.state.Combos[types.TeamRed].StreakCount)
		assert.Equal(t, wantScores[i], r.eng.state.Score[types.TeamRed])
	}

	// 40 quiet seconds: the last banner and the combo window both
	// expire, and the next goal starts a fresh streak worth 1 point.
	r.advance(40*time.Second, 2)
	assert.Equal(t, 0, r.eng.state.Combos[types.TeamRed].StreakCount)

	r.goal(types.TeamRed)
	assert.Equal(t, 1, r.eng.state.Combos[types.TeamRed].StreakCount)
	assert.Equal(t, 11, r.eng.state.Score[types.TeamRed])

	assert.Equal(t, 4, r.eng.state.ComboCount)
	points := make([]int, 0, len(r.eng.state.GoalEvents))
	for _, g := range r.eng.state.GoalEvents {
		points = append(points, g.Points)
	}
	assert.Equal(t, []int{2, 2, 2, 2, 2, 1}, points)
}

func TestEngine_QuickResponseGetsLabelNotPoints(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)

	r.goal(types.TeamRed)                // 2-0, critical banner up
	r.advance(5*time.Second, 1)          // banner retires at +3
	r.goal(types.TeamBlue)               // within the 10s response window

	assert.Equal(t, 1, r.eng.state.Score[types.TeamBlue], "quick response carries no bonus point")
	ev := r.eng.state.LatestActiveEvent()
	require.NotNil(t, ev)
	assert.Equal(t, constants.LabelQuickResponse, ev.Label)
}

func TestEngine_PowerPlayAndLuckyShotBonuses(t *testing.T) {
	r := newRig(t, "power_up_min_duration: 10\npower_up_max_duration: 10\n")
	r.command(types.CommandStart)
	r.fc.Advance(15 * time.Second)
	r.tick()

	r.eng.scheduler.Grant(r.eng.state, types.TeamRed, constants.PowerUpPowerPlay, r.fc.Now())
	r.goal(types.TeamRed)
	// Base 1 + power play 1 + critical 1 (level game).
	assert.Equal(t, 3, r.eng.state.Score[types.TeamRed])

	// 12s later the power play (10s) and the critical banner are gone.
	r.advance(12*time.Second, 2)
	assert.Nil(t, r.eng.state.ActivePowerPlay(types.TeamRed))

	r.eng.scheduler.Grant(r.eng.state, types.TeamBlue, constants.PowerUpLuckyShot, r.fc.Now())
	r.goal(types.TeamBlue)
	// Base 1 doubled; not critical at 3-0, outside the response window.
	assert.Equal(t, 2, r.eng.state.Score[types.TeamBlue])

	assert.Equal(t, 2, r.eng.state.PowerUpCount)
}

func TestEngine_GoalInFinalMinuteIsCritical(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)
	r.eng.score.AdjustScore(r.eng.state, types.TeamBlue, 3) // keep the gap wide

	r.fc.Advance(125 * time.Second)
	r.tick()
	require.Equal(t, 55*time.Second, r.eng.state.ClockRemaining)

	r.goal(types.TeamRed)

	assert.Equal(t, 2, r.eng.state.Score[types.TeamRed])
	ev := r.eng.state.LatestActiveEvent()
	require.NotNil(t, ev)
	assert.Equal(t, constants.LabelCritical, ev.Label)
}

func TestEngine_PeriodExpiryRunsIntermissionThenNextPeriod(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)

	r.advance(180*time.Second, 1)
	assert.Equal(t, types.PhaseIntermission, r.eng.state.Phase)
	assert.Equal(t, 60*time.Second, r.eng.state.ClockRemaining)
	assert.Equal(t, 1, r.eng.state.Period)

	r.advance(60*time.Second, 1)
	assert.Equal(t, types.PhaseInPeriod, r.eng.state.Phase)
	assert.Equal(t, 2, r.eng.state.Period)
	assert.Equal(t, 180*time.Second, r.eng.state.ClockRemaining)
}

func TestEngine_TransitionsClearActiveEventsAndCombos(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)
	r.goal(types.TeamRed)
	r.eng.scheduler.Grant(r.eng.state, types.TeamRed, constants.PowerUpPowerPlay, r.fc.Now())
	require.NotEmpty(t, r.eng.state.ActiveEvents)

	// Ride out the period; the expiry count covers the critical banner,
	// the power play, and the red combo window along with the phase horn.
	r.advance(180*time.Second, 4)

	assert.Equal(t, types.PhaseIntermission, r.eng.state.Phase)
	assert.Empty(t, r.eng.state.ActiveEvents, "power-ups must not survive the period")
	assert.Equal(t, 0, r.eng.state.Combos[types.TeamRed].StreakCount)
}

func TestEngine_TiedRegulationGoesStraightToOvertime(t *testing.T) {
	r := newRig(t, "max_periods: 1\n")
	r.command(types.CommandStart)

	r.advance(180*time.Second, 1)

	assert.Equal(t, types.PhaseOvertime, r.eng.state.Phase)
	assert.True(t, r.eng.state.IsSuddenDeath)
	assert.Equal(t, 180*time.Second, r.eng.state.ClockRemaining)
}

func TestEngine_TiedThroughRegulationDecidedInSuddenDeath(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)

	// Red opens at level score: base point plus critical bonus, 2-0.
	r.goal(types.TeamRed)
	require.Equal(t, 2, r.eng.state.Score[types.TeamRed])

	// Blue answers in the final minute of the period, where the clock
	// makes the goal critical too: 2-2. The advance retires red's
	// banner and combo window on the way.
	r.advance(125*time.Second, 2)
	require.Equal(t, 55*time.Second, r.eng.state.ClockRemaining)
	r.goal(types.TeamBlue)
	require.Equal(t, 2, r.eng.state.Score[types.TeamBlue])

	// Ride out the rest of regulation scoreless.
	r.advance(55*time.Second, 3) // blue banner, blue window, period horn
	require.Equal(t, types.PhaseIntermission, r.eng.state.Phase)
	r.advance(60*time.Second, 1)
	require.Equal(t, 2, r.eng.state.Period)
	r.advance(180*time.Second, 1)
	r.advance(60*time.Second, 1)
	require.Equal(t, 3, r.eng.state.Period)
	r.advance(180*time.Second, 1)

	// Tied after the final period: straight to sudden death, no
	// intermission, full overtime clock.
	assert.Equal(t, types.PhaseOvertime, r.eng.state.Phase)
	assert.True(t, r.eng.state.IsSuddenDeath)
	assert.Equal(t, 3, r.eng.state.Period)
	assert.Equal(t, 180*time.Second, r.eng.state.ClockRemaining)

	// First overtime goal ends it in the same processing step. Level
	// score makes the winner critical again: 4-2.
	r.goal(types.TeamRed)
	assert.Equal(t, types.PhaseGameOver, r.eng.state.Phase)

	summary := r.receiveSummary()
	assert.Equal(t, types.TeamRed, summary.Winner)
	assert.Equal(t, 4, summary.ScoreRed)
	assert.Equal(t, 2, summary.ScoreBlue)
	assert.Equal(t, 3, summary.Periods)
	assert.True(t, summary.OvertimePlayed)
}

func TestEngine_SuddenDeathGoalEndsGame(t *testing.T) {
	r := newRig(t, "max_periods: 1\n")
	r.command(types.CommandStart)
	r.advance(180*time.Second, 1)
	require.Equal(t, types.PhaseOvertime, r.eng.state.Phase)

	r.goal(types.TeamBlue)

	assert.Equal(t, types.PhaseGameOver, r.eng.state.Phase)
	summary := r.receiveSummary()
	assert.Equal(t, types.TeamBlue, summary.Winner)
	assert.True(t, summary.OvertimePlayed)
	assert.Equal(t, 0, summary.ScoreRed)
	assert.Equal(t, 2, summary.ScoreBlue, "overtime goal at level score carries the critical bonus")
}

func TestEngine_GoalBeatsHornWhenQueuedFirst(t *testing.T) {
	r := newRig(t, "max_periods: 1\n")
	r.command(types.CommandStart)
	r.advance(180*time.Second, 1)
	require.Equal(t, types.PhaseOvertime, r.eng.state.Phase)

	// The goal is queued before the horn lands: FIFO order must let
	// the goal win the game before the expiry is seen, and the stale
	// horn must be discarded.
	r.enqueue(&types.GoalDetectedEvent{Team: types.TeamRed, At: r.fc.Now()})
	r.fc.Advance(180 * time.Second)
	r.settle(2)

	assert.Equal(t, types.PhaseGameOver, r.eng.state.Phase)
	summary := r.receiveSummary()
	assert.Equal(t, types.TeamRed, summary.Winner)
	assert.Equal(t, uint64(1), r.eng.Stats().StaleTimers)
}

func TestEngine_OvertimeHornEndsDrawnGame(t *testing.T) {
	r := newRig(t, "max_periods: 1\n")
	r.command(types.CommandStart)
	r.advance(180*time.Second, 1)
	require.Equal(t, types.PhaseOvertime, r.eng.state.Phase)

	r.advance(180*time.Second, 1)

	assert.Equal(t, types.PhaseGameOver, r.eng.state.Phase)
	summary := r.receiveSummary()
	assert.Equal(t, types.Team(""), summary.Winner)
	assert.True(t, summary.OvertimePlayed)
}

func TestEngine_RegulationLeaderWinsWithoutOvertime(t *testing.T) {
	r := newRig(t, "max_periods: 1\n")
	r.command(types.CommandStart)
	r.goal(types.TeamRed)

	// Critical banner, combo window, then the phase horn.
	r.advance(180*time.Second, 3)

	assert.Equal(t, types.PhaseGameOver, r.eng.state.Phase)
	summary := r.receiveSummary()
	assert.Equal(t, types.TeamRed, summary.Winner)
	assert.False(t, summary.OvertimePlayed)
	assert.Equal(t, 1, summary.Periods)
	require.Len(t, summary.GoalEvents, 1)
	assert.Equal(t, types.TeamRed, summary.GoalEvents[0].Team)
}

func TestEngine_PauseFreezesClockAndRejectsGoals(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)
	r.fc.Advance(30 * time.Second)
	r.tick()
	require.Equal(t, 150*time.Second, r.eng.state.ClockRemaining)

	r.command(types.CommandPause)
	r.fc.Advance(50 * time.Second)
	r.tick()
	assert.Equal(t, 150*time.Second, r.eng.state.ClockRemaining, "paused clock must not drift")

	r.goal(types.TeamRed)
	assert.Equal(t, 0, r.eng.state.Score[types.TeamRed], "goals while paused are ignored")

	r.command(types.CommandResume)
	r.fc.Advance(10 * time.Second)
	r.tick()
	assert.Equal(t, 140*time.Second, r.eng.state.ClockRemaining)
}

func TestEngine_PauseIgnoredInWarmup(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandPause)
	assert.False(t, r.eng.paused)

	r.command(types.CommandResume)
	assert.False(t, r.eng.paused)
}

func TestEngine_ManualAdjustClampsAndSkipsComboLogic(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)

	r.enqueue(&types.CommandEvent{Command: types.CommandAdjustScore, Team: types.TeamRed, Delta: 2})
	r.tick()
	assert.Equal(t, 2, r.eng.state.Score[types.TeamRed])
	assert.Equal(t, 0, r.eng.state.Combos[types.TeamRed].StreakCount)
	assert.Empty(t, r.eng.state.GoalEvents)

	r.enqueue(&types.CommandEvent{Command: types.CommandAdjustScore, Team: types.TeamRed, Delta: -5})
	r.tick()
	assert.Equal(t, 0, r.eng.state.Score[types.TeamRed], "adjustment clamps at zero")

	r.enqueue(&types.CommandEvent{Command: types.CommandAdjustScore, Team: "green", Delta: 1})
	r.tick()
	assert.Equal(t, 0, r.eng.state.Score[types.TeamRed])
	assert.Equal(t, 0, r.eng.state.Score[types.TeamBlue])
}

func TestEngine_ResetPromotesStagedConfigAndStartsFresh(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)
	r.goal(types.TeamRed)
	r.eng.scheduler.Grant(r.eng.state, types.TeamRed, constants.PowerUpMomentumShift, r.fc.Now())
	oldID := r.eng.state.GameID
	require.NotEmpty(t, r.eng.state.ActiveEvents)

	require.NoError(t, os.WriteFile(r.path, []byte(quietYAML+"max_periods: 5\n"), 0644))
	require.NoError(t, r.provider.Stage())
	require.Equal(t, 3, r.eng.cfg.MaxPeriods, "staged config must not apply mid-game")

	r.command(types.CommandReset)

	assert.Equal(t, types.PhaseWarmup, r.eng.state.Phase)
	assert.NotEqual(t, oldID, r.eng.state.GameID)
	assert.Equal(t, 0, r.eng.state.Score[types.TeamRed])
	assert.Empty(t, r.eng.state.ActiveEvents)
	assert.Equal(t, 5, r.eng.cfg.MaxPeriods)
	assert.Equal(t, 5, r.eng.state.MaxPeriods)
	assert.Zero(t, r.eng.momentum.State().Score, "momentum resets with the game")
}

func TestEngine_StaleGenerationExpiryDiscarded(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)
	oldGen := r.eng.timers.Generation()

	r.command(types.CommandReset)

	r.eng.processEvent(types.TimerExpiredEvent{
		TimerID:    7,
		Generation: oldGen,
		Kind:       types.TimerKindPhase,
	}, r.fc.Now())

	assert.Equal(t, types.PhaseWarmup, r.eng.state.Phase)
	assert.Equal(t, uint64(1), r.eng.Stats().StaleTimers)
}

func TestEngine_IdleTimeoutResetsToWarmup(t *testing.T) {
	r := newRig(t, "max_periods: 1\n")
	r.command(types.CommandStart)
	r.goal(types.TeamRed)
	r.advance(180*time.Second, 3)
	require.Equal(t, types.PhaseGameOver, r.eng.state.Phase)
	oldID := r.eng.state.GameID

	r.advance(120*time.Second, 1)

	assert.Equal(t, types.PhaseWarmup, r.eng.state.Phase)
	assert.NotEqual(t, oldID, r.eng.state.GameID)
}

func TestEngine_GoalAfterGameOverIgnored(t *testing.T) {
	r := newRig(t, "max_periods: 1\n")
	r.command(types.CommandStart)
	r.goal(types.TeamRed)
	r.advance(180*time.Second, 3)
	require.Equal(t, types.PhaseGameOver, r.eng.state.Phase)
	final := r.eng.state.Score[types.TeamRed]

	r.goal(types.TeamRed)

	assert.Equal(t, final, r.eng.state.Score[types.TeamRed], "sensor bounce after the horn must not score")
}

func TestEngine_PanicInEventIsRecovered(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)

	var cmd *types.CommandEvent
	r.enqueue(cmd) // typed nil: dereferencing it panics in the handler
	r.tick()

	assert.Equal(t, uint64(1), r.eng.Stats().RecoveredPanics)

	// The loop keeps working afterwards.
	r.goal(types.TeamRed)
	assert.Equal(t, 2, r.eng.state.Score[types.TeamRed])
}

func TestEngine_ResumeRestoresSavedGamePaused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(quietYAML), 0644))
	provider, err := config.NewProvider(path)
	require.NoError(t, err)

	fc := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC))
	q := queue.NewInMemoryQueue(queue.DefaultBufferSize)
	saved := &recovery.State{
		GameID:         "rescued-game",
		Phase:          types.PhaseInPeriod,
		Period:         2,
		MaxPeriods:     3,
		Score:          types.ScorePair{Red: 3, Blue: 2},
		ClockRemaining: 42,
		StartedAt:      fc.Now().Add(-10 * time.Minute),
		SavedAt:        fc.Now().Add(-time.Minute),
		Config:         config.Default(),
	}
	eng := NewEngine(NewEngineOptions{
		Clock:          fc,
		ConfigProvider: provider,
		EventQueue:     q,
		Momentum:       analytics.NewTracker(time.Minute),
		Seed:           1,
		Resume:         saved,
	})
	eng.initializeGameState()
	r := &rig{t: t, fc: fc, q: q, provider: provider, path: path, eng: eng}

	assert.Equal(t, "rescued-game", r.eng.state.GameID)
	assert.Equal(t, types.PhaseInPeriod, r.eng.state.Phase)
	assert.Equal(t, 2, r.eng.state.Period)
	assert.Equal(t, 3, r.eng.state.Score[types.TeamRed])
	assert.True(t, r.eng.paused, "resumed game waits for the operator")

	// The frozen clock survives any wait.
	r.fc.Advance(time.Hour)
	r.tick()
	assert.Equal(t, 42*time.Second, r.eng.state.ClockRemaining)

	r.command(types.CommandResume)
	r.advance(42*time.Second, 1)
	assert.Equal(t, types.PhaseIntermission, r.eng.state.Phase, "period 2 of 3 rolls into intermission")
}

func TestEngine_UnresumableStateFallsBackToFreshGame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(quietYAML), 0644))
	provider, err := config.NewProvider(path)
	require.NoError(t, err)

	fc := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC))
	eng := NewEngine(NewEngineOptions{
		Clock:          fc,
		ConfigProvider: provider,
		EventQueue:     queue.NewInMemoryQueue(16),
		Seed:           1,
		Resume: &recovery.State{
			GameID:         "finished-game",
			Phase:          types.PhaseGameOver,
			Period:         3,
			MaxPeriods:     3,
			ClockRemaining: 0,
			SavedAt:        fc.Now(),
			Config:         config.Default(),
		},
	})
	eng.initializeGameState()

	assert.Equal(t, types.PhaseWarmup, eng.state.Phase)
	assert.NotEqual(t, "finished-game", eng.state.GameID)
}

func TestEngine_RecoveryStateFlowsWhileLive(t *testing.T) {
	r := newRig(t, "")
	r.command(types.CommandStart)
	r.goal(types.TeamRed)

	// 5 seconds of ticks at the default 10/s cadence crosses the
	// recovery save interval.
	for i := 0; i < 51; i++ {
		r.fc.Advance(100 * time.Millisecond)
		r.tick()
	}

	var saved *recovery.State
	for {
		select {
		case st := <-r.eng.RecoverySaves():
			saved = &st
			continue
		default:
		}
		break
	}
	require.NotNil(t, saved, "live games emit recovery saves")
	assert.Equal(t, r.eng.state.GameID, saved.GameID)
	assert.Equal(t, types.PhaseInPeriod, saved.Phase)
	assert.Equal(t, 2, saved.Score.Red)
}

func TestEngine_StartReturnsOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	provider, err := config.NewProvider(path)
	require.NoError(t, err)

	eng := NewEngine(NewEngineOptions{
		Clock:          clockwork.NewFakeClock(),
		ConfigProvider: provider,
		EventQueue:     queue.NewInMemoryQueue(16),
		Seed:           1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop on cancel")
	}
}
