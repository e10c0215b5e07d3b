package engine

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cfortin/slapshot/pkg/analytics"
	"github.com/cfortin/slapshot/pkg/clock"
	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine/constants"
	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/journal"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/queue"
	"github.com/cfortin/slapshot/pkg/recovery"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Outbound channel capacities. Overflow never blocks the loop: the
// snapshot and summary channels drop their oldest entry first, the
// journal channel drops the incoming journal.
const (
	snapshotBufferSize = 64
	summaryBufferSize  = 8
	journalBufferSize  = 4
	recoveryBufferSize = 4
)

// Engine owns the canonical game state and runs the authoritative tick
// loop. All state mutation happens on the loop goroutine: the rest of
// the process talks to the game exclusively through queue events in and
// snapshot/summary handoffs out.
type Engine struct {
	clk         clockwork.Clock
	cfgProvider *config.Provider
	cfg         config.Config
	eventQueue  queue.Queue
	timers      *clock.TimerService
	rng         *rand.Rand
	score       *ScoreEngine
	scheduler   *PowerUpScheduler
	momentum    *analytics.Tracker

	state        *types.GameState
	recorder     *journal.Recorder
	paused       bool
	phaseTimerID uint64
	possession   types.Team
	resume       *recovery.State

	tickInterval     time.Duration
	ticksPerRecovery uint64
	tickCount        uint64

	snapshotChan chan types.Snapshot
	summaryChan  chan types.GameSummary
	journalChan  chan journal.Game
	recoveryChan chan recovery.State

	info  atomic.Value
	stats engineCounters
}

type engineCounters struct {
	ticks            atomic.Uint64
	eventsProcessed  atomic.Uint64
	eventsIgnored    atomic.Uint64
	staleTimers      atomic.Uint64
	snapshotsDropped atomic.Uint64
	summariesDropped atomic.Uint64
	journalsDropped  atomic.Uint64
	recoveredPanics  atomic.Uint64
}

// loopInfo is the loop-owned state mirrored for concurrent readers.
type loopInfo struct {
	GameID     string
	Phase      types.Phase
	Paused     bool
	Possession types.Team
}

// Stats is a point-in-time view of the engine, served over the stats
// endpoint.
type Stats struct {
	GameID           string `json:"game_id"`
	Phase            string `json:"phase"`
	Paused           bool   `json:"paused"`
	Possession       string `json:"possession,omitempty"`
	Ticks            uint64 `json:"ticks"`
	EventsProcessed  uint64 `json:"events_processed"`
	EventsIgnored    uint64 `json:"events_ignored"`
	StaleTimers      uint64 `json:"stale_timers"`
	SnapshotsDropped uint64 `json:"snapshots_dropped"`
	SummariesDropped uint64 `json:"summaries_dropped"`
	JournalsDropped  uint64 `json:"journals_dropped"`
	RecoveredPanics  uint64 `json:"recovered_panics"`
}

// NewEngineOptions contains options for creating a new Engine.
type NewEngineOptions struct {
	Clock          clockwork.Clock
	ConfigProvider *config.Provider
	EventQueue     queue.Queue
	Momentum       *analytics.Tracker
	// Seed fixes the scheduler's random source. Zero derives a seed
	// from the clock.
	Seed int64
	// Resume restores a crash-recovered game instead of starting fresh.
	Resume *recovery.State
}

func NewEngine(opts NewEngineOptions) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = opts.Clock.Now().UnixNano()
	}
	log.Info("Engine random seed: %d", seed)

	e := &Engine{
		clk:          opts.Clock,
		cfgProvider:  opts.ConfigProvider,
		eventQueue:   opts.EventQueue,
		rng:          rand.New(rand.NewSource(seed)),
		momentum:     opts.Momentum,
		resume:       opts.Resume,
		snapshotChan: make(chan types.Snapshot, snapshotBufferSize),
		summaryChan:  make(chan types.GameSummary, summaryBufferSize),
		journalChan:  make(chan journal.Game, journalBufferSize),
		recoveryChan: make(chan recovery.State, recoveryBufferSize),
	}
	e.timers = clock.NewTimerService(opts.Clock, opts.EventQueue.Enqueue)
	e.applyConfig(opts.ConfigProvider.Active())
	return e
}

// applyConfig rebuilds the config-derived components. Called at
// construction and whenever a reset promotes a staged config: games
// never change rules mid-flight.
func (e *Engine) applyConfig(cfg config.Config) {
	e.cfg = cfg
	e.tickInterval = cfg.TickInterval()
	e.ticksPerRecovery = uint64(constants.RecoverySaveInterval / e.tickInterval)
	if e.ticksPerRecovery == 0 {
		e.ticksPerRecovery = 1
	}
	e.score = newScoreEngine(cfg)
	e.scheduler = newPowerUpScheduler(cfg, e.rng, e.timers, e.momentum)
	e.scheduler.journal = e.journalEntry
}

// Start runs the tick loop until ctx is canceled.
func (e *Engine) Start(ctx context.Context) error {
	e.initializeGameState()

	interval := e.tickInterval
	ticker := e.clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.Chan():
			e.tick(t)
			if e.tickInterval != interval {
				interval = e.tickInterval
				ticker.Reset(interval)
				log.Info("Tick interval now %s", interval)
			}
		}
	}
}

func (e *Engine) initializeGameState() {
	if e.resume != nil {
		saved := *e.resume
		e.resume = nil
		err := e.resumeGame(saved)
		if err == nil {
			return
		}
		log.Warn("Cannot resume saved game: %v", err)
	}
	e.newGame()
}

// newGame builds a fresh warmup state under the current config.
func (e *Engine) newGame() {
	gameID := uuid.NewString()
	e.state = types.NewGameState(gameID, e.cfg.MaxPeriods, e.cfg.PeriodDuration())
	e.recorder = journal.NewRecorder(gameID)
	e.paused = false
	e.phaseTimerID = 0
	e.possession = ""
	if e.momentum != nil {
		e.momentum.Reset()
	}
	e.publishInfo()
	log.Info("Game %s waiting in warmup", gameID)
}

// resumeGame restores a crash-recovered game: the scoreboard comes back
// at the saved period and score with the clock frozen, waiting for an
// operator resume. The saved config wins over the active one so the
// game finishes under the rules it started with.
func (e *Engine) resumeGame(saved recovery.State) error {
	switch saved.Phase {
	case types.PhaseInPeriod, types.PhaseOvertime, types.PhaseIntermission:
	default:
		return &ErrNotResumable{Phase: saved.Phase}
	}
	if saved.ClockRemaining <= 0 {
		return &ErrNotResumable{Phase: saved.Phase}
	}
	cfg := saved.Config
	if err := cfg.Validate(); err != nil {
		log.Warn("Saved config invalid, resuming under the active config: %v", err)
		cfg = e.cfgProvider.Active()
	}
	e.applyConfig(cfg)

	remaining := time.Duration(saved.ClockRemaining * float64(time.Second))
	e.state = types.NewGameState(saved.GameID, saved.MaxPeriods, e.cfg.PeriodDuration())
	e.state.Phase = saved.Phase
	e.state.Period = saved.Period
	e.state.Score[types.TeamRed] = saved.Score.Red
	e.state.Score[types.TeamBlue] = saved.Score.Blue
	e.state.IsSuddenDeath = saved.IsSuddenDeath
	e.state.ComboCount = saved.ComboCount
	e.state.PowerUpCount = saved.PowerUpCount
	e.state.StartedAt = saved.StartedAt
	e.state.ClockRemaining = remaining
	e.recorder = journal.NewRecorder(saved.GameID)
	e.possession = ""

	e.phaseTimerID = e.timers.StartTimer(types.TimerKindPhase, "", remaining, true)
	e.timers.PauseAll()
	e.paused = true
	e.publishInfo()
	log.Info("Resumed game %s at period %d/%d (%s) with %.0fs on the clock, paused",
		saved.GameID, saved.Period, saved.MaxPeriods, saved.Phase, saved.ClockRemaining)
	return nil
}

// tick runs one loop iteration: drain inbound events in arrival order,
// refresh the clock, roll the scheduler, and hand off a snapshot.
func (e *Engine) tick(now time.Time) {
	e.stats.ticks.Add(1)
	e.tickCount++
	e.processEvents(now)
	e.refreshClock()
	if !e.paused {
		e.scheduler.Tick(e.state, now)
	}
	e.maybeSaveRecovery(now)
	e.publishSnapshot()
	e.publishInfo()
}

func (e *Engine) processEvents(now time.Time) {
	pending, err := e.eventQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read pending events: %v", err)
		return
	}
	for _, item := range pending {
		e.processEvent(item, now)
	}
}

// processEvent dispatches one queued event. The recover at this
// boundary keeps a bad event from taking the loop down with it.
func (e *Engine) processEvent(item interface{}, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.stats.recoveredPanics.Add(1)
			log.Error("Recovered from panic while processing %T: %v", item, r)
		}
	}()
	e.stats.eventsProcessed.Add(1)
	switch event := item.(type) {
	case *types.GoalDetectedEvent:
		at := event.At
		if at.IsZero() {
			at = now
		}
		e.handleGoal(event.Team, at)
	case *types.PuckReturnedEvent:
		e.handlePuckReturned(event)
	case types.TimerExpiredEvent:
		e.handleTimerExpired(event, now)
	case *types.CommandEvent:
		e.handleCommand(event, now)
	default:
		e.stats.eventsIgnored.Add(1)
		log.Warn("Ignoring unknown event type %T", item)
	}
}

// refreshClock mirrors the live phase countdown into the state. The
// clock freezes wherever it stands in Warmup and GameOver.
func (e *Engine) refreshClock() {
	if e.phaseTimerID == 0 {
		return
	}
	e.state.ClockRemaining = e.timers.Remaining(e.phaseTimerID)
}

func (e *Engine) maybeSaveRecovery(now time.Time) {
	if e.tickCount%e.ticksPerRecovery != 0 {
		return
	}
	switch e.state.Phase {
	case types.PhaseInPeriod, types.PhaseOvertime, types.PhaseIntermission:
		e.sendRecoveryState(now)
	}
}

// sendRecoveryState hands the current resume state to the recovery
// worker. Live phases are saved; warmup and game over clear the file.
func (e *Engine) sendRecoveryState(now time.Time) {
	st := recovery.State{
		GameID:         e.state.GameID,
		Phase:          e.state.Phase,
		Period:         e.state.Period,
		MaxPeriods:     e.state.MaxPeriods,
		Score:          e.scorePair(),
		ClockRemaining: e.state.ClockRemaining.Seconds(),
		IsSuddenDeath:  e.state.IsSuddenDeath,
		ComboCount:     e.state.ComboCount,
		PowerUpCount:   e.state.PowerUpCount,
		StartedAt:      e.state.StartedAt,
		SavedAt:        now,
		Config:         e.cfg,
	}
	select {
	case e.recoveryChan <- st:
	default:
		// The recovery worker is behind; the next interval carries
		// fresher state.
	}
}

// publishSnapshot hands the current snapshot to the broadcast worker.
// Subscribers only care about the newest state, so overflow drops the
// oldest queued snapshot first.
func (e *Engine) publishSnapshot() {
	snap := types.SnapshotFromState(e.state)
	select {
	case e.snapshotChan <- snap:
		return
	default:
	}
	select {
	case <-e.snapshotChan:
		e.stats.snapshotsDropped.Add(1)
	default:
	}
	select {
	case e.snapshotChan <- snap:
	default:
		e.stats.snapshotsDropped.Add(1)
	}
}

func (e *Engine) publishSummary(summary types.GameSummary) {
	select {
	case e.summaryChan <- summary:
		return
	default:
	}
	select {
	case <-e.summaryChan:
		e.stats.summariesDropped.Add(1)
		log.Warn("Summary channel full, dropping oldest summary")
	default:
	}
	select {
	case e.summaryChan <- summary:
	default:
		e.stats.summariesDropped.Add(1)
		log.Error("Failed to hand off summary for game %s", summary.GameID)
	}
}

func (e *Engine) publishJournal() {
	g := e.recorder.Game()
	if len(g.Entries) == 0 {
		return
	}
	select {
	case e.journalChan <- g:
	default:
		e.stats.journalsDropped.Add(1)
		log.Warn("Journal channel full, dropping journal for game %s", g.GameID)
	}
}

func (e *Engine) journalEntry(entry journal.Entry) {
	e.recorder.Add(entry)
}

func (e *Engine) scorePair() types.ScorePair {
	return types.ScorePair{
		Red:  e.state.Score[types.TeamRed],
		Blue: e.state.Score[types.TeamBlue],
	}
}

func (e *Engine) publishInfo() {
	e.info.Store(loopInfo{
		GameID:     e.state.GameID,
		Phase:      e.state.Phase,
		Paused:     e.paused,
		Possession: e.possession,
	})
}

// Snapshots is the outbound snapshot stream for the broadcast worker.
func (e *Engine) Snapshots() <-chan types.Snapshot {
	return e.snapshotChan
}

// Summaries is the outbound stream of finished games for the
// persistence worker.
func (e *Engine) Summaries() <-chan types.GameSummary {
	return e.summaryChan
}

// Journals is the outbound stream of finished game journals.
func (e *Engine) Journals() <-chan journal.Game {
	return e.journalChan
}

// RecoverySaves is the outbound stream of resumable states.
func (e *Engine) RecoverySaves() <-chan recovery.State {
	return e.recoveryChan
}

// Stats returns a point-in-time view of the loop counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		Ticks:            e.stats.ticks.Load(),
		EventsProcessed:  e.stats.eventsProcessed.Load(),
		EventsIgnored:    e.stats.eventsIgnored.Load(),
		StaleTimers:      e.stats.staleTimers.Load(),
		SnapshotsDropped: e.stats.snapshotsDropped.Load(),
		SummariesDropped: e.stats.summariesDropped.Load(),
		JournalsDropped:  e.stats.journalsDropped.Load(),
		RecoveredPanics:  e.stats.recoveredPanics.Load(),
	}
	if info, ok := e.info.Load().(loopInfo); ok {
		s.GameID = info.GameID
		s.Phase = string(info.Phase)
		s.Paused = info.Paused
		s.Possession = string(info.Possession)
	}
	return s
}
