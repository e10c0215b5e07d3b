package engine

import (
	"math/rand"
	"time"

	"github.com/cfortin/slapshot/pkg/analytics"
	"github.com/cfortin/slapshot/pkg/clock"
	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine/constants"
	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/journal"
	"github.com/cfortin/slapshot/pkg/log"
)

// PowerUpScheduler rolls for random cabinet events once per tick. All
// randomness flows through one seeded source, so a fixed seed replays
// the same game. Frequencies are mean intervals in seconds, converted
// to a per-tick trigger probability of tick_interval/frequency.
type PowerUpScheduler struct {
	cfg      config.Config
	rng      *rand.Rand
	timers   *clock.TimerService
	momentum *analytics.Tracker
	journal  func(journal.Entry)
}

func newPowerUpScheduler(cfg config.Config, rng *rand.Rand, timers *clock.TimerService, momentum *analytics.Tracker) *PowerUpScheduler {
	return &PowerUpScheduler{
		cfg:      cfg,
		rng:      rng,
		timers:   timers,
		momentum: momentum,
	}
}

// Tick rolls once per team for a power-up grant and once per global
// display event. Teams that already own a power-play-class event never
// stack a second one. Runs only while a playing phase is live; the
// engine skips the call while paused.
func (ps *PowerUpScheduler) Tick(state *types.GameState, now time.Time) {
	if !state.Phase.Playing() {
		return
	}

	pGrant := ps.probability(ps.cfg.PowerUpFrequency)
	for _, team := range types.Teams {
		if state.ActivePowerPlay(team) != nil {
			continue
		}
		if ps.rng.Float64() >= pGrant {
			continue
		}
		kind := constants.PowerPlayKinds[ps.rng.Intn(len(constants.PowerPlayKinds))]
		ps.Grant(state, team, kind, now)
	}

	if ps.cfg.TauntsEnabled && ps.rng.Float64() < ps.probability(ps.cfg.TauntFrequency) {
		addDisplayEvent(state, ps.timers, constants.EventTaunt, constants.LabelTaunt, now)
		log.Debug("taunt fired")
	}
	if ps.cfg.RandomSoundsEnabled && ps.rng.Float64() < ps.probability(ps.cfg.RandomSoundFrequency) {
		addDisplayEvent(state, ps.timers, constants.EventRandomSound, constants.LabelRandomSound, now)
		log.Debug("random sound fired")
	}
}

// Grant activates a power-play-class power-up for team with a duration
// drawn uniformly from the configured range. Also used by the engine
// when the combo reward type grants a power-up instead of a point.
func (ps *PowerUpScheduler) Grant(state *types.GameState, team types.Team, kind string, now time.Time) *types.ActiveEvent {
	d := ps.drawDuration()
	id := ps.timers.StartTimer(types.TimerKindPowerUp, team, d, true)
	ev := &types.ActiveEvent{
		ID:        id,
		Kind:      kind,
		Class:     types.EventClassPowerPlay,
		Team:      team,
		Label:     constants.PowerUpLabels[kind],
		StartedAt: now,
		ExpiresAt: now.Add(d),
	}
	state.ActiveEvents[id] = ev
	state.PowerUpCount++

	if kind == constants.PowerUpMomentumShift && ps.momentum != nil {
		ps.momentum.Jolt(team, constants.MomentumShiftJolt, now)
	}
	if ps.journal != nil {
		ps.journal(journal.Entry{
			At:     now,
			Type:   journal.EntryPowerUp,
			Team:   team,
			Kind:   kind,
			Period: state.Period,
			Clock:  state.ClockRemaining.Seconds(),
			Score:  types.ScorePair{Red: state.Score[types.TeamRed], Blue: state.Score[types.TeamBlue]},
		})
	}

	log.Info("Power-up %s active for team %s for %.1fs", kind, team, d.Seconds())
	return ev
}

func (ps *PowerUpScheduler) drawDuration() time.Duration {
	min := ps.cfg.PowerUpMinDuration
	max := ps.cfg.PowerUpMaxDuration
	spread := float64(max - min)
	seconds := float64(min) + ps.rng.Float64()*spread
	return time.Duration(seconds * float64(time.Second))
}

func (ps *PowerUpScheduler) probability(frequencySeconds int) float64 {
	if frequencySeconds <= 0 {
		return 0
	}
	return ps.cfg.TickInterval().Seconds() / float64(frequencySeconds)
}

// addDisplayEvent adds a short-lived banner to the active event set.
// Display banners run on wall time: they are not pausable and overlap
// freely with power-ups and each other.
func addDisplayEvent(state *types.GameState, timers *clock.TimerService, kind, label string, now time.Time) {
	id := timers.StartTimer(types.TimerKindDisplay, "", constants.DisplayEventDuration, false)
	state.ActiveEvents[id] = &types.ActiveEvent{
		ID:        id,
		Kind:      kind,
		Class:     types.EventClassDisplay,
		Label:     label,
		StartedAt: now,
		ExpiresAt: now.Add(constants.DisplayEventDuration),
	}
}
