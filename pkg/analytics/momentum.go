package analytics

import (
	"math"
	"sync"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
)

// Momentum intensity buckets, keyed off the absolute momentum score.
const (
	IntensityNeutral      = "neutral"
	IntensityModerate     = "moderate"
	IntensityStrong       = "strong"
	IntensityOverwhelming = "overwhelming"
)

// Momentum trend labels derived from recent score samples.
const (
	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// Thresholds for team attribution and intensity buckets.
const (
	attributionThreshold  = 33.0
	strongThreshold       = 60.0
	overwhelmingThreshold = 80.0
	trendStableBand       = 10.0
	maxStreakMultiplier   = 1.5
)

// State is a read-only view of the momentum model, served over the
// stats endpoint. Team is empty while neither side holds momentum.
type State struct {
	Team        string  `json:"team,omitempty"`
	Score       float64 `json:"score"`
	RecentGoals int     `json:"recent_goals"`
	Intensity   string  `json:"intensity"`
	Trend       string  `json:"trend"`
}

// Analysis adds whole-game aggregates on top of the live state.
type Analysis struct {
	Current      State   `json:"current_state"`
	TotalShifts  int     `json:"total_shifts"`
	DominantTeam string  `json:"dominant_team,omitempty"`
	AvgScore     float64 `json:"avg_score"`
	MaxScore     float64 `json:"max_score"`
}

type goalSample struct {
	team types.Team
	at   time.Time
}

type historySample struct {
	at      time.Time
	score   float64
	team    types.Team
	trigger string
}

// Tracker keeps a rolling window of goals and derives a momentum score
// in [-100, 100], positive toward red. Goals decay exponentially with a
// half-life of half the window; consecutive goals by one team multiply
// the score up to 1.5x. The tracker never feeds back into scoring: it
// exists for the stats endpoint and the momentum_shift power-up jolt.
//
// Callers pass explicit timestamps, so the model is deterministic and
// the engine's clock stays the only time source.
type Tracker struct {
	mu      sync.Mutex
	window  time.Duration
	goals   []goalSample
	score   float64
	team    types.Team
	history []historySample
}

// NewTracker returns a tracker with the given rolling window.
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{window: window}
}

// AddGoal feeds an accepted goal into the model and recomputes the
// momentum score.
func (t *Tracker) AddGoal(team types.Team, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Drop goals that have aged out of the window.
	cutoff := at.Add(-t.window)
	kept := t.goals[:0]
	for _, g := range t.goals {
		if !g.at.Before(cutoff) {
			kept = append(kept, g)
		}
	}
	t.goals = append(kept, goalSample{team: team, at: at})

	t.recompute()
	t.history = append(t.history, historySample{at: at, score: t.score, team: t.team, trigger: "goal"})
}

// Jolt applies a synthetic momentum push toward team without recording
// a goal. Used by the momentum_shift power-up.
func (t *Tracker) Jolt(team types.Team, amount float64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if team == types.TeamRed {
		t.score += amount
	} else {
		t.score -= amount
	}
	t.score = clampScore(t.score)
	t.attribute()
	t.history = append(t.history, historySample{at: at, score: t.score, team: t.team, trigger: "power_up"})
}

// Reset clears the model for a new game.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.goals = nil
	t.score = 0
	t.team = ""
	t.history = nil
}

// State returns the current momentum view.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// GameAnalysis returns the live state plus whole-game aggregates.
func (t *Tracker) GameAnalysis() Analysis {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := Analysis{Current: t.stateLocked()}
	if len(t.history) == 0 {
		return a
	}

	var prev types.Team
	var sum, max float64
	redSamples, blueSamples := 0, 0
	for _, h := range t.history {
		if h.team != prev && h.team != "" {
			a.TotalShifts++
			prev = h.team
		}
		sum += h.score
		if abs := math.Abs(h.score); abs > max {
			max = abs
		}
		switch h.team {
		case types.TeamRed:
			redSamples++
		case types.TeamBlue:
			blueSamples++
		}
	}
	a.AvgScore = sum / float64(len(t.history))
	a.MaxScore = max

	// A team is dominant only with a clear margin over the sample count.
	margin := float64(len(t.history)) * 0.1
	switch {
	case float64(redSamples-blueSamples) > margin:
		a.DominantTeam = string(types.TeamRed)
	case float64(blueSamples-redSamples) > margin:
		a.DominantTeam = string(types.TeamBlue)
	}
	return a
}

func (t *Tracker) stateLocked() State {
	return State{
		Team:        string(t.team),
		Score:       t.score,
		RecentGoals: len(t.goals),
		Intensity:   t.intensity(),
		Trend:       t.trend(),
	}
}

func (t *Tracker) recompute() {
	if len(t.goals) == 0 {
		t.score = 0
		t.team = ""
		return
	}

	// Exponential decay relative to the latest goal, half-life of half
	// the window.
	latest := t.goals[len(t.goals)-1].at
	halfLife := t.window.Seconds() / 2
	var weightedSum, weightTotal float64
	for _, g := range t.goals {
		age := latest.Sub(g.at).Seconds()
		weight := math.Exp(-age / halfLife)
		value := 1.0
		if g.team == types.TeamBlue {
			value = -1.0
		}
		weightedSum += value * weight
		weightTotal += weight
	}
	timeWeighted := 0.0
	if weightTotal > 0 {
		timeWeighted = weightedSum / weightTotal * 100
	}

	t.score = clampScore(timeWeighted * t.streakMultiplier())
	t.attribute()
}

func (t *Tracker) streakMultiplier() float64 {
	if len(t.goals) < 2 {
		return 1.0
	}
	team := t.goals[len(t.goals)-1].team
	streak := 1
	for i := len(t.goals) - 2; i >= 0; i-- {
		if t.goals[i].team != team {
			break
		}
		streak++
	}
	return math.Min(maxStreakMultiplier, 1+float64(streak-1)*0.1)
}

func (t *Tracker) attribute() {
	switch {
	case t.score >= attributionThreshold:
		t.team = types.TeamRed
	case t.score <= -attributionThreshold:
		t.team = types.TeamBlue
	default:
		t.team = ""
	}
}

func (t *Tracker) intensity() string {
	abs := math.Abs(t.score)
	switch {
	case abs >= overwhelmingThreshold:
		return IntensityOverwhelming
	case abs >= strongThreshold:
		return IntensityStrong
	case abs >= attributionThreshold:
		return IntensityModerate
	default:
		return IntensityNeutral
	}
}

func (t *Tracker) trend() string {
	if len(t.history) < 2 {
		return TrendStable
	}
	recent := t.history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var change float64
	for i := 1; i < len(recent); i++ {
		change += recent[i].score - recent[i-1].score
	}
	avg := change / float64(len(recent)-1)
	switch {
	case math.Abs(avg) < trendStableBand:
		return TrendStable
	case avg > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}

func clampScore(s float64) float64 {
	if s > 100 {
		return 100
	}
	if s < -100 {
		return -100
	}
	return s
}
