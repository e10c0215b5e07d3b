package constants

import "time"

// Power-play-class power-up kinds. At most one may be active per team.
const (
	// PowerUpPowerPlay makes the owning team's goals worth one extra point.
	PowerUpPowerPlay = "power_play"
	// PowerUpLuckyShot doubles the owning team's goal points.
	PowerUpLuckyShot = "lucky_shot"
	// PowerUpMomentumShift jolts the momentum tracker toward the owner.
	PowerUpMomentumShift = "momentum_shift"
)

// Display-only event kinds. These overlap freely with power-ups and
// with each other.
const (
	EventTaunt         = "taunt"
	EventRandomSound   = "random_sound"
	EventCombo         = "combo"
	EventCritical      = "critical"
	EventQuickResponse = "quick_response"
)

// Display labels shown on the cabinet and the web viewer.
const (
	LabelPowerPlay     = "POWER PLAY!"
	LabelLuckyShot     = "LUCKY SHOT!"
	LabelMomentumShift = "MOMENTUM SHIFT!"
	LabelTaunt         = "TAUNT!"
	LabelRandomSound   = "..."
	LabelCritical      = "CRITICAL GOAL!"
	LabelQuickResponse = "QUICK RESPONSE!"
)

// PowerPlayKinds are the kinds the scheduler draws from.
var PowerPlayKinds = []string{PowerUpPowerPlay, PowerUpLuckyShot, PowerUpMomentumShift}

// PowerUpLabels maps power-up kinds to their display labels.
var PowerUpLabels = map[string]string{
	PowerUpPowerPlay:     LabelPowerPlay,
	PowerUpLuckyShot:     LabelLuckyShot,
	PowerUpMomentumShift: LabelMomentumShift,
}

const (
	// CriticalClockThreshold marks the final stretch of a period as
	// critical: goals inside it earn a bonus point.
	CriticalClockThreshold = 60 * time.Second
	// CriticalScoreGap is the score differential at or under which any
	// goal counts as critical.
	CriticalScoreGap = 1
	// DisplayEventDuration is how long display-only banners stay active.
	DisplayEventDuration = 3 * time.Second
	// MomentumShiftJolt is the synthetic momentum applied by the
	// momentum_shift power-up.
	MomentumShiftJolt = 25.0
	// RecoverySaveInterval is how often a resumable state is written
	// while a game is live.
	RecoverySaveInterval = 5 * time.Second
	// RecoveryMaxAge is how stale a recovery file may be and still be
	// offered for resume.
	RecoveryMaxAge = time.Hour
	// MomentumWindow is the rolling window the momentum tracker scores
	// goals over.
	MomentumWindow = time.Minute
)
