// Package sensors bridges the cabinet's sensor hardware to the engine
// queue. The GPIO layer itself lives outside this module; what lives
// here is the contract it feeds (raw readings) and everything between
// a raw pulse and a game event: debouncing, goal attribution, and puck
// possession tracking.
package sensors

import (
	"time"
)

// SensorID names a physical sensor position on the cabinet.
type SensorID string

const (
	// SensorGoalRed is the goal mouth on red's side of the table. A
	// puck in it is a goal for blue.
	SensorGoalRed SensorID = "goal_red"
	// SensorGoalBlue is the goal mouth on blue's side.
	SensorGoalBlue SensorID = "goal_blue"
	// SensorPuckRed detects the puck sitting in red's return chute.
	SensorPuckRed SensorID = "puck_red"
	// SensorPuckBlue detects the puck sitting in blue's return chute.
	SensorPuckBlue SensorID = "puck_blue"
)

// Valid reports whether id names a sensor the cabinet actually has.
func (id SensorID) Valid() bool {
	switch id {
	case SensorGoalRed, SensorGoalBlue, SensorPuckRed, SensorPuckBlue:
		return true
	}
	return false
}

// Reading is one raw sensor observation. Value is true while the
// sensor is triggered (beam broken, puck present).
type Reading struct {
	Sensor SensorID
	Value  bool
	At     time.Time
}

// Source delivers raw sensor readings. Implementations own their
// acquisition loop (GPIO interrupts, a simulation script) and hand
// readings over a channel.
type Source interface {
	Readings() <-chan Reading
}

// Possession states reported by the puck sensors.
const (
	PossessionRed    = "red"
	PossessionBlue   = "blue"
	PossessionInPlay = "in_play"
	// PossessionUnknown means both return chutes report a puck, which
	// a one-puck table cannot do. A sensor is misreading.
	PossessionUnknown = "unknown"
)
