package sensors

import (
	"time"

	"github.com/cfortin/slapshot/pkg/log"
)

const simulatedBufferSize = 64

// SimulatedSource stands in for cabinet hardware. The simulator and
// tests script pulses through it; timestamps ride on the readings, so
// nothing here ever sleeps.
type SimulatedSource struct {
	readings chan Reading
}

func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{
		readings: make(chan Reading, simulatedBufferSize),
	}
}

func (s *SimulatedSource) Readings() <-chan Reading {
	return s.readings
}

// Pulse emits one clean trigger-and-release of a sensor: stableReads
// agreeing reads spaced minReadInterval apart, then the matching
// release. A pulse always comes out of the debouncer as exactly one
// trigger and one release.
func (s *SimulatedSource) Pulse(sensor SensorID, at time.Time) {
	t := at
	for i := 0; i < stableReads; i++ {
		s.Emit(Reading{Sensor: sensor, Value: true, At: t})
		t = t.Add(minReadInterval)
	}
	for i := 0; i < stableReads; i++ {
		s.Emit(Reading{Sensor: sensor, Value: false, At: t})
		t = t.Add(minReadInterval)
	}
}

// Flutter emits alternating reads that never stabilize, the way a
// worn microswitch chatters.
func (s *SimulatedSource) Flutter(sensor SensorID, at time.Time, reads int) {
	value := true
	t := at
	for i := 0; i < reads; i++ {
		s.Emit(Reading{Sensor: sensor, Value: value, At: t})
		value = !value
		t = t.Add(minReadInterval)
	}
}

// Emit queues one raw reading, dropping it when the buffer is full.
func (s *SimulatedSource) Emit(r Reading) {
	select {
	case s.readings <- r:
	default:
		log.Warn("Simulated source buffer full, dropping reading from %s", r.Sensor)
	}
}
