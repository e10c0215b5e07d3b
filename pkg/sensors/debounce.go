package sensors

import (
	"sync"
	"time"
)

const (
	// stableReads is how many consecutive agreeing observations it
	// takes for a reading to count as stable.
	stableReads = 3
	// minReadInterval is the spacing required between observations for
	// them to count toward stability. Anything faster is still the
	// same mechanical bounce.
	minReadInterval = 50 * time.Millisecond
	// excessiveBounces is the bounce count past which a sensor is
	// reported unhealthy.
	excessiveBounces = 10
)

// Health is one sensor's health counters.
type Health struct {
	RawPulses uint64    `json:"raw_pulses"`
	Accepted  uint64    `json:"accepted"`
	Bounces   uint64    `json:"bounces"`
	LastSeen  time.Time `json:"last_seen"`
}

// Debouncer filters one sensor's raw transitions into stable readings.
// A change is accepted after stableReads consecutive agreeing
// observations spaced at least minReadInterval apart; faster reads are
// ignored outright. Bounces accumulate whenever a candidate change
// fizzles before stabilizing, and reset on the next accepted change.
type Debouncer struct {
	lock     sync.Mutex
	value    bool
	pending  bool
	run      int
	lastRead time.Time

	rawPulses uint64
	accepted  uint64
	bounces   uint64
	lastSeen  time.Time
}

func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Observe records one raw reading and reports whether it flipped the
// debounced value.
func (d *Debouncer) Observe(value bool, at time.Time) bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.rawPulses++
	d.lastSeen = at

	if !d.lastRead.IsZero() && at.Sub(d.lastRead) < minReadInterval {
		return false
	}
	d.lastRead = at

	if value != d.pending {
		if d.run > 0 && d.run < stableReads {
			d.bounces++
		}
		d.pending = value
		d.run = 1
	} else {
		d.run++
	}

	if d.run >= stableReads && value != d.value {
		d.value = value
		d.accepted++
		d.bounces = 0
		return true
	}
	return false
}

// Value returns the current debounced reading.
func (d *Debouncer) Value() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.value
}

// Healthy reports whether the sensor is bouncing within tolerance.
func (d *Debouncer) Healthy() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.bounces < excessiveBounces
}

func (d *Debouncer) Health() Health {
	d.lock.Lock()
	defer d.lock.Unlock()
	return Health{
		RawPulses: d.rawPulses,
		Accepted:  d.accepted,
		Bounces:   d.bounces,
		LastSeen:  d.lastSeen,
	}
}

// Reset clears the debouncer back to an untriggered state. Used when
// an operator reseats a flaky sensor.
func (d *Debouncer) Reset() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.value = false
	d.pending = false
	d.run = 0
	d.lastRead = time.Time{}
	d.bounces = 0
}
