package sensors

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/queue"
)

// scoredOn maps a goal sensor to the team whose goal mouth it guards.
var scoredOn = map[SensorID]types.Team{
	SensorGoalRed:  types.TeamRed,
	SensorGoalBlue: types.TeamBlue,
}

// returnChute maps a puck sensor to the side it returns the puck to.
var returnChute = map[SensorID]types.Team{
	SensorPuckRed:  types.TeamRed,
	SensorPuckBlue: types.TeamBlue,
}

// Bridge turns raw sensor readings into engine events. Each sensor
// runs through its own debouncer; a stable pulse on a team's goal
// mouth credits the goal to the opposing team, and the puck sensors
// together track which side holds the puck.
type Bridge struct {
	source     Source
	queue      queue.Queue
	debouncers map[SensorID]*Debouncer

	lock       sync.Mutex
	possession string

	enqueueFailures atomic.Uint64
}

type NewBridgeOptions struct {
	Source Source
	Queue  queue.Queue
}

func NewBridge(opts NewBridgeOptions) *Bridge {
	return &Bridge{
		source: opts.Source,
		queue:  opts.Queue,
		debouncers: map[SensorID]*Debouncer{
			SensorGoalRed:  NewDebouncer(),
			SensorGoalBlue: NewDebouncer(),
			SensorPuckRed:  NewDebouncer(),
			SensorPuckBlue: NewDebouncer(),
		},
		possession: PossessionInPlay,
	}
}

// Start consumes readings until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reading := <-b.source.Readings():
			b.handleReading(reading)
		}
	}
}

func (b *Bridge) handleReading(r Reading) {
	debouncer, ok := b.debouncers[r.Sensor]
	if !ok {
		log.Warn("Reading from unknown sensor %q", r.Sensor)
		return
	}

	changed := debouncer.Observe(r.Value, r.At)
	if health := debouncer.Health(); health.Bounces == excessiveBounces {
		log.Warn("Excessive bouncing on sensor %s", r.Sensor)
	}
	if !changed {
		return
	}

	if team, ok := scoredOn[r.Sensor]; ok {
		// Only the trigger edge is a goal; the release is the puck
		// being fished back out.
		if !r.Value {
			return
		}
		b.enqueue(r.Sensor, &types.GoalDetectedEvent{Team: team.Opponent(), At: r.At})
		return
	}

	b.handlePuckChange(r)
}

func (b *Bridge) handlePuckChange(r Reading) {
	red := b.debouncers[SensorPuckRed].Value()
	blue := b.debouncers[SensorPuckBlue].Value()

	possession := PossessionInPlay
	switch {
	case red && blue:
		possession = PossessionUnknown
		log.Warn("Both puck sensors triggered, sensor misread likely")
	case red:
		possession = PossessionRed
	case blue:
		possession = PossessionBlue
	}

	b.lock.Lock()
	b.possession = possession
	b.lock.Unlock()

	// The engine only cares when the puck lands in a chute; it feeds
	// the quick-response window from there.
	if r.Value {
		b.enqueue(r.Sensor, &types.PuckReturnedEvent{Team: returnChute[r.Sensor], At: r.At})
	}
}

func (b *Bridge) enqueue(sensor SensorID, event interface{}) {
	if err := b.queue.Enqueue(event); err != nil {
		b.enqueueFailures.Add(1)
		log.Error("Failed to enqueue event from sensor %s: %v", sensor, err)
	}
}

// Possession reports where the puck sensors last saw the puck.
func (b *Bridge) Possession() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.possession
}

// Health reports per-sensor health counters.
func (b *Bridge) Health() map[SensorID]Health {
	out := make(map[SensorID]Health, len(b.debouncers))
	for id, debouncer := range b.debouncers {
		out[id] = debouncer.Health()
	}
	return out
}

// BridgeStats reports sensor funnel counters for the stats endpoint.
type BridgeStats struct {
	Possession      string              `json:"possession"`
	EnqueueFailures uint64              `json:"enqueue_failures"`
	Sensors         map[SensorID]Health `json:"sensors"`
}

func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		Possession:      b.Possession(),
		EnqueueFailures: b.enqueueFailures.Load(),
		Sensors:         b.Health(),
	}
}

// ResetSensors clears every debouncer, for operator-driven recovery of
// a flaky table.
func (b *Bridge) ResetSensors() {
	for id, debouncer := range b.debouncers {
		debouncer.Reset()
		log.Info("Reset sensor %s", id)
	}
}
