package sensors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(s *SimulatedSource) []Reading {
	var out []Reading
	for {
		select {
		case r := <-s.readings:
			out = append(out, r)
		default:
			return out
		}
	}
}

func TestSimulatedSource_PulseShape(t *testing.T) {
	source := NewSimulatedSource()
	at := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)

	source.Pulse(SensorGoalRed, at)

	readings := drain(source)
	require.Len(t, readings, 2*stableReads)
	for i, r := range readings {
		assert.Equal(t, SensorGoalRed, r.Sensor)
		assert.Equal(t, i < stableReads, r.Value)
		assert.Equal(t, at.Add(time.Duration(i)*minReadInterval), r.At)
	}
}

func TestSimulatedSource_FlutterAlternates(t *testing.T) {
	source := NewSimulatedSource()
	at := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)

	source.Flutter(SensorPuckBlue, at, 4)

	readings := drain(source)
	require.Len(t, readings, 4)
	assert.Equal(t, []bool{true, false, true, false}, []bool{
		readings[0].Value, readings[1].Value, readings[2].Value, readings[3].Value,
	})
}

func TestSimulatedSource_DropsWhenFull(t *testing.T) {
	source := NewSimulatedSource()
	at := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)

	for i := 0; i < simulatedBufferSize+5; i++ {
		source.Emit(Reading{Sensor: SensorPuckRed, Value: true, At: at})
	}

	assert.Len(t, drain(source), simulatedBufferSize)
}
