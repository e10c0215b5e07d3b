package sensors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestPulseHandler_PulsesTheNamedSensor(t *testing.T) {
	source := NewSimulatedSource()
	handler := PulseHandler(source, clockwork.NewFakeClock())

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/goal_red/pulse", nil)
	req.SetPathValue("sensor", "goal_red")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "{\"pulsed\":\"goal_red\"}\n", rec.Body.String())

	readings := drain(source)
	assert.Len(t, readings, 2*stableReads)
	assert.Equal(t, SensorGoalRed, readings[0].Sensor)
}

func TestPulseHandler_RejectsUnknownSensors(t *testing.T) {
	source := NewSimulatedSource()
	handler := PulseHandler(source, clockwork.NewFakeClock())

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/goal_green/pulse", nil)
	req.SetPathValue("sensor", "goal_green")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, drain(source))
}
