package sensors

import (
	"encoding/json"
	"net/http"

	"github.com/cfortin/slapshot/pkg/log"
	"github.com/jonboulle/clockwork"
)

// PulseHandler serves simulated sensor pulses over HTTP. The server
// mounts it only when it runs against a SimulatedSource: a physical
// cabinet has no business taking goals over the network.
func PulseHandler(source *SimulatedSource, clk clockwork.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sensor := SensorID(r.PathValue("sensor"))
		if !sensor.Valid() {
			http.Error(w, "Unknown sensor", http.StatusNotFound)
			return
		}
		source.Pulse(sensor, clk.Now())
		log.Debug("Simulated pulse on %s", sensor)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(map[string]string{"pulsed": string(sensor)}); err != nil {
			log.Error("failed to encode response: %v", err)
		}
	}
}
