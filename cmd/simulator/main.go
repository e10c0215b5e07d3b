// The simulator drives a cabinet-less server for development: it
// watches the websocket snapshot stream and renders it to stdout while
// firing sensor pulses and operator commands at the HTTP API, either
// scripted or interactively from stdin. The server must be running
// with -simulate for the sensor routes to exist.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/sensors"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

func main() {
	// The .env file is optional; real environment variables still apply.
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded: %v", err)
	}

	addr := flag.String("addr", "localhost:5000", "Server host:port")
	logLevel := flag.String("log-level", "info", "Log level")
	script := flag.Bool("script", false, "Run the scripted demo instead of reading stdin")
	seed := flag.Int64("seed", 1, "Scripted demo random seed")
	actions := flag.Int("actions", 20, "Scripted demo action count")
	interval := flag.Duration("interval", 2*time.Second, "Scripted demo action spacing")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel))

	cab := &cabinet{
		base:   "http://" + *addr,
		client: &http.Client{Timeout: 5 * time.Second},
	}

	go watch("ws://" + *addr + "/ws")

	if *script {
		runScript(cab, *seed, *actions, *interval)
		// Let the trailing snapshots render before exiting.
		time.Sleep(time.Second)
		return
	}
	runInteractive(cab)
}

// cabinet is the HTTP side of the simulated table.
type cabinet struct {
	base   string
	client *http.Client
}

func (c *cabinet) command(name string) error {
	return c.post("/api/control/"+name, nil)
}

func (c *cabinet) pulse(sensor sensors.SensorID) error {
	return c.post(fmt.Sprintf("/api/sensors/%s/pulse", sensor), nil)
}

func (c *cabinet) adjust(team types.Team, delta int) error {
	body := fmt.Sprintf(`{"team":%q,"delta":%d}`, team, delta)
	return c.post("/api/score/adjust", strings.NewReader(body))
}

func (c *cabinet) post(path string, body io.Reader) error {
	resp, err := c.client.Post(c.base+path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

// goalSensorFor returns the goal mouth that credits team when pulsed:
// pucks land in the opponent's goal.
func goalSensorFor(team types.Team) sensors.SensorID {
	if team == types.TeamRed {
		return sensors.SensorGoalBlue
	}
	return sensors.SensorGoalRed
}

func returnSensorFor(team types.Team) sensors.SensorID {
	if team == types.TeamRed {
		return sensors.SensorPuckRed
	}
	return sensors.SensorPuckBlue
}

// watch renders the snapshot stream until the connection drops. Frames
// arrive at tick rate; only changed lines are printed.
func watch(wsURL string) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Error("Failed to connect to %s: %v", wsURL, err)
		return
	}
	defer conn.Close()
	log.Info("Watching %s", wsURL)

	var last string
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("Snapshot stream error: %v", err)
			}
			return
		}
		var snapshot types.Snapshot
		if err := json.Unmarshal(message, &snapshot); err != nil {
			log.Error("Bad snapshot frame: %v", err)
			continue
		}
		line := render(snapshot)
		if line == last {
			continue
		}
		last = line
		fmt.Println(line)
	}
}

func render(s types.Snapshot) string {
	clock := int(s.Clock)
	line := fmt.Sprintf("RED %d - %d BLUE  period %d/%d  %02d:%02d",
		s.Score.Red, s.Score.Blue, s.Period, s.MaxPeriods, clock/60, clock%60)
	if s.ActiveEvent != nil {
		line += "  " + *s.ActiveEvent
	}
	return line
}

// runScript plays a seeded demo: goals are twice as likely as puck
// returns, and some beats stay quiet.
func runScript(cab *cabinet, seed int64, actions int, interval time.Duration) {
	rng := rand.New(rand.NewSource(seed))
	log.Info("Scripted demo: %d actions, seed %d", actions, seed)
	if err := cab.command("start"); err != nil {
		log.Error("Failed to start game: %v", err)
		return
	}
	teams := []types.Team{types.TeamRed, types.TeamBlue}
	for i := 0; i < actions; i++ {
		time.Sleep(interval)
		team := teams[rng.Intn(len(teams))]
		switch rng.Intn(4) {
		case 0, 1:
			if err := cab.pulse(goalSensorFor(team)); err != nil {
				log.Error("Goal %s failed: %v", team, err)
			}
		case 2:
			if err := cab.pulse(returnSensorFor(team)); err != nil {
				log.Error("Puck return %s failed: %v", team, err)
			}
		case 3:
			// A quiet beat.
		}
	}
}

func runInteractive(cab *cabinet) {
	fmt.Println("commands: start | pause | resume | reset | goal red|blue | puck red|blue | adjust red|blue <delta> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		if err := dispatch(cab, fields); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func dispatch(cab *cabinet, fields []string) error {
	switch fields[0] {
	case "start", "pause", "resume", "reset":
		return cab.command(fields[0])
	case "goal":
		team, err := parseTeam(fields, 2)
		if err != nil {
			return err
		}
		return cab.pulse(goalSensorFor(team))
	case "puck":
		team, err := parseTeam(fields, 2)
		if err != nil {
			return err
		}
		return cab.pulse(returnSensorFor(team))
	case "adjust":
		team, err := parseTeam(fields, 3)
		if err != nil {
			return err
		}
		delta, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("usage: adjust red|blue <delta>")
		}
		return cab.adjust(team, delta)
	}
	return fmt.Errorf("unknown command %q", fields[0])
}

func parseTeam(fields []string, wantLen int) (types.Team, error) {
	if len(fields) != wantLen {
		return "", fmt.Errorf("usage: %s red|blue", fields[0])
	}
	team := types.Team(fields[1])
	if !team.Valid() {
		return "", fmt.Errorf("no such team %q", fields[1])
	}
	return team, nil
}
