package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/queue"
	"github.com/cfortin/slapshot/pkg/repositories"
	"github.com/cfortin/slapshot/pkg/state"
)

const (
	defaultGamesLimit = 20
	maxGamesLimit     = 100
)

// StatsFunc returns the stats document served at /api/stats. The
// server composes it from whatever subsystems it runs.
type StatsFunc func() interface{}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// HandleGameData serves the current snapshot. The cabinet display
// polls this at 1 Hz, so the payload shape is a compatibility
// contract: score, period, max_periods, clock, active_event.
func HandleGameData(stateManager state.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := stateManager.Get(r.Context())
		if err != nil {
			log.Error("failed to get snapshot: %v", err)
			http.Error(w, "Failed to get game state", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

func HandleStats(stats StatsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stats())
	}
}

func HandleListGames(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultGamesLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		if limit > maxGamesLimit {
			limit = maxGamesLimit
		}

		summaries, err := repository.ListGameSummaries(r.Context(), limit)
		if err != nil {
			log.Error("failed to list game summaries: %v", err)
			http.Error(w, "Failed to list games", http.StatusInternalServerError)
			return
		}
		if summaries == nil {
			summaries = []types.GameSummary{}
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func HandleGetGame(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.PathValue("gameID")
		summary, err := repository.GetGameSummary(r.Context(), gameID)
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "Game not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get game summary %s: %v", gameID, err)
			http.Error(w, "Failed to get game", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

var controlCommands = map[string]types.Command{
	"start":  types.CommandStart,
	"pause":  types.CommandPause,
	"resume": types.CommandResume,
	"reset":  types.CommandReset,
}

// HandleControl queues an operator command. The engine applies it on
// its own tick, so a 202 means queued, not done.
func HandleControl(q queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		command, ok := controlCommands[r.PathValue("command")]
		if !ok {
			http.Error(w, "Unknown command", http.StatusNotFound)
			return
		}
		if err := q.Enqueue(&types.CommandEvent{Command: command}); err != nil {
			log.Error("failed to enqueue %s command: %v", command, err)
			http.Error(w, "Engine queue is full", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"queued": string(command)})
	}
}

type adjustScoreRequest struct {
	Team  types.Team `json:"team"`
	Delta int        `json:"delta"`
}

func HandleAdjustScore(q queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustScoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !req.Team.Valid() {
			http.Error(w, "Team must be red or blue", http.StatusBadRequest)
			return
		}
		if req.Delta == 0 {
			http.Error(w, "Delta must be non-zero", http.StatusBadRequest)
			return
		}

		event := &types.CommandEvent{
			Command: types.CommandAdjustScore,
			Team:    req.Team,
			Delta:   req.Delta,
		}
		if err := q.Enqueue(event); err != nil {
			log.Error("failed to enqueue score adjustment: %v", err)
			http.Error(w, "Engine queue is full", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"queued": string(types.CommandAdjustScore)})
	}
}

func HandleGetConfig(provider *config.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, provider.Active())
	}
}

// HandleReloadConfig stages a config reload. The staged config takes
// effect when the next game starts, never mid-game.
func HandleReloadConfig(provider *config.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := provider.Stage(); err != nil {
			log.Error("failed to stage config reload: %v", err)
			http.Error(w, fmt.Sprintf("Failed to reload config: %v", err), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "staged"})
	}
}

func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}
}
