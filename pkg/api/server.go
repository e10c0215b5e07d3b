// Package api is the cabinet's HTTP surface: the display poll,
// operator controls, game history, and the websocket push endpoint.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/cfortin/slapshot/pkg/api/handlers"
	"github.com/cfortin/slapshot/pkg/api/middleware"
	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/queue"
	"github.com/cfortin/slapshot/pkg/repositories"
	"github.com/cfortin/slapshot/pkg/state"
	"github.com/rs/cors"
)

type Server struct {
	server *http.Server
}

type NewServerOptions struct {
	Addr         string
	StateManager state.Manager
	Queue        queue.Queue
	Provider     *config.Provider
	// Repository backs the game history endpoints; nil disables them.
	Repository repositories.Repository
	// Hub serves websocket subscribers at /ws; nil disables it.
	Hub http.Handler
	// SensorInjector accepts simulated sensor pulses; nil disables it.
	// Only wired when the cabinet runs without real hardware.
	SensorInjector http.Handler
	// Stats builds the /api/stats document.
	Stats handlers.StatsFunc
}

// NewServer creates a new http.Server for handling API requests.
func NewServer(opts NewServerOptions) *Server {
	stats := opts.Stats
	if stats == nil {
		stats = func() interface{} { return struct{}{} }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /game_data", handlers.HandleGameData(opts.StateManager))
	mux.HandleFunc("GET /api/status", handlers.HandleGameData(opts.StateManager))
	mux.HandleFunc("GET /api/stats", handlers.HandleStats(stats))
	mux.HandleFunc("POST /api/control/{command}", handlers.HandleControl(opts.Queue))
	mux.HandleFunc("POST /api/score/adjust", handlers.HandleAdjustScore(opts.Queue))
	mux.HandleFunc("GET /api/config", handlers.HandleGetConfig(opts.Provider))
	mux.HandleFunc("POST /api/config/reload", handlers.HandleReloadConfig(opts.Provider))
	mux.HandleFunc("GET /healthz", handlers.HandleHealthz())
	if opts.Repository != nil {
		mux.HandleFunc("GET /api/games", handlers.HandleListGames(opts.Repository))
		mux.HandleFunc("GET /api/games/{gameID}", handlers.HandleGetGame(opts.Repository))
	}
	if opts.Hub != nil {
		mux.Handle("GET /ws", opts.Hub)
	}
	if opts.SensorInjector != nil {
		mux.Handle("POST /api/sensors/{sensor}/pulse", opts.SensorInjector)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	handler := middleware.NewRequestLogger()(corsMiddleware.Handler(mux))

	return &Server{
		server: &http.Server{Addr: opts.Addr, Handler: handler},
	}
}

// Handler exposes the routed stack, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Stop is called.
func (s *Server) Start() {
	log.Info("API server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
