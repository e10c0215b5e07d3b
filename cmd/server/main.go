package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cfortin/slapshot/pkg/analytics"
	"github.com/cfortin/slapshot/pkg/api"
	"github.com/cfortin/slapshot/pkg/config"
	"github.com/cfortin/slapshot/pkg/engine"
	"github.com/cfortin/slapshot/pkg/engine/constants"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/cfortin/slapshot/pkg/network"
	"github.com/cfortin/slapshot/pkg/publish"
	"github.com/cfortin/slapshot/pkg/queue"
	"github.com/cfortin/slapshot/pkg/recovery"
	"github.com/cfortin/slapshot/pkg/repositories"
	"github.com/cfortin/slapshot/pkg/sensors"
	"github.com/cfortin/slapshot/pkg/state"
	"github.com/cfortin/slapshot/pkg/version"
	"github.com/cfortin/slapshot/pkg/workers"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// The .env file is optional; real environment variables still apply.
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded: %v", err)
	}

	configPath := flag.String("config", "slapshot.yaml", "Path to the YAML config file")
	logLevel := flag.String("log-level", "info", "Log level")
	addr := flag.String("addr", ":5000", "HTTP listen address")
	natsURL := flag.String("nats-url", "", "NATS server URL for status publishing (empty disables)")
	dbType := flag.String("db-type", "sqlite", "Database type: sqlite or postgres")
	dbPath := flag.String("db-path", "slapshot.db", "SQLite database path")
	dbConn := flag.String("db-conn", "", "Postgres connection string (falls back to DATABASE_URL)")
	migrationsDir := flag.String("migrations", "migrations", "Migrations root directory")
	journalDir := flag.String("journal-dir", "journals", "Directory for finished-game journals (empty disables)")
	recoveryFile := flag.String("recovery-file", "slapshot-recovery.json", "Crash recovery state file")
	seed := flag.Int64("seed", 0, "Scheduler random seed (0 derives one from the clock)")
	simulate := flag.Bool("simulate", false, "Run with simulated sensors and the pulse injection endpoint")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting slapshot version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := config.NewProvider(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// SIGHUP stages a config reload; it takes effect when the next game
	// starts, never mid-game.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := provider.Stage(); err != nil {
				log.Error("Config reload failed: %v", err)
				continue
			}
			log.Info("Config staged for the next game")
		}
	}()

	var repository repositories.Repository
	switch *dbType {
	case "sqlite":
		repository, err = repositories.NewSQLiteRepository(ctx, *dbPath, filepath.Join(*migrationsDir, "sqlite"))
	case "postgres":
		connStr := *dbConn
		if connStr == "" {
			connStr = os.Getenv("DATABASE_URL")
		}
		if connStr == "" {
			panic("-db-conn or DATABASE_URL must be set for postgres")
		}
		repository, err = repositories.NewPostgresRepository(ctx, connStr)
	default:
		panic(fmt.Sprintf("Unknown database type: %s", *dbType))
	}
	if err != nil {
		panic(fmt.Sprintf("Failed to open %s repository: %v", *dbType, err))
	}
	defer repository.Close(context.Background())

	store := recovery.NewStore(*recoveryFile, constants.RecoveryMaxAge)
	var resume *recovery.State
	saved, err := store.Load(time.Now())
	switch {
	case err == nil:
		log.Info("Found resumable game %s (%d-%d, period %d)", saved.GameID, saved.Score.Red, saved.Score.Blue, saved.Period)
		resume = saved
	case recovery.IsNoState(err):
	case recovery.IsStaleState(err):
		log.Warn("Discarding recovery state: %v", err)
		if err := store.Clear(); err != nil {
			log.Error("Failed to clear recovery state: %v", err)
		}
	default:
		log.Warn("Failed to load recovery state: %v", err)
	}

	clk := clockwork.NewRealClock()
	eventQueue := queue.NewInMemoryQueue(queue.DefaultBufferSize)
	momentum := analytics.NewTracker(constants.MomentumWindow)

	gameEngine := engine.NewEngine(engine.NewEngineOptions{
		Clock:          clk,
		ConfigProvider: provider,
		EventQueue:     eventQueue,
		Momentum:       momentum,
		Seed:           *seed,
		Resume:         resume,
	})

	hub := network.NewHub()
	go hub.Start(ctx)

	var publisher *publish.Publisher
	if *natsURL != "" {
		publisher, err = publish.NewPublisher(publish.NewPublisherOptions{URL: *natsURL})
		if err != nil {
			panic(fmt.Sprintf("Failed to connect to NATS at %s: %v", *natsURL, err))
		}
		defer publisher.Close()
	}

	stateManager := state.NewInMemoryManager()

	broadcastOpts := workers.NewBroadcastWorkerOptions{
		Snapshots:    gameEngine.Snapshots(),
		StateManager: stateManager,
		Broadcaster:  hub,
	}
	if publisher != nil {
		broadcastOpts.Publisher = publisher
	}
	broadcastWorker := workers.NewBroadcastWorker(broadcastOpts)
	go broadcastWorker.Start(ctx)

	saveWorker := workers.NewSaveGameWorker(workers.NewSaveGameWorkerOptions{
		Repository: repository,
		Summaries:  gameEngine.Summaries(),
		Journals:   gameEngine.Journals(),
		JournalDir: *journalDir,
	})
	go saveWorker.Start(ctx)

	recoveryWorker := workers.NewRecoveryWorker(workers.NewRecoveryWorkerOptions{
		Store:  store,
		States: gameEngine.RecoverySaves(),
	})
	go recoveryWorker.Start(ctx)

	var injector http.Handler
	var bridge *sensors.Bridge
	if *simulate {
		source := sensors.NewSimulatedSource()
		bridge = sensors.NewBridge(sensors.NewBridgeOptions{
			Source: source,
			Queue:  eventQueue,
		})
		go bridge.Start(ctx)
		injector = sensors.PulseHandler(source, clk)
		log.Info("Simulated sensors enabled")
	}

	stats := func() interface{} {
		doc := map[string]interface{}{
			"version":     version.Get(),
			"engine":      gameEngine.Stats(),
			"momentum":    momentum.GameAnalysis(),
			"broadcast":   broadcastWorker.Stats(),
			"save":        saveWorker.Stats(),
			"hub":         hub.Stats(),
			"queue_depth": eventQueue.Size(),
		}
		if publisher != nil {
			doc["publisher"] = publisher.Stats()
		}
		if bridge != nil {
			doc["sensors"] = bridge.Stats()
		}
		return doc
	}

	apiServer := api.NewServer(api.NewServerOptions{
		Addr:           *addr,
		StateManager:   stateManager,
		Queue:          eventQueue,
		Provider:       provider,
		Repository:     repository,
		Hub:            hub,
		SensorInjector: injector,
		Stats:          stats,
	})
	go apiServer.Start()

	log.Info("Starting game engine")
	if err := gameEngine.Start(ctx); err != nil {
		log.Error("Engine stopped: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("API shutdown error: %v", err)
	}
	log.Info("Shutdown complete")
}
