package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/leaderbattle/battle-server-go/internal/config"
	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/ai"
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
	"github.com/leaderbattle/battle-server-go/internal/game/rules"
	"github.com/leaderbattle/battle-server-go/internal/repository"
	"github.com/leaderbattle/battle-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting leader battle server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if cfg.Auth.AdminPasswordHash == "" {
		logger.Warn("admin password not configured; InjectState and DeleteMatch disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Database is only needed for postgres-backed catalog or store
	var db *repository.DB
	if cfg.NeedsDatabase() {
		db, err = repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare schema", zap.Error(err))
		}
		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
	}

	cat, err := loadCatalog(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	cards, leaders := cat.Size()
	logger.Info("catalog loaded",
		zap.String("source", cfg.Catalog.Source),
		zap.Int("cards", cards),
		zap.Int("leaders", leaders),
	)

	var store game.Store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		matchRepo := repository.NewMatchRepository(db.Pool, logger)
		active, err := matchRepo.ListActive(ctx)
		if err != nil {
			logger.Warn("failed to list active matches", zap.Error(err))
		}
		logger.Info("resuming persisted matches", zap.Int("active", len(active)))
		store = matchRepo
	default:
		store = game.NewMemoryStore(logger)
	}
	logger.Info("match store initialized", zap.String("driver", cfg.Store.Driver))

	// Engine, AI and manager
	bus := rules.NewEventBus()
	engine := game.NewEngine(cat, logger,
		game.WithRand(game.NewRand(cfg.Match.Seed)),
		game.WithSettings(matchSettings(cfg.Match)),
		game.WithAutoSelect(cfg.Match.AutoSelect),
		game.WithEventBus(bus),
	)
	searcher := ai.NewSearcher(engine, logger, ai.WithDepth(cfg.AI.Depth), ai.WithSeed(cfg.Match.Seed))

	replayDir := ""
	if cfg.Replay.Enabled {
		replayDir = cfg.Replay.Dir
	}
	matchMgr := game.NewManager(engine, store, logger,
		game.WithDeckSource(cat),
		game.WithAdvisor(searcher),
		game.WithReplays(game.NewReplayRecorder(logger, replayDir)),
	)
	defer matchMgr.Close()
	logger.Info("match manager initialized",
		zap.Int("victory_threshold", cfg.Match.VictoryThreshold),
		zap.Int("ai_depth", searcher.Depth()),
		zap.Bool("replays", cfg.Replay.Enabled),
	)

	hub := server.NewHub(cfg.Server.WebSocket, logger)
	matchMgr.SetNotificationHandler(hub.Notify)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
			server.AdminInterceptor(cfg.Auth.AdminPasswordHash, logger, server.MethodInjectState, server.MethodDeleteMatch),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)

	server.RegisterMatchService(grpcServer, server.NewMatchServer(matchMgr, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start WebSocket server
	go func() {
		if wsErr := server.StartWebSocketServer(ctx, cfg.Server.WebSocket, hub, logger); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("leader battle server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()
	grpcServer.GracefulStop()

	logger.Info("leader battle server stopped")
}

func loadCatalog(ctx context.Context, cfg *config.Config, db *repository.DB, logger *zap.Logger) (*catalog.MemoryCatalog, error) {
	if cfg.Catalog.Source == config.SourcePostgres {
		return repository.NewCatalogRepository(db.Pool, logger).Load(ctx)
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}

func matchSettings(cfg config.MatchConfig) game.Settings {
	return game.Settings{
		VictoryThreshold: cfg.VictoryThreshold,
		StartingHand:     cfg.StartingHand,
		LeaderRoster:     cfg.LeaderRoster,
		Combos:           cfg.Combos,
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
