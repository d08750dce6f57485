package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lanpulse/internal/cache"
	"lanpulse/internal/config"
	httpserver "lanpulse/internal/http"
	"lanpulse/internal/http/handlers"
	"lanpulse/internal/http/middleware"
	"lanpulse/internal/monitor"
	"lanpulse/internal/service"
	"lanpulse/internal/storage/postgres"
	"lanpulse/internal/ws"
	libdb "lanpulse/libs/db"
	libredis "lanpulse/libs/redis"
)

// App wires the service dependencies.
type App struct {
	server      *httpserver.Server
	hub         *ws.Hub
	monitor     *monitor.Monitor
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	store := postgres.NewStore(sqlDB)
	occupancy := cache.NewOccupancyStore(redisClient, cfg.OccupancyTTL())
	hub := ws.NewHub(0, logger)

	ledger := service.NewLedger(logger)
	engine := service.NewEngine(store, ledger, occupancy, hub, logger, service.EngineConfig{
		UndoWindow: cfg.Sessions.UndoWindow,
	})
	agent := service.NewAgent(store, occupancy, hub, logger, nil)

	prober := monitor.NewExecProber(cfg.Monitor.PingAttempts, cfg.Monitor.PingTimeout, logger)
	liveness := monitor.New(store, prober.Probe, hub, logger, monitor.Config{
		ScanInterval:       cfg.Monitor.ScanInterval,
		SweepInterval:      cfg.Monitor.SweepInterval,
		HeartbeatThreshold: cfg.Monitor.HeartbeatThreshold,
	})

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AgentHandlers:   handlers.NewAgentHandlers(agent, logger),
		SessionHandlers: handlers.NewSessionHandlers(engine, logger),
		StationHandlers: handlers.NewStationHandlers(store, occupancy, logger),
		WSHandler:       handlers.NewWSHandler(hub, logger),
		OperatorAuth:    middleware.OperatorAuth(cfg.Auth.OperatorSecret),
		AgentAuth:       middleware.AgentAuth(cfg.Auth.AgentSecret),
	})
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		hub:         hub,
		monitor:     liveness,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the background loops and the HTTP server, blocking until the
// context ends.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Start(ctx)
	go a.monitor.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
