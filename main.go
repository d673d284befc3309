package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/relicroom/broadcast"
	"github.com/wfunc/relicroom/config"
	"github.com/wfunc/relicroom/identity"
	"github.com/wfunc/relicroom/logger"
	"github.com/wfunc/relicroom/monitor"
	"github.com/wfunc/relicroom/persistence"
	"github.com/wfunc/relicroom/room"
	"github.com/wfunc/relicroom/rpc"
	"github.com/wfunc/relicroom/server"
	"github.com/wfunc/relicroom/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()
	gin.SetMode(gin.ReleaseMode)

	dsn := cfg.Database.Postgres.DSN()
	if cfg.Database.Migrate {
		if err := persistence.Migrate(dsn); err != nil {
			logger.Log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Database
	store, err := persistence.NewGormPostgreSQL(dsn)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	logger.Log.Info("Database connection successful.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.SeedRoles(ctx); err != nil {
		logger.Log.Fatalf("Failed to seed role definitions: %v", err)
	}

	resolver, err := identity.New(cfg.Identity.Mode, cfg.Identity.JWTSecret)
	if err != nil {
		logger.Log.Fatalf("Failed to configure identity: %v", err)
	}

	mon := monitor.NewMonitor("relicroom")
	sessions := session.NewManager()
	broadcaster := broadcast.NewSessionBroadcaster(sessions)
	rooms := room.NewRoomManager(store, broadcaster, room.Options{
		CommitTimeout: cfg.Game.CommandTimeout,
		Observer:      mon,
	})

	gameServer := server.NewGameServer(server.Options{
		Addr:              cfg.Server.HTTPAddress,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		RequestBurst:      cfg.Server.RequestBurst,
		Heartbeat:         cfg.Server.Heartbeat,
		CommandTimeout:    cfg.Game.CommandTimeout,
		DisconnectGrace:   cfg.Game.DisconnectGrace,
		SampleInterval:    cfg.Game.SampleInterval,
		SettledRoomTTL:    cfg.Game.SettledRoomTTL,
	}, rooms, sessions, broadcaster, resolver, mon)

	rpcServer, err := rpc.NewServer(cfg.Server.GRPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create gRPC server: %v", err)
	}

	go func() {
		if err := rpcServer.Start(); err != nil {
			logger.Log.Errorf("gRPC server stopped: %v", err)
			stop()
		}
	}()
	go func() {
		if err := gameServer.Start(); err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
			stop()
		}
	}()
	rpcServer.SetServing(true)

	<-ctx.Done()
	logger.Log.Info("Shutting down.")
	rpcServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("HTTP shutdown: %v", err)
	}
	rooms.Close()
	rpcServer.Stop(5 * time.Second)
}
