package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	apirest "github.com/kasuganosora/enemyai/api/rest"
	"github.com/kasuganosora/enemyai/api/sse"
	apiws "github.com/kasuganosora/enemyai/api/ws"
	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/config"
	dbadapter "github.com/kasuganosora/enemyai/db"
	"github.com/kasuganosora/enemyai/event"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
	"github.com/kasuganosora/enemyai/game/world"
	"github.com/kasuganosora/enemyai/journal"
	mw "github.com/kasuganosora/enemyai/middleware"
	"github.com/kasuganosora/enemyai/model"
	"github.com/kasuganosora/enemyai/resource"
	"github.com/kasuganosora/enemyai/scheduler"
)

const (
	shutdownTimeout   = 10 * time.Second
	limiterSweepEvery = 5 * time.Minute
	limiterIdle       = 10 * time.Minute
)

func main() {
	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; control endpoints and the host feed are disabled")
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache.CacheConfig)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close(c)
	pubsub, err := cache.NewPubSub(cfg.Cache.CacheConfig)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer cache.Close(pubsub)
	logger.Info("cache initialized", zap.Bool("redis", cfg.Cache.UsesRedis()))

	// ---- Event bus ----
	bus := event.NewBus(logger)
	fwd := event.NewForwarder(pubsub, c, logger)
	fwd.Attach(bus)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		fwd.Stop(stopCtx)
	}()

	// ---- Journal ----
	var db *gorm.DB
	if cfg.Journal.Enabled {
		db, err = dbadapter.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := model.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		jr := journal.New(db, journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, logger)
		jr.Attach(bus)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			jr.Stop(stopCtx)
		}()
		journal.StartPruner(sched, db, cfg.Journal.Retention, cfg.Journal.PruneInterval, logger)
		logger.Info("journal initialized", zap.String("mode", cfg.Database.Mode))
	}

	// ---- Archetypes ----
	profiles, err := resource.LoadArchetypes(cfg.AI.ArchetypesPath)
	if err != nil {
		return fmt.Errorf("archetypes: %w", err)
	}
	lib := ai.NewLibrary(profiles, logger)
	logger.Info("archetypes loaded", zap.Strings("ids", lib.Archetypes()))

	// ---- Director ----
	stage := world.NewStage(cfg.Grid.WorldWidth, cfg.Grid.WorldHeight)
	paths := nav.NewPathfinder(cfg.Grid.WorldWidth, cfg.Grid.WorldHeight)
	director := world.NewDirector(cfg.AI.Director(), lib, stage, bus, paths, logger)
	director.Start(sched)
	defer director.Stop()

	world.NewStatsPublisher(director, c, bus.Counts, cfg.Cache.StatsInterval, logger).Start(sched)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := mw.NewRateLimiter(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)
	sched.AddTicker("ratelimit_sweep", limiterSweepEvery, func() { limiter.Sweep(limiterIdle) })

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))

	r.GET("/health", func(gc *gin.Context) {
		gc.JSON(http.StatusOK, gin.H{"status": "ok", "ai_enabled": director.Enabled()})
	})

	wsH := apiws.NewHandler(stage, director, lib, pubsub, cfg.Server.AdminKey, cfg.Security.AllowedOrigins, logger)
	r.GET("/ws/host", wsH.ServeWS)

	sseH := sse.NewHandler(pubsub, cfg.Security.AllowedOrigins, logger)
	r.GET("/sse/ai", sseH.ServeSSE)

	limited := r.Group("", limiter.Middleware())
	apirest.Register(limited,
		apirest.NewAIHandler(director, lib, bus, c, db, sched, logger),
		apirest.NewWorldHandler(stage, director),
		cfg.Server.AdminKey)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}
