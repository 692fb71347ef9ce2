package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ganttservice/internal/handler"
	"ganttservice/internal/httpserver"
	"ganttservice/internal/repository"
	"ganttservice/internal/seedstore"
	"ganttservice/internal/service"
	"ganttservice/pkg/config"
	"ganttservice/pkg/db"
	"ganttservice/pkg/logger"
	"ganttservice/pkg/mq"
	"ganttservice/pkg/outbox"
	pkgredis "ganttservice/pkg/redis"
	"ganttservice/pkg/util"
)

const saveDedupTTL = 10 * time.Minute

func main() {
	env := config.GetConfigEnv()
	cfg, err := config.LoadConfig(env, config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(env)
	defer log.Sync()

	loc, err := time.LoadLocation(cfg.Gantt.Timezone)
	if err != nil {
		log.Fatal("Invalid gantt timezone", zap.String("timezone", cfg.Gantt.Timezone), zap.Error(err))
	}

	log.Info("Starting gantt service...",
		zap.String("env", env),
		zap.String("db_host", cfg.DB.Host),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("timezone", loc.String()),
	)

	ctx := context.Background()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := repository.EnsureSchema(ctx, dbConn, log); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	taskRepo := repository.NewTaskRepository(dbConn, log)
	linkRepo := repository.NewLinkRepository(dbConn, log)
	metadataRepo := repository.NewMetadataRepository(dbConn, log)
	projectRepo := repository.NewProjectRepository(dbConn, log)

	resolveOpposites(ctx, &cfg.Gantt, linkRepo, log)

	// Redis holds the arrow seeds and save idempotency keys
	rdb, err := pkgredis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	seeds := seedstore.New(rdb, log)
	deduper := util.NewDeduper(rdb, saveDedupTTL, log)

	// MQ is optional. Shift events wait in the outbox until a broker is
	// reachable; link events are dropped without one.
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	outboxRepo := outbox.NewRepository(dbConn, log)

	var (
		publisher service.EventPublisher
		mqStatus  httpserver.ConnStatus
	)
	mqPublisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Warn("MQ unavailable, domain events disabled", zap.Error(err))
	} else {
		defer mqPublisher.Close()
		publisher = mqPublisher
		mqStatus = mqPublisher
		dispatcher := outbox.NewDispatcher(outboxRepo, mqPublisher, log).
			WithMaxRetries(cfg.Outbox.MaxRetries).
			WithBatchSize(cfg.Outbox.BatchSize).
			WithInterval(time.Duration(cfg.Outbox.IntervalMS) * time.Millisecond)
		go dispatcher.Start(dispatchCtx)
	}

	chartService := service.NewChartService(taskRepo, linkRepo, seeds, cfg.Gantt, loc, log)
	linkService := service.NewLinkService(taskRepo, linkRepo, seeds, projectRepo, publisher, cfg.Gantt, log)
	scheduleStore := service.NewPgScheduleStore(dbConn, taskRepo, linkRepo, metadataRepo, outboxRepo)
	scheduleService := service.NewScheduleService(scheduleStore, cfg.Gantt, loc, log)

	ganttHandler := handler.NewGanttHandler(chartService, scheduleService, deduper, loc, log)
	linkHandler := handler.NewLinkHandler(linkService, log)
	router := httpserver.NewRouter(ganttHandler, linkHandler, projectRepo, cfg.JWT.Secret, projectRepo, mqStatus, log)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gantt service gracefully...")
	stopDispatch()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("gantt service shutdown complete")
}

// resolveOpposites fills the child-of and blocked-by ids from the link type
// catalog when the configuration leaves them at zero.
func resolveOpposites(ctx context.Context, cfg *config.GanttConfig, links *repository.LinkRepository, log *zap.Logger) {
	pairs := []struct {
		name string
		from int
		to   *int
	}{
		{"child_of_link_id", cfg.ParentOfLinkID, &cfg.ChildOfLinkID},
		{"blocked_by_link_id", cfg.BlocksLinkID, &cfg.BlockedByLinkID},
	}
	for _, p := range pairs {
		if *p.to > 0 || p.from <= 0 {
			continue
		}
		opposite, err := links.OppositeID(ctx, p.from)
		if err != nil {
			log.Warn("Failed to resolve opposite link type",
				zap.String("setting", p.name),
				zap.Int("link_id", p.from),
				zap.Error(err),
			)
			continue
		}
		*p.to = opposite
		log.Info("Resolved opposite link type", zap.String("setting", p.name), zap.Int("link_id", opposite))
	}
}
