package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/cache"
	"github.com/hivecinema/hive/internal/config"
	"github.com/hivecinema/hive/internal/database"
	"github.com/hivecinema/hive/internal/handler"
	"github.com/hivecinema/hive/internal/identity"
	"github.com/hivecinema/hive/internal/queue"
	"github.com/hivecinema/hive/internal/repository"
	"github.com/hivecinema/hive/internal/router"
	"github.com/hivecinema/hive/internal/service"
	"github.com/hivecinema/hive/internal/worker"
)

// drainDeadline bounds how long outstanding requests may run on shutdown.
const drainDeadline = 10 * time.Second

func main() {
	// .env is a development convenience; missing files are fine.
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Storage must be reachable (migrations applied out of band) before the
	// background workers start.
	db, err := database.Open(database.Config{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	var seatMaps cache.SeatMapCache
	if rdb := config.NewRedisClient(); rdb != nil {
		seatMaps = cache.NewRedis(rdb)
	} else {
		logger.Warn("redis unavailable, using in-process seat-map cache")
		seatMaps = cache.NewMemory()
	}

	movieRepo := repository.NewMovieRepo(db)
	cinemaRepo := repository.NewCinemaRepo(db)
	auditoriumRepo := repository.NewAuditoriumRepo(db)
	showtimeRepo := repository.NewShowtimeRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	outboxRepo := repository.NewOutboxRepo(db)

	identityClient := identity.NewClient(cfg.IdentityServiceURL, cfg.ServiceID, cfg.SharedSecret)
	reservations := service.NewReservationService(showtimeRepo, ticketRepo, seatMaps, identityClient, logger)
	seatMapSvc := service.NewSeatMapService(showtimeRepo, movieRepo, cinemaRepo, seatMaps, cfg.SeatMapCacheTTL, logger)

	publisher := queue.NewPublisher(cfg.BrokerURL())
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expiry := worker.NewExpiryWorker(ticketRepo, seatMaps, cfg.HoldWindow, cfg.ExpiryTick, logger)
	dispatcher := worker.NewDispatcher(outboxRepo, publisher, worker.DispatcherConfig{
		BatchSize:    cfg.OutboxBatchSize,
		TickInterval: cfg.OutboxTick,
		StuckTimeout: cfg.OutboxStuck,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, logger)
	expiry.Start(ctx)
	dispatcher.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.NewErrorHandler(logger)
	router.Register(e, router.Handlers{
		Movies:      handler.NewMovieHandler(movieRepo),
		Cinemas:     handler.NewCinemaHandler(cinemaRepo),
		Auditoriums: handler.NewAuditoriumHandler(auditoriumRepo, cinemaRepo),
		Showtimes:   handler.NewShowtimeHandler(showtimeRepo, auditoriumRepo, cinemaRepo, movieRepo, seatMapSvc),
		Tickets:     handler.NewTicketHandler(reservations),
	}, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil {
			logger.Info("http server stopped", zap.Error(err))
		}
	}()

	// Workers finish their current tick; outstanding requests get the drain
	// deadline.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	expiry.Stop()
	dispatcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drainDeadline)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server drain failed", zap.Error(err))
	}
}
