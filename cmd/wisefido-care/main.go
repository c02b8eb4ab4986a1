package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/common/database"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/common/logger"
	rediscommon "github.com/codemonkey0612/aikan-cloud-sub001/internal/common/redis"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/config"
	httpapi "github.com/codemonkey0612/aikan-cloud-sub001/internal/http"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/repository"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/service"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-care")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Redis 不可用时降级：关闭缓存与事件流
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	defer redisClient.Close()
	redisReady := true
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rediscommon.Ping(pingCtx, redisClient); err != nil {
		log.Warn("Redis unavailable, cache and events disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		redisReady = false
	}
	pingCancel()

	var kv store.KV
	if redisReady {
		kv = store.NewRedisKV(redisClient)
	}
	cache := store.NewCache(kv, cfg.Cache.TTL, cfg.Cache.Enabled, log)

	var events service.EventPublisher
	if redisReady && cfg.Events.Enabled {
		events = store.NewStreamPublisher(redisClient, cfg.Events.Stream, cfg.Events.MaxLen)
	}

	var notifier service.PinNotifier
	if cfg.PinNotify.URL != "" {
		notifier = service.NewWebhookPinNotifier(cfg.PinNotify.URL, cfg.PinNotify.Timeout, log)
	}

	shiftsRepo := repository.NewPostgresShiftsRepository(db)
	attendanceRepo := repository.NewPostgresAttendanceRepository(db)
	pinRepo := repository.NewPostgresPinRepository(db)
	usersRepo := repository.NewPostgresUsersRepository(db)
	facilitiesRepo := repository.NewPostgresFacilitiesRepository(db)
	vitalsRepo := repository.NewPostgresVitalsRepository(db)
	salariesRepo := repository.NewPostgresSalariesRepository(db)

	pins := service.NewPinIssuer(pinRepo, notifier, log)
	attendance := service.NewAttendanceService(service.AttendanceDeps{
		Shifts:     shiftsRepo,
		Attendance: attendanceRepo,
		Pins:       pins,
		Cache:      cache,
		Events:     events,
		Logger:     log,
	})
	salaries := service.NewSalaryService(service.SalaryDeps{
		Shifts:     shiftsRepo,
		Users:      usersRepo,
		Facilities: facilitiesRepo,
		Vitals:     vitalsRepo,
		Salaries:   salariesRepo,
		Cache:      cache,
		Location:   cfg.Location(),
		Logger:     log,
	})

	auth := httpapi.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := httpapi.NewRouter(auth, log)
	router.RegisterHealth()
	router.RegisterAttendanceRoutes(httpapi.NewAttendanceHandler(attendance, pins, log))
	router.RegisterSalaryRoutes(httpapi.NewSalaryHandler(salaries, log))

	if cfg.PinCleanup.Enabled {
		cleaner := service.NewPinCleaner(pinRepo, cfg.PinCleanup.Interval, log)
		go func() {
			_ = cleaner.Run(ctx)
		}()
	}

	srv := service.NewServer(cfg.HTTP.Addr, router.Handler(), service.ServerOptions{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}
