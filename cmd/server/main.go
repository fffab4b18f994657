package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/kirei-app/kirei-api/internal/config"
	"github.com/kirei-app/kirei-api/internal/database"
	"github.com/kirei-app/kirei-api/internal/handler"
	"github.com/kirei-app/kirei-api/internal/logger"
	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/queue"
	"github.com/kirei-app/kirei-api/internal/realtime"
	"github.com/kirei-app/kirei-api/internal/repository"
	"github.com/kirei-app/kirei-api/internal/router"
	"github.com/kirei-app/kirei-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	log := logger.New()
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	if err != nil {
		log.Fatalw("database connect failed", "err", err)
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warnw("redis unavailable, rate limiting and caching disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Realtime hub plus its periodic stale sweep.
	hub := realtime.NewHub(config.LoadRealtimeConfig(), log)
	go hub.Run(ctx)

	// Outbound collaborators.
	outbox := service.NewPublisher(cfg.AMQPURL, log)
	push := service.NewPushClient(cfg.PushURL)
	gateway := service.NewPaymentGateway(cfg.PaymentURL, cfg.PaymentKey)
	resvCache := service.NewReservationCache(rdb, time.Minute)

	// The consumer drains lifecycle events back into the hub.
	go queue.NewConsumer(cfg.AMQPURL, hub, push, log).Start(ctx)

	// Repositories.
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	shops := repository.NewShopRepo(db)
	reservations := repository.NewReservationRepo(db)
	payments := repository.NewPaymentRepo(db)
	points := repository.NewPointRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterPublic(e,
		handler.NewShopHandler(shops, log),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, sessions, log))
	router.RegisterAPI(e, router.APIHandlers{
		Auth:          handler.NewAuthHandler(cfg, users, sessions, log),
		Sessions:      handler.NewSessionHandler(sessions, log),
		Reservations:  handler.NewReservationHandler(reservations, resvCache, log),
		ShopResv:      handler.NewShopReservationHandler(cfg, reservations, shops, points, resvCache, outbox, log),
		Shops:         handler.NewShopHandler(shops, log),
		Payments:      handler.NewPaymentHandler(payments, reservations, gateway, log),
		Points:        handler.NewPointHandler(points, log),
		Notifications: handler.NewNotificationHandler(hub, shops, log),
		WS:            handler.NewWSHandler(hub, shops, log),
	}, cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warnw("shutdown error", "err", err)
		}
	}()

	log.Infow("listening", "port", cfg.Port, "env", cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalw("server stopped", "err", err)
	}
}
