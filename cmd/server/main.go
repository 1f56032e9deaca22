package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studioflow/class-booking/internal/cache"
	"github.com/studioflow/class-booking/internal/config"
	"github.com/studioflow/class-booking/internal/database"
	"github.com/studioflow/class-booking/internal/handler"
	"github.com/studioflow/class-booking/internal/middleware"
	"github.com/studioflow/class-booking/internal/queue"
	queue_publisher "github.com/studioflow/class-booking/internal/queuepublisher"
	"github.com/studioflow/class-booking/internal/repository"
	"github.com/studioflow/class-booking/internal/router"
	"github.com/studioflow/class-booking/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// Redis is optional. NewRedisClient returns nil when it cannot be
	// reached, and both the view cache and the rate limiter degrade to
	// pass-through in that case.
	rdb := config.NewRedisClient()
	viewCache := cache.NewViewCache(rdb, cfg.ViewCacheTTL)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	classRepo := repository.NewClassRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	waitlistRepo := repository.NewWaitlistRepo(db)
	creditRepo := repository.NewCreditRepo(db)

	coord := service.NewCoordinator(db, classRepo, reservationRepo, waitlistRepo, creditRepo, viewCache, queue_publisher.Sink{})

	// The consumer turns queue events into notification log lines. It
	// reconnects on its own; a dead broker only costs notifications.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Validator = handler.NewValidator()

	browse := handler.NewBrowseHandler(classRepo, viewCache)
	member := handler.NewMemberHandler(coord, reservationRepo, creditRepo)
	admin := handler.NewAdminHandler(coord, classRepo, reservationRepo, waitlistRepo, viewCache)

	router.RegisterRoutes(e, browse)
	router.RegisterMember(e, member, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
