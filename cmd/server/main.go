package main // Entry point package

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
    "github.com/iliyamo/vehicle-rental-booking/internal/clock"
    "github.com/iliyamo/vehicle-rental-booking/internal/config"
    "github.com/iliyamo/vehicle-rental-booking/internal/database"
    "github.com/iliyamo/vehicle-rental-booking/internal/handler"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
    "github.com/iliyamo/vehicle-rental-booking/internal/queue"
    "github.com/iliyamo/vehicle-rental-booking/internal/repository"
    "github.com/iliyamo/vehicle-rental-booking/internal/router"
    queue_publisher "github.com/iliyamo/vehicle-rental-booking/internal/service"
    "github.com/iliyamo/vehicle-rental-booking/internal/sweeper"
)

func main() {
    _ = godotenv.Load() // .env is optional; real env vars win

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connect failed: %v", err)
    }
    if err := database.Migrate(db); err != nil {
        log.Fatalf("database migrate failed: %v", err)
    }

    store := repository.NewStore(db)
    clk := clock.NewSystem()
    svc := booking.NewService(store, clk, time.Duration(cfg.HoldGraceMin)*time.Minute)

    // Background expiration sweeper.  Cancelled holds are announced on the
    // broker; publish failures are logged inside the publisher and ignored.
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    sw := sweeper.New(store, clk, time.Duration(cfg.SweepIntervalSec)*time.Second, func(ctx context.Context, r model.Reservation) {
        ev := queue.NewReservationEvent(queue.KindReservationExpired, r, clk.Now())
        _ = queue_publisher.PublishReservationEvent(ctx, ev)
    })
    go sw.Run(ctx)

    // Event consumer writes an audit trail of reservation events.
    go queue.StartReservationConsumer()

    // Redis is optional: a nil client disables rate limiting and caching.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, rate limiting and caching disabled")
    }

    e := echo.New()
    e.Validator = handler.NewRequestValidator()
    router.Register(e, router.Deps{
        JWTSecret:    cfg.JWTSecret,
        Redis:        rdb,
        RateLimit:    config.LoadRateLimitConfig(),
        Cache:        config.LoadCacheConfig(),
        Availability: handler.NewAvailabilityHandler(svc),
        Reservations: handler.NewReservationHandler(svc, store),
        Vehicles:     handler.NewVehicleHandler(svc, store),
    })

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
