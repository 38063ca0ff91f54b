// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/vehicle-rental-booking/internal/config"
    "github.com/iliyamo/vehicle-rental-booking/internal/handler"
    "github.com/iliyamo/vehicle-rental-booking/internal/middleware"
)

// Deps carries everything route registration needs.
type Deps struct {
    JWTSecret    string
    Redis        *redis.Client
    RateLimit    config.RateLimitConfig
    Cache        config.CacheConfig
    Availability *handler.AvailabilityHandler
    Reservations *handler.ReservationHandler
    Vehicles     *handler.VehicleHandler
}

// Register wires all routes onto the Echo instance.
//
// The availability calendar is public: it sits behind the per-client rate
// limiter and the Redis response cache but requires no token.  Everything
// else under /v1 requires a valid JWT; fleet administration additionally
// requires the OPS role.
func Register(e *echo.Echo, d Deps) {
    // Health check for load balancers and monitoring.
    e.GET("/healthz", handler.Health)

    // Public browse surface.
    pub := e.Group("/v1")
    pub.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))
    pub.GET("/vehicles/:id/availability", d.Availability.GetAvailability, middleware.NewRedisCache(d.Cache, d.Redis))

    // Authenticated surface.  Customers and operations staff share the
    // reservation lifecycle; ownership is enforced inside the handlers.
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(d.JWTSecret))
    auth.Use(middleware.RequireRole("OPS", "CUSTOMER"))

    auth.POST("/vehicles/:id/reservations", d.Reservations.Create)
    auth.POST("/reservations/:id/extend", d.Reservations.Extend)
    auth.POST("/reservations/:id/pay", d.Reservations.Pay)
    auth.POST("/reservations/:id/activate", d.Reservations.Activate)
    auth.POST("/reservations/:id/complete", d.Reservations.Complete)
    auth.POST("/reservations/:id/cancel", d.Reservations.Cancel)
    auth.GET("/my-reservations", d.Reservations.ListMine)

    // Fleet administration is OPS only.
    ops := e.Group("/v1")
    ops.Use(middleware.JWTAuth(d.JWTSecret))
    ops.Use(middleware.RequireRole("OPS"))

    ops.POST("/vehicles", d.Vehicles.Create)
    ops.GET("/vehicles", d.Vehicles.List)
    ops.GET("/vehicles/:id", d.Vehicles.Get)
    ops.DELETE("/vehicles/:id", d.Vehicles.Deactivate)
    ops.GET("/vehicles/:id/reservations", d.Vehicles.ListReservations)
}
