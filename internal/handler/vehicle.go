package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
    "github.com/iliyamo/vehicle-rental-booking/internal/model"
    "github.com/iliyamo/vehicle-rental-booking/internal/repository"
)

// VehicleHandler serves the operations-facing fleet endpoints.
type VehicleHandler struct {
    Svc   *booking.Service
    Store *repository.Store
}

// NewVehicleHandler builds a VehicleHandler.
func NewVehicleHandler(svc *booking.Service, store *repository.Store) *VehicleHandler {
    return &VehicleHandler{Svc: svc, Store: store}
}

// createVehicleRequest is the body of POST /v1/vehicles.
type createVehicleRequest struct {
    Name  string `json:"name" validate:"required,min=1,max=120"`
    Plate string `json:"plate" validate:"required,min=1,max=32"`
}

// Create handles POST /v1/vehicles.
func (h *VehicleHandler) Create(c echo.Context) error {
    var req createVehicleRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    v := model.Vehicle{Name: req.Name, Plate: req.Plate}
    if err := h.Store.Vehicles().Create(c.Request().Context(), &v); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusCreated, v)
}

// List handles GET /v1/vehicles.  ?active=true narrows to bookable fleet.
func (h *VehicleHandler) List(c echo.Context) error {
    activeOnly := c.QueryParam("active") == "true"
    list, err := h.Store.Vehicles().List(c.Request().Context(), activeOnly)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"vehicles": list})
}

// Get handles GET /v1/vehicles/:id.
func (h *VehicleHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
    }
    v, err := h.Store.Vehicles().GetByID(c.Request().Context(), id)
    if err != nil {
        return writeEngineError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Deactivate handles DELETE /v1/vehicles/:id.  The vehicle row is kept for
// history; existing reservations are untouched and new ones are refused
// while the vehicle is inactive.
func (h *VehicleHandler) Deactivate(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
    }
    var req versionedRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    v, err := h.Svc.SetVehicleActive(c.Request().Context(), id, req.ExpectedVersion, false)
    if err != nil {
        return writeEngineError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// ListReservations handles GET /v1/vehicles/:id/reservations, the full
// per-vehicle history including terminal rows.
func (h *VehicleHandler) ListReservations(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
    }
    if _, err := h.Store.Vehicles().GetByID(c.Request().Context(), id); err != nil {
        return writeEngineError(c, err)
    }
    list, err := h.Store.Reservations().ListByVehicle(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}
