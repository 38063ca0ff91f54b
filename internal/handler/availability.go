package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
)

// AvailabilityHandler serves the public availability calendar.
type AvailabilityHandler struct {
    Svc *booking.Service
}

// NewAvailabilityHandler builds an AvailabilityHandler.
func NewAvailabilityHandler(svc *booking.Service) *AvailabilityHandler {
    return &AvailabilityHandler{Svc: svc}
}

// GetAvailability handles GET /v1/vehicles/:id/availability?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The window is half-open: from is the first day shown, to is excluded.
func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
    vehicleID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
    }
    from, err := parseDay(c.QueryParam("from"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date, expected YYYY-MM-DD"})
    }
    to, err := parseDay(c.QueryParam("to"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to date, expected YYYY-MM-DD"})
    }

    cal, err := h.Svc.CheckAvailability(c.Request().Context(), vehicleID, from, to)
    if err != nil {
        return writeEngineError(c, err)
    }
    return c.JSON(http.StatusOK, cal)
}
