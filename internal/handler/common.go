package handler

import (
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/vehicle-rental-booking/internal/booking"
)

// getUserID extracts the authenticated customer's numeric ID from the
// context populated by the JWTAuth middleware.  The "sub" claim may arrive
// as a string or as a JSON number depending on the issuer.
func getUserID(c echo.Context) (uint64, error) {
    switch v := c.Get("user_id").(type) {
    case string:
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil || id == 0 {
            return 0, fmt.Errorf("invalid subject claim %q", v)
        }
        return id, nil
    case float64:
        if v <= 0 {
            return 0, fmt.Errorf("invalid subject claim %v", v)
        }
        return uint64(v), nil
    default:
        return 0, errors.New("no authenticated user")
    }
}

// pathID parses the named numeric path parameter, rejecting zero.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, fmt.Errorf("invalid %s", name)
    }
    return id, nil
}

// parseDay parses a day-granular date in YYYY-MM-DD form.
func parseDay(s string) (time.Time, error) {
    return time.Parse("2006-01-02", s)
}

// writeEngineError translates booking engine errors into HTTP responses.
// Conflicts and stale versions are expected outcomes, not server faults:
// both map to 409 with a machine-readable code so clients can re-fetch and
// retry deliberately.  Anything unrecognized is a 500 without detail.
func writeEngineError(c echo.Context, err error) error {
    var conflict *booking.ConflictError
    var transition *booking.TransitionError
    switch {
    case errors.Is(err, booking.ErrInvalidRange):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_range"})
    case errors.As(err, &conflict):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":                       "conflict",
            "conflicting_reservation_id":  conflict.ConflictingID,
            "conflicting_reservation_ref": conflict.ConflictingRef,
        })
    case errors.Is(err, booking.ErrStaleVersion):
        return c.JSON(http.StatusConflict, echo.Map{"error": "stale_version"})
    case errors.As(err, &transition):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_transition", "detail": transition.Error()})
    case errors.Is(err, booking.ErrVehicleInactive):
        return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle_inactive"})
    case errors.Is(err, booking.ErrVehicleNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
    case errors.Is(err, booking.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
}
